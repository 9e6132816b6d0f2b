package cmd

import (
	"os/signal"
	"syscall"

	"github.com/joy095/staybook/logger"
	"github.com/joy095/staybook/services/notification_service"
	"github.com/joy095/staybook/utils/mail"
	"github.com/spf13/cobra"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume the notification queue and send emails",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := openStack(ctx, false, true)
			if err != nil {
				return err
			}
			defer s.close()

			worker, err := newNotificationWorker(s)
			if err != nil {
				return err
			}

			logger.InfoLogger.Infof("Notification worker started on queue %s", s.cfg.Queue.NotificationQueue)
			if err := worker.Run(ctx, s.cfg.Queue); err != nil {
				return err
			}
			logger.InfoLogger.Info("Notification worker stopped")
			return nil
		},
	}
}

func newNotificationWorker(s *stack) (*notification_service.Worker, error) {
	mailer, err := mail.NewMailer(s.cfg.SMTP)
	if err != nil {
		return nil, err
	}

	var deduper notification_service.Deduper
	if s.redis != nil {
		deduper = notification_service.NewRedisDeduper(s.redis)
	}
	return notification_service.NewWorker(mailer, deduper), nil
}
