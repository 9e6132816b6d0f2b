package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/staybook/logger"
	"github.com/joy095/staybook/models/booking_models"
	"github.com/joy095/staybook/models/listing_models"
	"github.com/joy095/staybook/models/payment_models"
	"github.com/joy095/staybook/models/user_models"
	"gorm.io/gorm"
)

// Migrate creates the catalog and booking tables through gorm, then the
// payment ledger through raw SQL.
func Migrate(ctx context.Context, gdb *gorm.DB, pool *pgxpool.Pool) error {
	err := gdb.WithContext(ctx).AutoMigrate(
		&user_models.User{},
		&listing_models.Category{},
		&listing_models.Location{},
		&listing_models.Listing{},
		&listing_models.ListingImage{},
		&listing_models.Review{},
		&listing_models.Favorite{},
		&booking_models.Booking{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}

	if err := gdb.WithContext(ctx).Exec(`
		DO $$ BEGIN
			ALTER TABLE bookings ADD CONSTRAINT chk_bookings_dates CHECK (check_out_date > check_in_date);
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$`).Error; err != nil {
		return fmt.Errorf("failed to add booking date constraint: %w", err)
	}

	if err := payment_models.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	logger.InfoLogger.Info("Database schema is up to date.")
	return nil
}
