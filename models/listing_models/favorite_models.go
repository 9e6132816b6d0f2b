package listing_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Favorite struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_favorites_user_listing" json:"user_id"`
	ListingID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_favorites_user_listing" json:"listing_id"`
	CreatedAt time.Time `json:"created_at"`

	Listing *Listing `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"listing,omitempty"`
}

// ToggleFavorite adds the listing to the user's favorites, or removes it when
// already present. It returns whether the listing is a favorite afterwards.
func ToggleFavorite(ctx context.Context, db *gorm.DB, userID, listingID uuid.UUID) (bool, error) {
	favorited := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Favorite
		err := tx.Where("user_id = ? AND listing_id = ?", userID, listingID).First(&existing).Error
		switch {
		case err == nil:
			return tx.Delete(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			favorited = true
			return tx.Create(&Favorite{ID: uuid.New(), UserID: userID, ListingID: listingID}).Error
		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	return favorited, nil
}

func ListFavorites(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]Favorite, error) {
	var favorites []Favorite
	err := db.WithContext(ctx).
		Preload("Listing").
		Preload("Listing.Location").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favorites).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return favorites, nil
}
