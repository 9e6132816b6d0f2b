package listing_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/staybook/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug        string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Location struct {
	ID        uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string              `gorm:"size:200;not null" json:"name"`
	City      string              `gorm:"size:100;not null;index" json:"city"`
	State     string              `gorm:"size:100" json:"state"`
	Country   string              `gorm:"size:100;not null;index" json:"country"`
	Latitude  decimal.NullDecimal `gorm:"type:numeric(9,6)" json:"latitude"`
	Longitude decimal.NullDecimal `gorm:"type:numeric(9,6)" json:"longitude"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func ListCategories(ctx context.Context, db *gorm.DB) ([]Category, error) {
	var categories []Category
	if err := db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func CreateCategory(ctx context.Context, db *gorm.DB, c *Category) error {
	c.ID = uuid.New()
	c.Slug = utils.Slugify(c.Name)
	c.IsActive = true
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCategory
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func CategoryExists(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := db.WithContext(ctx).Model(&Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up category: %w", err)
	}
	if count == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func ListLocations(ctx context.Context, db *gorm.DB, country string) ([]Location, error) {
	q := db.WithContext(ctx).Order("country ASC, city ASC")
	if country != "" {
		q = q.Where("LOWER(country) = LOWER(?)", country)
	}
	var locations []Location
	if err := q.Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

func CreateLocation(ctx context.Context, db *gorm.DB, l *Location) error {
	l.ID = uuid.New()
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

func LocationExists(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := db.WithContext(ctx).Model(&Location{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up location: %w", err)
	}
	if count == 0 {
		return ErrLocationNotFound
	}
	return nil
}
