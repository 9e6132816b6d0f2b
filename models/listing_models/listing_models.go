package listing_models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/staybook/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ListingType string

const (
	TypeHotel     ListingType = "hotel"
	TypeApartment ListingType = "apartment"
	TypeHouse     ListingType = "house"
	TypeVilla     ListingType = "villa"
	TypeResort    ListingType = "resort"
	TypeHostel    ListingType = "hostel"
	TypeBnB       ListingType = "bnb"
	TypeOther     ListingType = "other"
)

type ListingStatus string

const (
	StatusDraft     ListingStatus = "draft"
	StatusPublished ListingStatus = "published"
	StatusSuspended ListingStatus = "suspended"
	StatusArchived  ListingStatus = "archived"
)

func (t ListingType) Valid() bool {
	switch t {
	case TypeHotel, TypeApartment, TypeHouse, TypeVilla, TypeResort, TypeHostel, TypeBnB, TypeOther:
		return true
	}
	return false
}

func (s ListingStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusSuspended, StatusArchived:
		return true
	}
	return false
}

type Listing struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string          `gorm:"size:200;not null" json:"title"`
	Description   string          `gorm:"type:text;not null" json:"description"`
	ListingType   ListingType     `gorm:"size:20;not null;index" json:"listing_type"`
	Status        ListingStatus   `gorm:"size:20;not null;default:draft;index" json:"status"`
	HostID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"host_id"`
	CategoryID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"category_id"`
	LocationID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"location_id"`
	PricePerNight decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price_per_night"`
	Currency      string          `gorm:"size:3;not null;default:USD" json:"currency"`
	MaxGuests     int             `gorm:"not null;default:1" json:"max_guests"`
	Bedrooms      int             `gorm:"not null;default:1" json:"bedrooms"`
	Bathrooms     int             `gorm:"not null;default:1" json:"bathrooms"`
	Amenities     string          `gorm:"type:text" json:"amenities"`
	HouseRules    string          `gorm:"type:text" json:"house_rules"`
	IsAvailable   bool            `gorm:"not null;default:true" json:"is_available"`
	MinimumStay   int             `gorm:"not null;default:1" json:"minimum_stay"`
	MaximumStay   *int            `json:"maximum_stay"`
	MainImage     string          `gorm:"size:500" json:"main_image,omitempty"`
	Slug          string          `gorm:"size:250;uniqueIndex;not null" json:"slug"`
	ViewCount     int             `gorm:"not null;default:0" json:"view_count"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Category *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Location *Location      `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Images   []ListingImage `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

type ListingImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID uuid.UUID `gorm:"type:uuid;not null;index" json:"listing_id"`
	// StoredID is the image service id for uploaded files; zero for plain URLs.
	StoredID  uuid.UUID `gorm:"type:uuid" json:"stored_id,omitempty"`
	ImageURL  string    `gorm:"size:500;not null" json:"image_url"`
	Caption   string    `gorm:"size:200" json:"caption"`
	Order     int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the invariants a listing must hold before it is stored.
func (l *Listing) Validate() error {
	switch {
	case strings.TrimSpace(l.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidListing)
	case !l.ListingType.Valid():
		return fmt.Errorf("%w: unknown listing type %q", ErrInvalidListing, l.ListingType)
	case !l.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidListing, l.Status)
	case !l.PricePerNight.IsPositive():
		return fmt.Errorf("%w: price per night must be positive", ErrInvalidListing)
	case l.MaxGuests < 1:
		return fmt.Errorf("%w: max guests must be at least 1", ErrInvalidListing)
	case l.MinimumStay < 1:
		return fmt.Errorf("%w: minimum stay must be at least 1 night", ErrInvalidListing)
	case l.MaximumStay != nil && *l.MaximumStay < l.MinimumStay:
		return fmt.Errorf("%w: minimum stay cannot be greater than maximum stay", ErrInvalidListing)
	}
	return nil
}

// Bookable reports whether guests can currently reserve the listing.
func (l *Listing) Bookable() bool {
	return l.Status == StatusPublished && l.IsAvailable
}

// AmenityList splits the comma-separated amenities column.
func (l *Listing) AmenityList() []string {
	var out []string
	for _, a := range strings.Split(l.Amenities, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

type ListingFilter struct {
	Query     string
	Category  string
	City      string
	Country   string
	Type      ListingType
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Guests    int
	Amenities []string
	Sort      string
	Page      int
	PageSize  int
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive substring pattern in which the
// user's % and _ match literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func SearchListings(ctx context.Context, db *gorm.DB, f ListingFilter) ([]Listing, int64, error) {
	q := db.WithContext(ctx).Model(&Listing{}).
		Where("listings.status = ? AND listings.is_available = ?", StatusPublished, true)

	if f.Query != "" {
		like := containsPattern(f.Query)
		q = q.Where(`(LOWER(listings.title) LIKE ? ESCAPE '\' OR LOWER(listings.description) LIKE ? ESCAPE '\')`, like, like)
	}
	if f.Category != "" {
		q = q.Joins("JOIN categories ON categories.id = listings.category_id").
			Where("categories.slug = ?", f.Category)
	}
	if f.City != "" || f.Country != "" {
		q = q.Joins("JOIN locations ON locations.id = listings.location_id")
		if f.City != "" {
			q = q.Where("LOWER(locations.city) = ?", strings.ToLower(f.City))
		}
		if f.Country != "" {
			q = q.Where("LOWER(locations.country) = ?", strings.ToLower(f.Country))
		}
	}
	if f.Type != "" {
		q = q.Where("listings.listing_type = ?", f.Type)
	}
	if f.MinPrice != nil {
		q = q.Where("listings.price_per_night >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("listings.price_per_night <= ?", *f.MaxPrice)
	}
	if f.Guests > 0 {
		q = q.Where("listings.max_guests >= ?", f.Guests)
	}
	for _, a := range f.Amenities {
		q = q.Where(`LOWER(listings.amenities) LIKE ? ESCAPE '\'`, containsPattern(a))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	var listings []Listing
	err := q.Preload("Category").Preload("Location").
		Order(sortClause(f.Sort)).
		Offset(utils.Offset(f.Page, f.PageSize)).
		Limit(f.PageSize).
		Find(&listings).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search listings: %w", err)
	}
	return listings, total, nil
}

func sortClause(sort string) string {
	switch sort {
	case "price_asc":
		return "listings.price_per_night ASC"
	case "price_desc":
		return "listings.price_per_night DESC"
	case "popular":
		return "listings.view_count DESC"
	default:
		return "listings.created_at DESC"
	}
}

func GetListingByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Listing, error) {
	var listing Listing
	err := db.WithContext(ctx).
		Preload("Category").
		Preload("Location").
		Preload("Images", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC") }).
		First(&listing, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to fetch listing %s: %w", id, err)
	}
	return &listing, nil
}

func ListingsByHost(ctx context.Context, db *gorm.DB, hostID uuid.UUID, page, pageSize int) ([]Listing, int64, error) {
	q := db.WithContext(ctx).Model(&Listing{}).Where("host_id = ?", hostID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count host listings: %w", err)
	}

	var listings []Listing
	err := q.Preload("Category").Preload("Location").
		Order("created_at DESC").
		Offset(utils.Offset(page, pageSize)).
		Limit(pageSize).
		Find(&listings).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list host listings: %w", err)
	}
	return listings, total, nil
}

func IncrementViewCount(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	return db.WithContext(ctx).Model(&Listing{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func CreateListing(ctx context.Context, db *gorm.DB, l *Listing) error {
	if l.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate listing id: %w", err)
		}
		l.ID = id
	}
	if l.Status == "" {
		l.Status = StatusDraft
	}
	if err := l.Validate(); err != nil {
		return err
	}
	l.Slug = utils.Slugify(l.Title) + "-" + strings.ReplaceAll(l.ID.String(), "-", "")[:8]

	for i := range l.Images {
		if l.Images[i].ID == uuid.Nil {
			l.Images[i].ID = uuid.New()
		}
		l.Images[i].ListingID = l.ID
	}

	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// UpdateListing saves host edits. The slug stays stable across title changes.
func UpdateListing(ctx context.Context, db *gorm.DB, l *Listing) error {
	if err := l.Validate(); err != nil {
		return err
	}
	err := db.WithContext(ctx).Model(&Listing{}).
		Where("id = ? AND host_id = ?", l.ID, l.HostID).
		Select("title", "description", "listing_type", "status", "category_id", "location_id",
			"price_per_night", "currency", "max_guests", "bedrooms", "bathrooms", "amenities",
			"house_rules", "is_available", "minimum_stay", "maximum_stay", "main_image").
		Updates(l).Error
	if err != nil {
		return fmt.Errorf("failed to update listing %s: %w", l.ID, err)
	}
	return nil
}

func DeleteListing(ctx context.Context, db *gorm.DB, id, hostID uuid.UUID) error {
	res := db.WithContext(ctx).Where("id = ? AND host_id = ?", id, hostID).Delete(&Listing{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete listing %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrListingNotFound
	}
	return nil
}
