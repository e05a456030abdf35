package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog record. The cart engine only reads these; catalog
// administration lives in a separate system.
type Product struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title           string           `gorm:"not null" json:"title"`
	Description     string           `json:"description"`
	Price           decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"price"`
	DiscountedPrice *decimal.Decimal `gorm:"type:numeric(12,2)" json:"discounted_price,omitempty"`
	Sizes           pq.StringArray   `gorm:"type:text[]" json:"sizes"`
	Colors          pq.StringArray   `gorm:"type:text[]" json:"colors"`
	FeaturedImage   *string          `json:"featured_image,omitempty"`
	InStock         bool             `gorm:"not null;default:true" json:"in_stock"`
	StockQuantity   int              `gorm:"not null;default:0" json:"stock_quantity"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName keeps the table name stable regardless of GORM pluralization rules.
func (Product) TableName() string {
	return "products"
}

// BeforeCreate assigns an ID when the database default is unavailable (sqlite tests).
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// EffectivePrice returns the price a cart item locks at insertion time:
// the discounted price when present, the list price otherwise.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.DiscountedPrice != nil {
		return *p.DiscountedPrice
	}
	return p.Price
}
