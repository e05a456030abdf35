package cart

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is one cart line. Its identity is the composite key of product, size,
// and color; its price is locked at the moment the line was created and is
// never re-read from the catalog.
type Item struct {
	ID            string          `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	Title         string          `json:"title"`
	FeaturedImage *string         `json:"featured_image,omitempty"`
	Quantity      int             `json:"quantity"`
	Size          string          `json:"size"`
	Color         string          `json:"color"`
	Price         decimal.Decimal `json:"price"`
	AddedAt       time.Time       `json:"added_at"`
}

// ItemKey derives the deterministic composite key identifying a cart line.
func ItemKey(productID uuid.UUID, size, color string) string {
	return fmt.Sprintf("%s::%s::%s", productID, size, color)
}
