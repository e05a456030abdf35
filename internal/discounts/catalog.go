package discounts

import (
	"context"
	"strings"
	"time"

	pkgerrors "github.com/modacart/modacart-backend/pkg/errors"
)

// Applied is the discount state carried by a cart: at most one per session.
type Applied struct {
	Code       string `json:"code"`
	Percentage int    `json:"percentage"`
}

// Catalog maps known promotion codes to percentage discounts. The table is
// fixed at construction; promotion management is a separate admin concern.
type Catalog struct {
	codes   map[string]int
	latency time.Duration
}

// NewCatalog builds the standard promotion table. A non-zero latency makes
// Validate pause to model the validation round-trip.
func NewCatalog(latency time.Duration) *Catalog {
	return &Catalog{
		codes: map[string]int{
			"WELCOME10": 10,
			"SAVE20":    20,
			"FIRST50":   50,
			"STUDENT15": 15,
			"SUMMER25":  25,
		},
		latency: latency,
	}
}

// Validate resolves a promotion code case-insensitively. Unknown and
// malformed codes fail the same way: the caller only learns the code is
// invalid.
func (c *Catalog) Validate(ctx context.Context, code string) (Applied, error) {
	if c.latency > 0 {
		timer := time.NewTimer(c.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Applied{}, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "discount validation canceled")
		case <-timer.C:
		}
	}

	normalized := strings.ToUpper(strings.TrimSpace(code))
	pct, ok := c.codes[normalized]
	if !ok {
		return Applied{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount code")
	}
	return Applied{Code: normalized, Percentage: pct}, nil
}
