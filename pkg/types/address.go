package types

// ShippingAddress is the delivery destination collected during checkout.
// The seven required fields must all be present before the workflow can
// advance past the address step.
type ShippingAddress struct {
	FullName   string `json:"full_name" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country"`
}

// WithDefaultCountry returns a copy with the country defaulted when the
// shopper left it blank.
func (a ShippingAddress) WithDefaultCountry() ShippingAddress {
	if a.Country == "" {
		a.Country = "India"
	}
	return a
}
