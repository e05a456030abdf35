package shipping

import (
	"github.com/modacart/modacart-backend/pkg/enums"
	pkgerrors "github.com/modacart/modacart-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Info is the shipping selection carried by a cart session: the method plus
// its fixed cost and delivery estimate label.
type Info struct {
	Method            enums.ShippingMethod `json:"method"`
	Cost              decimal.Decimal      `json:"cost"`
	EstimatedDelivery string               `json:"estimated_delivery"`
}

var methodTable = map[enums.ShippingMethod]Info{
	enums.ShippingMethodStandard: {
		Method:            enums.ShippingMethodStandard,
		Cost:              decimal.Zero,
		EstimatedDelivery: "5-7 business days",
	},
	enums.ShippingMethodExpress: {
		Method:            enums.ShippingMethodExpress,
		Cost:              decimal.NewFromInt(150),
		EstimatedDelivery: "1-2 business days",
	},
}

// Quote returns the fixed cost/label pair for a shipping method.
func Quote(method enums.ShippingMethod) (Info, error) {
	info, ok := methodTable[method]
	if !ok {
		return Info{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method")
	}
	return info, nil
}

// Default is the shipping selection for a fresh cart session.
func Default() Info {
	return methodTable[enums.ShippingMethodStandard]
}
