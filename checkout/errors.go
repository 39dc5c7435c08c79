package checkout

import "errors"

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrNotOnFinalStep      = errors.New("order can only be submitted from the last step")
	ErrValidation          = errors.New("checkout form has errors")
	ErrUnknownShipping     = errors.New("unknown shipping method")
	ErrOutsideDeliveryArea = errors.New("address is outside the delivery area")
)
