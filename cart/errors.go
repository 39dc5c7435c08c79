package cart

import "errors"

var (
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInsufficientStock = errors.New("not enough stock for the requested quantity")
	ErrItemNotInCart     = errors.New("item not in cart")
	ErrNoLastOrder       = errors.New("no last order recorded")
)
