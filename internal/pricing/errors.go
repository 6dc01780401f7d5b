package pricing

import "errors"

var (
	// ErrInvalidQuantity is returned when a line quantity is below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrNegativePrice is returned when a unit, original or tier price is negative.
	ErrNegativePrice = errors.New("price must not be negative")
	// ErrInvalidTierTable indicates a tier table that is unordered, missing its base
	// breakpoint, or whose unit price increases with volume.
	ErrInvalidTierTable = errors.New("invalid tier table")
	// ErrMissingProduct is returned for a line without a product identifier.
	ErrMissingProduct = errors.New("product id required")
	// ErrDuplicateProduct is returned when the same product appears on more than one line.
	ErrDuplicateProduct = errors.New("duplicate product in cart")
	// ErrRetailNotEligible is returned when retail billing is requested below the threshold.
	ErrRetailNotEligible = errors.New("cart not eligible for retail billing")
	// ErrInvalidBillingMode is returned for an unknown billing mode name.
	ErrInvalidBillingMode = errors.New("invalid billing mode")
	// ErrInvalidConfig indicates pricing configuration outside its allowed range.
	ErrInvalidConfig = errors.New("invalid pricing config")
)
