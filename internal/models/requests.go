package models

import (
	"fmt"

	"p2pquotes/internal/filters"
)

// SetAssetRequest selects the crypto asset to quote
type SetAssetRequest struct {
	Asset string `json:"currency" binding:"required"`
}

// Validate validates the asset selection
func (r *SetAssetRequest) Validate() (filters.Asset, error) {
	if r.Asset == "" {
		return "", fmt.Errorf("currency is required")
	}
	return filters.ParseAsset(r.Asset)
}

// SetSideRequest selects the trade direction
type SetSideRequest struct {
	Side string `json:"condition" binding:"required"`
}

// Validate validates the trade direction
func (r *SetSideRequest) Validate() (filters.Side, error) {
	if r.Side == "" {
		return "", fmt.Errorf("condition is required")
	}
	return filters.ParseSide(r.Side)
}

// SetPaymentMethodRequest selects the payment method filter
type SetPaymentMethodRequest struct {
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

// Validate validates the payment method
func (r *SetPaymentMethodRequest) Validate() (filters.PaymentMethod, error) {
	if r.PaymentMethod == "" {
		return "", fmt.Errorf("paymentMethod is required")
	}
	return filters.ParsePaymentMethod(r.PaymentMethod)
}

// SetVerifiedOnlyRequest toggles the verified-merchant filter
type SetVerifiedOnlyRequest struct {
	VerifiedOnly *bool `json:"verifiedUser" binding:"required"`
}

// Validate validates the toggle
func (r *SetVerifiedOnlyRequest) Validate() (bool, error) {
	if r.VerifiedOnly == nil {
		return false, fmt.Errorf("verifiedUser is required")
	}
	return *r.VerifiedOnly, nil
}
