package dto

import "github.com/shopspring/decimal"

// OverrideRequest patches a plan row's editable fields. Nil fields are
// left unchanged.
type OverrideRequest struct {
	CustomAmount *decimal.Decimal `json:"custom_amount,omitempty"`
	IsProtected  *bool            `json:"is_protected,omitempty"`
	IsSkipped    *bool            `json:"is_skipped,omitempty"`
}
