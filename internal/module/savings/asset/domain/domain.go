// Package domain holds the Asset aggregate: a balance-bearing account in a
// fiat or crypto currency, optionally backed by an on-chain address.
package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Asset is a holding the user tracks a balance for, either a plain fiat
// account (CurrencyCode only) or a crypto address (CurrencyCode + Address +
// ChainID, both set or both absent).
type Asset struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`

	CurrencyCode string  `gorm:"type:varchar(10);not null;column:currency_code" json:"currency_code"`
	Address      *string `gorm:"type:varchar(255);uniqueIndex;column:address" json:"address,omitempty"`
	ChainID      *string `gorm:"type:varchar(50);column:chain_id" json:"chain_id,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"deleted_at,omitempty"`
}

func (Asset) TableName() string { return "savings_assets" }

// IsOnChain reports whether the asset is backed by a chain address.
func (a *Asset) IsOnChain() bool {
	return a.Address != nil && a.ChainID != nil
}

// ValidAddressPair reports whether Address and ChainID are both set or both
// absent.
func (a *Asset) ValidAddressPair() bool {
	return (a.Address == nil) == (a.ChainID == nil)
}
