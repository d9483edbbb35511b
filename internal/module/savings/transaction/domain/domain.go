// Package domain holds the Transaction aggregate: a signed balance movement
// against an Asset, manually entered, imported, or observed on-chain.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"savingsplanner/internal/module/savings/calendar"
)

// Source identifies where a Transaction originated.
type Source string

const (
	SourceManual  Source = "manual"
	SourceOnChain Source = "on_chain"
	SourceImport  Source = "import"
)

func (s Source) IsValid() bool {
	switch s {
	case SourceManual, SourceOnChain, SourceImport:
		return true
	default:
		return false
	}
}

// Transaction is a signed movement of an Asset's balance: positive amounts
// are deposits, negative are withdrawals. ExternalID, when present, is the
// idempotent key an `import` source uses to avoid double-counting a
// re-delivered transaction.
type Transaction struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssetID uuid.UUID `gorm:"type:uuid;not null;index;column:asset_id" json:"asset_id"`

	Amount decimal.Decimal      `gorm:"type:decimal(24,8);not null;column:amount" json:"amount"`
	Date   calendar.EpochMillis `gorm:"not null;column:date" json:"date"`
	Source Source               `gorm:"type:varchar(20);not null;column:source" json:"source"`

	ExternalID   *string `gorm:"type:varchar(255);uniqueIndex;column:external_id" json:"external_id,omitempty"`
	Counterparty *string `gorm:"type:varchar(255);column:counterparty" json:"counterparty,omitempty"`
	Comment      *string `gorm:"type:text;column:comment" json:"comment,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"deleted_at,omitempty"`
}

func (Transaction) TableName() string { return "savings_transactions" }

// IsDeposit reports whether the transaction increases the asset's balance.
func (t *Transaction) IsDeposit() bool { return t.Amount.IsPositive() }
