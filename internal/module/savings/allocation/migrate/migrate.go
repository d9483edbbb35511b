// Package migrate performs the one-shot upgrade of legacy percentage-based
// allocations to fixed amounts. Percentage allocations claimed a share of
// whatever the asset balance happened to be; the fixed model freezes that
// claim at the balance observed at migration time and never revises it on
// later price moves.
package migrate

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"savingsplanner/internal/core"
	allocdomain "savingsplanner/internal/module/savings/allocation/domain"
	allocrepo "savingsplanner/internal/module/savings/allocation/repository"
	"savingsplanner/internal/module/savings/calendar"
)

// LegacyPercentageAllocation is the pre-upgrade row shape: a share of the
// asset's balance instead of a fixed amount. Rows are consumed once and
// marked migrated.
type LegacyPercentageAllocation struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AssetID  uuid.UUID       `gorm:"type:uuid;not null;column:asset_id" json:"asset_id"`
	GoalID   uuid.UUID       `gorm:"type:uuid;not null;column:goal_id" json:"goal_id"`
	Percent  decimal.Decimal `gorm:"type:decimal(10,6);not null;column:percent" json:"percent"`
	Migrated bool            `gorm:"not null;default:false;column:migrated" json:"migrated"`
}

func (LegacyPercentageAllocation) TableName() string { return "savings_legacy_percentage_allocations" }

// BalanceResolver resolves an asset's total balance at migration time.
type BalanceResolver interface {
	Balance(ctx context.Context, cc core.CoreContext, assetID uuid.UUID, forceRefresh bool) (decimal.Decimal, error)
}

// Migrator upgrades legacy rows at load time.
type Migrator struct {
	db      *gorm.DB
	repo    allocrepo.Repository
	balance BalanceResolver
	logger  *zap.Logger
}

// New constructs a Migrator.
func New(db *gorm.DB, repo allocrepo.Repository, balance BalanceResolver, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, repo: repo, balance: balance, logger: logger}
}

// Run converts every unmigrated legacy row: fixed = balance × percent,
// one history row per migrated allocation. Idempotent: already-migrated
// rows and rows whose fixed allocation already exists are skipped.
func (m *Migrator) Run(ctx context.Context, cc core.CoreContext) error {
	if !m.db.Migrator().HasTable(&LegacyPercentageAllocation{}) {
		return nil
	}

	var legacy []LegacyPercentageAllocation
	if err := m.db.WithContext(ctx).Where("migrated = ?", false).Find(&legacy).Error; err != nil {
		return err
	}
	if len(legacy) == 0 {
		return nil
	}

	m.logger.Info("migrating percentage allocations to fixed amounts", zap.Int("count", len(legacy)))
	monthLabel := calendar.MonthLabel(calendar.Now())

	for _, row := range legacy {
		existing, err := m.repo.GetByAssetAndGoal(ctx, row.AssetID, row.GoalID)
		if err != nil {
			return err
		}
		if existing == nil {
			balance, err := m.balance.Balance(ctx, cc, row.AssetID, false)
			if err != nil {
				m.logger.Warn("skipping legacy allocation: balance unavailable",
					zap.String("asset_id", row.AssetID.String()), zap.Error(err))
				continue
			}
			fixed := core.Round(balance.Mul(row.Percent))

			alloc := &allocdomain.Allocation{AssetID: row.AssetID, GoalID: row.GoalID, Amount: fixed}
			hist := &allocdomain.History{
				AssetID:    row.AssetID,
				GoalID:     row.GoalID,
				Amount:     fixed,
				MonthLabel: monthLabel,
				Timestamp:  calendar.Now(),
			}
			if err := m.repo.WriteWithHistory(ctx, alloc, hist); err != nil {
				return err
			}
		}

		row.Migrated = true
		if err := m.db.WithContext(ctx).Save(&row).Error; err != nil {
			return err
		}
	}
	return nil
}
