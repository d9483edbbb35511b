package database

import (
	"context"
	"fmt"
	"time"

	allocationdomain "savingsplanner/internal/module/savings/allocation/domain"
	assetdomain "savingsplanner/internal/module/savings/asset/domain"
	"savingsplanner/internal/module/savings/calendar"
	goaldomain "savingsplanner/internal/module/savings/goal/domain"
	settingsdomain "savingsplanner/internal/module/savings/settings/domain"
	transactiondomain "savingsplanner/internal/module/savings/transaction/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DemoUserID is the fixed user every seeded row belongs to, so a fresh
// development database is immediately usable with X-User-ID set to it.
var DemoUserID = uuid.MustParse("6a0f2b66-0000-4000-8000-000000000001")

// Seeder handles database seeding operations
type Seeder struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSeeder creates a new database seeder
func NewSeeder(db *gorm.DB, logger *zap.Logger) *Seeder {
	return &Seeder{db: db, logger: logger}
}

// SeedAll seeds a demo planning setup: settings, three goals with spread
// deadlines, two assets, starting transactions, and allocations mapping
// the assets onto the goals. Idempotent: skips when demo goals exist.
func (s *Seeder) SeedAll(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&goaldomain.Goal{}).Where("user_id = ?", DemoUserID).Count(&count).Error; err != nil {
		return fmt.Errorf("checking existing seed data: %w", err)
	}
	if count > 0 {
		s.logger.Info("Seed data already present, skipping", zap.Int64("goals", count))
		return nil
	}

	s.logger.Info("🌱 Seeding demo savings data...", zap.String("user_id", DemoUserID.String()))

	settings := settingsdomain.Defaults(DemoUserID)
	if err := s.db.WithContext(ctx).Create(&settings).Error; err != nil {
		return fmt.Errorf("seeding settings: %w", err)
	}

	today := calendar.Today()
	goals := []goaldomain.Goal{
		{
			ID: uuid.New(), UserID: DemoUserID, Name: "Emergency fund", Currency: "USD",
			Target: decimal.NewFromInt(6000), Deadline: today.AddDays(180),
			Lifecycle: goaldomain.LifecycleActive, Priority: goaldomain.PriorityHigh,
			Reminder: goaldomain.ReminderOff(),
		},
		{
			ID: uuid.New(), UserID: DemoUserID, Name: "Japan trip", Currency: "EUR",
			Target: decimal.NewFromInt(3500), Deadline: today.AddDays(365),
			Lifecycle: goaldomain.LifecycleActive, Priority: goaldomain.PriorityMedium,
			Reminder: goaldomain.ReminderOn(goaldomain.ReminderMonthly, "09:00", today),
		},
		{
			ID: uuid.New(), UserID: DemoUserID, Name: "New laptop", Currency: "USD",
			Target: decimal.NewFromInt(2200), Deadline: today.AddDays(270),
			Lifecycle: goaldomain.LifecycleActive, Priority: goaldomain.PriorityLow,
			Reminder: goaldomain.ReminderOff(),
		},
	}
	for i := range goals {
		if err := s.db.WithContext(ctx).Create(&goals[i]).Error; err != nil {
			return fmt.Errorf("seeding goal %q: %w", goals[i].Name, err)
		}
	}

	cashAsset := assetdomain.Asset{ID: uuid.New(), UserID: DemoUserID, CurrencyCode: "USD"}
	btcAddress := "bc1q-demo-savings-address"
	btcChain := "bitcoin"
	btcAsset := assetdomain.Asset{ID: uuid.New(), UserID: DemoUserID, CurrencyCode: "BTC", Address: &btcAddress, ChainID: &btcChain}
	for _, a := range []*assetdomain.Asset{&cashAsset, &btcAsset} {
		if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
			return fmt.Errorf("seeding asset %s: %w", a.CurrencyCode, err)
		}
	}

	now := calendar.Now()
	monthAgo := now - calendar.EpochMillis((30 * 24 * time.Hour).Milliseconds())
	transactions := []transactiondomain.Transaction{
		{ID: uuid.New(), AssetID: cashAsset.ID, Amount: decimal.NewFromInt(2500), Date: monthAgo, Source: transactiondomain.SourceManual},
		{ID: uuid.New(), AssetID: cashAsset.ID, Amount: decimal.NewFromInt(800), Date: now, Source: transactiondomain.SourceManual},
		{ID: uuid.New(), AssetID: btcAsset.ID, Amount: decimal.RequireFromString("0.05"), Date: now, Source: transactiondomain.SourceManual},
	}
	for i := range transactions {
		if err := s.db.WithContext(ctx).Create(&transactions[i]).Error; err != nil {
			return fmt.Errorf("seeding transaction: %w", err)
		}
	}

	monthLabel := calendar.MonthLabel(now)
	allocations := []struct {
		asset  uuid.UUID
		goal   uuid.UUID
		amount decimal.Decimal
	}{
		{cashAsset.ID, goals[0].ID, decimal.NewFromInt(2000)},
		{cashAsset.ID, goals[2].ID, decimal.NewFromInt(800)},
		{btcAsset.ID, goals[1].ID, decimal.RequireFromString("0.05")},
	}
	for _, a := range allocations {
		alloc := allocationdomain.Allocation{ID: uuid.New(), AssetID: a.asset, GoalID: a.goal, Amount: a.amount}
		if err := s.db.WithContext(ctx).Create(&alloc).Error; err != nil {
			return fmt.Errorf("seeding allocation: %w", err)
		}
		hist := allocationdomain.History{
			ID: uuid.New(), AssetID: a.asset, GoalID: a.goal,
			Amount: a.amount, MonthLabel: monthLabel, Timestamp: now,
		}
		if err := s.db.WithContext(ctx).Create(&hist).Error; err != nil {
			return fmt.Errorf("seeding allocation history: %w", err)
		}
	}

	s.logger.Info("✅ Demo savings data seeded",
		zap.Int("goals", len(goals)),
		zap.Int("assets", 2),
		zap.Int("allocations", len(allocations)),
	)
	return nil
}
