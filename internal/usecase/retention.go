package usecase

import (
	"context"
	"time"

	"github.com/aegisdb/aegis/internal/domain"
	"github.com/aegisdb/aegis/internal/infrastructure/metrics"
)

// RetentionPolicy holds per-tier maximum ages in ordinal units. Weeks and
// months are converted to day counts with fixed multipliers (x7, x30), an
// approximation carried over deliberately; it is not calendar-exact.
type RetentionPolicy struct {
	DailyDays     int
	WeeklyWeeks   int
	MonthlyMonths int
}

// RetentionResult aggregates one enforcement sweep.
type RetentionResult struct {
	Deleted int
	Errors  int
}

// Retention deletes objects past their tier's age cutoff. Deletions are
// attempted independently per object; failures are counted and logged but
// never stop the sweep, so rerunning after a partial failure just picks up
// whatever is still eligible.
type Retention struct {
	store  domain.ObjectStore
	logger Logger
	policy RetentionPolicy
}

func NewRetention(store domain.ObjectStore, logger Logger, policy RetentionPolicy) *Retention {
	return &Retention{
		store:  store,
		logger: logger,
		policy: policy,
	}
}

func (uc *Retention) Execute(ctx context.Context) (*RetentionResult, error) {
	uc.logger.Infof("Starting retention enforcement (daily: %dd, weekly: %dw, monthly: %dm)",
		uc.policy.DailyDays, uc.policy.WeeklyWeeks, uc.policy.MonthlyMonths)

	cutoffDays := []struct {
		tier domain.BackupTier
		days int
	}{
		{domain.TierDaily, uc.policy.DailyDays},
		{domain.TierWeekly, uc.policy.WeeklyWeeks * 7},
		{domain.TierMonthly, uc.policy.MonthlyMonths * 30},
	}

	result := &RetentionResult{}
	now := time.Now()

	for _, tc := range cutoffDays {
		cutoff := now.AddDate(0, 0, -tc.days)
		uc.enforceTier(ctx, tc.tier, cutoff, result)
	}

	uc.logger.Infof("Retention enforcement done: %d deleted, %d errors", result.Deleted, result.Errors)
	return result, nil
}

func (uc *Retention) enforceTier(ctx context.Context, tier domain.BackupTier, cutoff time.Time, result *RetentionResult) {
	objects, err := uc.store.ListObjects(ctx, domain.TierPrefix(tier))
	if err != nil {
		uc.logger.Errorf("Failed to list %s backups: %v", tier, err)
		result.Errors++
		metrics.RetentionErrors.Inc()
		return
	}

	for _, obj := range objects {
		if !obj.LastModified.Before(cutoff) {
			continue
		}

		uc.logger.Infof("Deleting expired %s backup: %s (modified %s)",
			tier, obj.Key, obj.LastModified.Format(time.RFC3339))

		if err := uc.store.Delete(ctx, obj.Key); err != nil {
			uc.logger.Errorf("Failed to delete %s: %v", obj.Key, err)
			result.Errors++
			metrics.RetentionErrors.Inc()
			continue
		}
		result.Deleted++
		metrics.RetentionDeleted.Inc()
	}
}
