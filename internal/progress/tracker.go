package progress

import (
	"context"
	"fmt"
	"time"

	"careerflow/internal/config"
	"careerflow/internal/errors"
	"careerflow/internal/types"
)

// summaryDenominator is how many milestones count as "complete" progress.
const summaryDenominator = 10

// Tracker applies one workflow run's outcome to a user's persisted history.
// Each update appends exactly one milestone through a read-modify-write loop
// that retries lost version races with a fresh read, so N concurrent updates
// for one user land as N milestones.
type Tracker struct {
	store           Store
	conflictRetries int
	retention       time.Duration
	purgeInterval   time.Duration
	logger          *errors.Logger
}

func NewTracker(store Store, cfg config.ProgressConfig, logger *errors.Logger) *Tracker {
	retries := cfg.ConflictRetries
	if retries < 1 {
		retries = 1
	}
	return &Tracker{
		store:           store,
		conflictRetries: retries,
		retention:       cfg.Retention,
		purgeInterval:   cfg.PurgeInterval,
		logger:          logger,
	}
}

// History returns the user's current record. The bool reports whether one
// exists yet.
func (t *Tracker) History(ctx context.Context, userID string) (types.ProgressRecord, bool, error) {
	return t.store.Get(ctx, userID)
}

// Update derives this run's milestone and appends it. On a version conflict
// it rereads and rederives against the newer history; when the retry budget
// runs out it returns the latest stored record together with a conflict
// error so callers can degrade instead of failing the whole run. A cancelled
// context aborts before any write.
func (t *Tracker) Update(ctx context.Context, userID string, state types.AgentState, score *float64) (types.ProgressRecord, error) {
	var lastConflict error
	for attempt := 0; attempt < t.conflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return types.ProgressRecord{}, err
		}

		record, found, err := t.store.Get(ctx, userID)
		if err != nil {
			return types.ProgressRecord{}, err
		}
		if !found {
			record = types.ProgressRecord{UserID: userID}
		}
		expected := record.Version

		now := time.Now().UTC()
		milestone := DeriveMilestone(record, state, score)
		record.History = append(record.History, types.Milestone{Name: milestone, RecordedAt: now})
		record.NextMilestone = NextMilestone(milestone)
		record.UpdatedAt = now

		err = t.store.Put(ctx, record, expected)
		if err == nil {
			record.Version = expected + 1
			return record, nil
		}
		if !errors.IsConflictError(err) {
			return types.ProgressRecord{}, err
		}
		lastConflict = err
		t.logger.Debug("Progress update lost a version race, rereading",
			"user_id", userID, "attempt", attempt+1)
	}

	// Budget exhausted. Surface whatever is stored now so the caller still
	// has a coherent view, alongside the conflict.
	prior, _, getErr := t.store.Get(ctx, userID)
	if getErr != nil {
		prior = types.ProgressRecord{UserID: userID}
	}
	return prior, errors.NewConflictError(errors.ErrCodeProgressConflict,
		fmt.Sprintf("progress update for user %s lost %d consecutive version races", userID, t.conflictRetries),
		lastConflict)
}

// DeriveMilestone picks the single milestone this run earns. The first
// recorded interaction is always the initial assessment; after that the
// run's goals and score decide.
func DeriveMilestone(record types.ProgressRecord, state types.AgentState, score *float64) string {
	if len(record.History) == 0 {
		return types.MilestoneInitialAssessment
	}
	if state.HasGoal(types.GoalSkillDevelopment) {
		return types.MilestoneBasicSkills
	}
	if state.HasGoal(types.GoalCareerAdvancement) && score != nil && *score > 0.8 {
		return types.MilestoneCareerGoals
	}
	return types.MilestoneNextLevel
}

var milestoneProgression = map[string]string{
	types.MilestoneInitialAssessment: types.MilestoneBasicSkills,
	types.MilestoneBasicSkills:       types.MilestoneCareerGoals,
	types.MilestoneCareerGoals:       types.MilestoneNextLevel,
	types.MilestoneNextLevel:         types.MilestoneNextLevel,
}

// NextMilestone returns the successor of the given milestone in the
// progression. advance_to_next_level repeats indefinitely.
func NextMilestone(current string) string {
	if next, ok := milestoneProgression[current]; ok {
		return next
	}
	return types.MilestoneInitialAssessment
}

// Summarize condenses a record into the client-facing view. Overall progress
// saturates at 1.0 after ten milestones; recent improvements are the last
// three milestone names, newest last.
func Summarize(record types.ProgressRecord) types.ProgressSummary {
	summary := types.ProgressSummary{
		NextMilestone: record.NextMilestone,
	}

	overall := float64(len(record.History)) / summaryDenominator
	if overall > 1 {
		overall = 1
	}
	summary.OverallProgress = overall

	start := len(record.History) - 3
	if start < 0 {
		start = 0
	}
	for _, m := range record.History[start:] {
		summary.RecentImprovements = append(summary.RecentImprovements, m.Name)
	}
	for _, m := range record.History {
		if m.Name == types.MilestoneCareerGoals {
			summary.GoalsAchieved = append(summary.GoalsAchieved, m.Name)
		}
	}
	return summary
}

// PurgeLoop periodically drops records idle longer than the retention
// window. It blocks until ctx is cancelled; with no retention configured it
// returns immediately. Request handling never removes history, this is the
// only deletion path.
func (t *Tracker) PurgeLoop(ctx context.Context) {
	if t.retention <= 0 {
		return
	}
	interval := t.purgeInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-t.retention)
			purged, err := t.store.Purge(ctx, cutoff)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				t.logger.LogError(err, "Progress purge failed")
				continue
			}
			if purged > 0 {
				t.logger.Info("Purged idle progress records", "purged", purged, "cutoff", cutoff.Format(time.RFC3339))
			}
		}
	}
}
