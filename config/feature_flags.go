package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles for staff notifications and report
// surfaces. Supports gradual rollout and batch-based targeting so a new
// report section can be trialled on one cohort before everyone sees it.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	loginOverrides map[string]map[string]bool // trainee login -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Trainees are assigned based on hash of their login
	RolloutPercent int

	// Batch targeting (e.g., "found-2504", "found-2510")
	// Empty means all batches
	TargetBatches []string

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	Login   string // trainee GitHub login
	Batch   string // batch slug (e.g., "found-2504")
	IsStaff bool
}

// Predefined feature flag names.
const (
	// === Notification Features ===
	FeatureNotifyAtRisk           = "notify.at_risk"           // trainee crossed the at-risk line
	FeatureNotifyStatusChange     = "notify.status_change"     // trainee status transitions
	FeatureNotifyReviewerInactive = "notify.reviewer_inactive" // reviewer went quiet
	FeatureNotifyRunFailed        = "notify.run_failed"        // reconciliation run failed

	// === Report Features ===
	FeatureReportUnmatchedSection = "report.unmatched_section" // unmatched events in batch report
	FeatureReportReviewerPublic   = "report.reviewer_public"   // reviewer report without staff token

	// === Experimental Features ===
	FeatureExperimentalTrends = "experimental.trends" // score trend charts across runs
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:       make(map[string]*Feature),
		loginOverrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureNotifyAtRisk] = &Feature{
		Name:           FeatureNotifyAtRisk,
		Description:    "Notify staff when a trainee crosses the at-risk line",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyStatusChange] = &Feature{
		Name:           FeatureNotifyStatusChange,
		Description:    "Notify staff on trainee status transitions",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyReviewerInactive] = &Feature{
		Name:           FeatureNotifyReviewerInactive,
		Description:    "Notify staff when a reviewer goes quiet",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyRunFailed] = &Feature{
		Name:           FeatureNotifyRunFailed,
		Description:    "Notify staff when a reconciliation run fails",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureReportUnmatchedSection] = &Feature{
		Name:           FeatureReportUnmatchedSection,
		Description:    "Include unmatched events in the batch report",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureReportReviewerPublic] = &Feature{
		Name:           FeatureReportReviewerPublic,
		Description:    "Serve the reviewer report without a staff token (details hidden)",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureExperimentalTrends] = &Feature{
		Name:           FeatureExperimentalTrends,
		Description:    "Score trend charts across reconciliation runs",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_NOTIFY_AT_RISK=true
// Example: FEATURE_EXPERIMENTAL_TRENDS=25 (25% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "notify.at_risk" -> "FEATURE_NOTIFY_AT_RISK"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check login overrides first
	if ctx != nil && ctx.Login != "" {
		if overrides, ok := ff.loginOverrides[ctx.Login]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Staff get all features
	if ctx != nil && ctx.IsStaff {
		return true
	}

	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check batch targeting
	if len(feature.TargetBatches) > 0 && ctx != nil && ctx.Batch != "" {
		batchMatch := false
		for _, b := range feature.TargetBatches {
			if b == ctx.Batch {
				batchMatch = true
				break
			}
		}
		if !batchMatch {
			return false
		}
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.Login != "" {
		return ff.isInRollout(ctx.Login, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a trainee is in the rollout percentage.
// Uses consistent hashing so trainees stay in their bucket.
func (ff *FeatureFlags) isInRollout(login string, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(login))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// SetLoginOverride sets a feature override for a specific trainee.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetLoginOverride(login string, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.loginOverrides[login]; !ok {
		ff.loginOverrides[login] = make(map[string]bool)
	}
	ff.loginOverrides[login][featureName] = enabled
}

// ClearLoginOverrides removes all overrides for a trainee.
func (ff *FeatureFlags) ClearLoginOverrides(login string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.loginOverrides, login)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Convenience methods for common checks ---

// NotificationsEnabled checks if any staff notifications are enabled.
func (ff *FeatureFlags) NotificationsEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureNotifyAtRisk, ctx) ||
		ff.IsEnabled(FeatureNotifyStatusChange, ctx) ||
		ff.IsEnabled(FeatureNotifyReviewerInactive, ctx) ||
		ff.IsEnabled(FeatureNotifyRunFailed, ctx)
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
