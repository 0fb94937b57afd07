package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Enums ────────────────────

// Capability is one asset type or metadata field a provider may supply.
type Capability string

const (
	CapPoster    Capability = "poster"
	CapFanart    Capability = "fanart"
	CapBanner    Capability = "banner"
	CapClearLogo Capability = "clearlogo"
	CapTrailer   Capability = "trailer"
	CapTitle     Capability = "title"
	CapPlot      Capability = "plot"
	CapRating    Capability = "rating"
	CapGenres    Capability = "genres"
)

// AllCapabilities lists every capability the engine understands, assets first.
var AllCapabilities = []Capability{
	CapPoster, CapFanart, CapBanner, CapClearLogo, CapTrailer,
	CapTitle, CapPlot, CapRating, CapGenres,
}

// IsAsset reports whether the capability is an asset (image/video) rather
// than a metadata field.
func (c Capability) IsAsset() bool {
	switch c {
	case CapPoster, CapFanart, CapBanner, CapClearLogo, CapTrailer:
		return true
	}
	return false
}

// RequiresProbe reports whether candidates for this capability must pass an
// availability probe before they may be committed.
func (c Capability) RequiresProbe() bool {
	return c == CapTrailer
}

// Valid reports whether the capability is one the engine understands.
func (c Capability) Valid() bool {
	for _, k := range AllCapabilities {
		if c == k {
			return true
		}
	}
	return false
}

// ErrorClass classifies a failed provider call or candidate probe.
type ErrorClass string

const (
	ErrClassTimeout       ErrorClass = "timeout"
	ErrClassRateLimited   ErrorClass = "rate_limited"
	ErrClassAuthError     ErrorClass = "auth_error"
	ErrClassNotFound      ErrorClass = "not_found"
	ErrClassRegionBlocked ErrorClass = "region_blocked"
	ErrClassFormatError   ErrorClass = "format_error"
	ErrClassUnavailable   ErrorClass = "unavailable"
	ErrClassUnknown       ErrorClass = "unknown"
)

// PolicyMode selects how the auto-selection policy resolves winners.
type PolicyMode string

const (
	PolicyBalanced PolicyMode = "balanced"
	PolicyCustom   PolicyMode = "custom"
)

func (m PolicyMode) Valid() bool {
	return m == PolicyBalanced || m == PolicyCustom
}

// BulkStatus is the lifecycle state of a bulk enrichment run.
type BulkStatus string

const (
	BulkIdle        BulkStatus = "idle"
	BulkRunning     BulkStatus = "running"
	BulkCompleted   BulkStatus = "completed"
	BulkRateLimited BulkStatus = "rate_limited"
	BulkFailed      BulkStatus = "failed"
)

// ──────────────────── Target ────────────────────

// Target is one media item the engine resolves providers against.
type Target struct {
	ID      uuid.UUID `json:"id" db:"id"`
	Title   string    `json:"title" db:"title"`
	Year    *int      `json:"year,omitempty" db:"year"`
	TMDBID  *string   `json:"tmdb_id,omitempty" db:"tmdb_id"`
	IMDBId  *string   `json:"imdb_id,omitempty" db:"imdb_id"`
	TVDBID  *string   `json:"tvdb_id,omitempty" db:"tvdb_id"`
	AddedAt time.Time `json:"added_at" db:"added_at"`
}

// ──────────────────── Candidates & results ────────────────────

// Candidate is one provider's offered value for a capability. Ephemeral:
// lives only inside an aggregation run and its cache entry.
type Candidate struct {
	ID         uuid.UUID  `json:"id"`
	Capability Capability `json:"capability"`
	Provider   string     `json:"provider"`
	URL        string     `json:"url,omitempty"`   // assets
	Value      string     `json:"value,omitempty"` // metadata fields
	Width      int        `json:"width,omitempty"`
	Height     int        `json:"height,omitempty"`
	Votes      int        `json:"votes,omitempty"`
	Language   string     `json:"language,omitempty"`
	Confidence float64    `json:"confidence,omitempty"` // provider-supplied, 0 if absent
	Score      *float64   `json:"score,omitempty"`      // nil until ranked
}

// ProviderOutcome records how one (provider, capability) call settled.
type ProviderOutcome struct {
	Provider   string     `json:"provider"`
	Capability Capability `json:"capability"`
	OK         bool       `json:"ok"`
	ErrorClass ErrorClass `json:"error_class,omitempty"`
	Candidates int        `json:"candidates"`
	Duration   float64    `json:"duration_ms"`
}

// Recommendation is the top-ranked candidate for one capability plus the
// rule that decided it.
type Recommendation struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Provider    string    `json:"provider"`
	Score       float64   `json:"score"`
	Reason      string    `json:"reason"`
}

// AggregationResult is the outcome of one full fan-out for a target.
// Superseded whole on refresh, never patched in place.
type AggregationResult struct {
	TargetID        uuid.UUID                     `json:"target_id"`
	Capabilities    []Capability                  `json:"capabilities"`
	Outcomes        []ProviderOutcome             `json:"outcomes"`
	Candidates      []Candidate                   `json:"candidates"`
	Recommendations map[Capability]Recommendation `json:"recommendations"`
	FetchedAt       time.Time                     `json:"fetched_at"`
	ExpiresAt       time.Time                     `json:"expires_at"`
}

// Candidate returns the candidate with the given id, or nil.
func (r *AggregationResult) Candidate(id uuid.UUID) *Candidate {
	for i := range r.Candidates {
		if r.Candidates[i].ID == id {
			return &r.Candidates[i]
		}
	}
	return nil
}

// RateLimitedProviders returns the distinct providers that settled as
// rate-limited in this run, in outcome order.
func (r *AggregationResult) RateLimitedProviders() []string {
	var names []string
	seen := make(map[string]bool)
	for _, o := range r.Outcomes {
		if !o.OK && o.ErrorClass == ErrClassRateLimited && !seen[o.Provider] {
			seen[o.Provider] = true
			names = append(names, o.Provider)
		}
	}
	return names
}

// CapabilityKey renders a capability set as a canonical cache-key fragment:
// sorted, comma-joined.
func CapabilityKey(caps []Capability) string {
	ss := make([]string, len(caps))
	for i, c := range caps {
		ss[i] = string(c)
	}
	sort.Strings(ss)
	return strings.Join(ss, ",")
}

// ──────────────────── Selection ────────────────────

// SelectionState is the committed candidate for one (target, capability)
// pair. Locked selections are never overwritten by automation.
type SelectionState struct {
	TargetID   uuid.UUID  `json:"target_id" db:"target_id"`
	Capability Capability `json:"capability" db:"capability"`
	Provider   string     `json:"provider" db:"provider"`
	URL        string     `json:"url,omitempty" db:"url"`
	Value      string     `json:"value,omitempty" db:"value"`
	Locked     bool       `json:"locked" db:"locked"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// ──────────────────── Bulk run ────────────────────

// BulkRun is the persisted record of one library-wide enrichment pass.
// At most one run may be in the running state; the row is the source of
// truth, not any in-process flag.
type BulkRun struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	Status               BulkStatus `json:"status" db:"status"`
	Total                int        `json:"total" db:"total"`
	Processed            int        `json:"processed" db:"processed"`
	Skipped              int        `json:"skipped" db:"skipped"`
	Failed               int        `json:"failed" db:"failed"`
	CurrentTarget        *string    `json:"current_target,omitempty" db:"current_target"`
	RateLimitedProviders []string   `json:"rate_limited_providers" db:"rate_limited_providers"`
	StartedAt            time.Time  `json:"started_at" db:"started_at"`
	FinishedAt           *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// Active reports whether the run still holds the single-run slot.
func (b *BulkRun) Active() bool {
	return b.Status == BulkRunning
}

// Resumable reports whether a new trigger should continue this run's
// checkpoint instead of starting from zero.
func (b *BulkRun) Resumable() bool {
	return b.Status == BulkRateLimited
}
