// Package models defines the domain entities of the situational-awareness
// platform: the GLOBAL event/cluster plane shared by every organization, and
// the ORG-SCOPED dossier/watchlist/feedback/audit/settings plane that each
// tenant owns exclusively.
package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// StringArray adapts a Go []string to Postgres text[] columns. Kept close to
// the teacher's implementation: a thin Value()/Scan() pair around
// lib/pq's array wire format.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	quoted := make([]string, len(a))
	for i, s := range a {
		quoted[i] = `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return "{" + strings.Join(quoted, ",") + "}", nil
}

func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("models: unsupported Scan type %T for StringArray", value)
	}
	raw = strings.TrimPrefix(raw, "{")
	raw = strings.TrimSuffix(raw, "}")
	if raw == "" {
		*a = StringArray{}
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make(StringArray, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimPrefix(p, `"`)
		p = strings.TrimSuffix(p, `"`)
		p = strings.ReplaceAll(p, `\"`, `"`)
		out = append(out, p)
	}
	*a = out
	return nil
}

// Role is a Membership's permission level within an Organization.
type Role string

const (
	RoleViewer  Role = "viewer"
	RoleAnalyst Role = "analyst"
	RoleAdmin   Role = "admin"
)

// Organization is the tenant boundary. Every org-scoped entity carries an
// OrgID that every store query must filter on.
type Organization struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// User is a login identity. Users may belong to more than one Organization
// through separate Membership rows.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Membership binds a User to an Organization at a Role.
type Membership struct {
	ID        string    `db:"id" json:"id"`
	OrgID     string    `db:"org_id" json:"org_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SourceType enumerates the kinds of ingest origin. Only "rss" has a
// concrete SourceFetcher implementation today; the rest are named contract
// points for future fetchers (see internal/ingest.SourceFetcher).
type SourceType string

const (
	SourceTypeRSS          SourceType = "rss"
	SourceTypeNewsAPI      SourceType = "news_api"
	SourceTypeGovFeed      SourceType = "gov_feed"
	SourceTypeCrisisFeed   SourceType = "crisis_feed"
	SourceTypeNGOFeed      SourceType = "ngo_feed"
	SourceTypeSocialPublic SourceType = "social_public"
)

// Source is a configured ingest origin, GLOBAL (not org-scoped): all
// organizations see events derived from the same source pool.
type Source struct {
	ID              string     `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Type            SourceType `db:"type" json:"type"`
	URL             string     `db:"url" json:"url"`
	FetchIntervalS  int        `db:"fetch_interval_seconds" json:"fetch_interval_seconds"`
	Enabled         bool       `db:"enabled" json:"enabled"`
	ConsecutiveFail int        `db:"consecutive_failures" json:"consecutive_failures"`
	BreakerOpenedAt *time.Time `db:"breaker_opened_at" json:"breaker_opened_at,omitempty"`
	LastFetchedAt   *time.Time `db:"last_fetched_at" json:"last_fetched_at,omitempty"`
	// TrustScore feeds the confidence_score formula's source_trust term
	// (spec.md §4.2); defaults to 0.5 for sources an operator hasn't rated.
	TrustScore float64   `db:"trust_score" json:"trust_score"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Sentiment is the deterministic/LLM sentiment classification for an event.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Entity is one named thing extracted from an event's text, tagged with
// which of the five enrichment axes it belongs to (spec.md §3: "a
// structured bag with five axes: locations[], organizations[], groups[],
// topics[], keywords[]").
type Entity struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// The five entity axes spec.md §3 names for an event's entity bag.
const (
	EntityLocation     = "location"
	EntityOrganization = "organization"
	EntityGroup        = "group"
	EntityTopic        = "topic"
	EntityKeyword      = "keyword"
)

// Category is the 12-value enrichment category enum from spec.md §3.
type Category string

const (
	CategoryProtest           Category = "protest"
	CategoryCrime             Category = "crime"
	CategoryReligiousFreedom  Category = "religious_freedom"
	CategoryCulturalTension   Category = "cultural_tension"
	CategoryPolitical         Category = "political"
	CategoryInfrastructure    Category = "infrastructure"
	CategoryHealth            Category = "health"
	CategoryMigration         Category = "migration"
	CategoryEconomic          Category = "economic"
	CategoryWeather           Category = "weather"
	CategoryCommunityEvent    Category = "community_event"
	CategoryOther             Category = "other"
)

// AllCategories lists the enum in a stable order, used wherever the full
// set must be enumerated (fallback keyword scan, dashboard breakdowns).
var AllCategories = []Category{
	CategoryProtest, CategoryCrime, CategoryReligiousFreedom, CategoryCulturalTension,
	CategoryPolitical, CategoryInfrastructure, CategoryHealth, CategoryMigration,
	CategoryEconomic, CategoryWeather, CategoryCommunityEvent, CategoryOther,
}

// SafetyCategories is the set that boosts relevance_score per spec.md §4.2.
var SafetyCategories = map[Category]bool{
	CategoryCrime:             true,
	CategoryProtest:           true,
	CategoryReligiousFreedom:  true,
	CategoryHealth:            true,
	CategoryMigration:         true,
	CategoryInfrastructure:    true,
}

// Event is a single ingested, enriched item of information. Events are
// GLOBAL: shared read-only across every organization.
type Event struct {
	ID              string      `db:"id" json:"id"`
	SourceID        string      `db:"source_id" json:"source_id"`
	DedupHash       string      `db:"dedup_hash" json:"-"`
	Title           string      `db:"title" json:"title"`
	RawText         string      `db:"raw_text" json:"raw_text"`
	URL             string      `db:"url" json:"url"`
	PublishedAt     time.Time   `db:"published_at" json:"published_at"`
	ClockSkewFlag   bool        `db:"clock_skew_flag" json:"clock_skew_flag"`
	Summary         string      `db:"summary" json:"summary"`
	Category        Category    `db:"category" json:"category"`
	Entities        []Entity    `db:"-" json:"entities"`
	EntitiesRaw     []byte      `db:"entities" json:"-"`
	Sentiment       Sentiment   `db:"sentiment" json:"sentiment"`
	Locations       StringArray `db:"locations" json:"locations"`
	Latitude        *float64    `db:"latitude" json:"latitude,omitempty"`
	Longitude       *float64    `db:"longitude" json:"longitude,omitempty"`
	ConfidenceScore float64     `db:"confidence_score" json:"confidence_score"`
	RelevanceScore  float64     `db:"relevance_score" json:"relevance_score"`
	PriorityScore   float64     `db:"priority_score" json:"priority_score"`
	EnrichmentDegraded bool     `db:"enrichment_degraded" json:"enrichment_degraded"`
	// SourceCount and MultiSourceBoost are fusion outputs (spec.md §3,
	// §4.4): every member of a cluster is stamped with the cluster's
	// member_count and whether it has crossed the multi-source threshold.
	SourceCount      int     `db:"source_count" json:"source_count"`
	MultiSourceBoost bool    `db:"multi_source_boost" json:"multi_source_boost"`
	ClusterID       *string     `db:"cluster_id" json:"cluster_id,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	// DeletedAt marks a retention-swept event (spec.md §4.1 soft delete):
	// hidden from every read path but kept until the grace window for
	// physical purge elapses.
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// EntityTexts returns the lowercased text of every entity on e whose axis
// is in types, used by the fusion engine's entity-overlap term and the
// dossier matcher's per-axis equality checks.
func (e Event) EntityTexts(types ...string) []string {
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []string
	for _, ent := range e.Entities {
		if want[ent.Type] {
			out = append(out, strings.ToLower(strings.TrimSpace(ent.Text)))
		}
	}
	return out
}

// StabilityTrend is the direction of a cluster's growth over time,
// spec.md §3's enum.
type StabilityTrend string

const (
	TrendImproving StabilityTrend = "improving"
	TrendStable    StabilityTrend = "stable"
	TrendWorsening StabilityTrend = "worsening"
	TrendUnknown   StabilityTrend = "unknown"
)

// Cluster groups related Events produced by the Fusion Engine. GLOBAL.
type Cluster struct {
	ID               string         `db:"id" json:"id"`
	// CanonicalEventID is the member with the highest confidence_score,
	// whose Title/Summary the cluster's merged record is taken from
	// (spec.md §4.4 merged_summary rule).
	CanonicalEventID string         `db:"canonical_event_id" json:"canonical_event_id"`
	Title            string         `db:"title" json:"title"`
	Summary          string         `db:"summary" json:"summary"`
	MemberCount      int            `db:"member_count" json:"member_count"`
	TopPriority      float64        `db:"top_priority" json:"top_priority"`
	FirstEventAt     time.Time      `db:"first_event_at" json:"first_event_at"`
	LastEventAt      time.Time      `db:"last_event_at" json:"last_event_at"`
	StabilityTrend   StabilityTrend `db:"stability_trend" json:"stability_trend"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// DossierSubjectType constrains what a Dossier tracks.
type DossierSubjectType string

const (
	SubjectLocation DossierSubjectType = "location"
	SubjectOrg      DossierSubjectType = "organization"
	SubjectGroup    DossierSubjectType = "group"
	SubjectTopic    DossierSubjectType = "topic"
	SubjectPerson   DossierSubjectType = "person"
)

// CategoryBreakdown counts matched events per category within a dossier's
// trailing window.
type CategoryBreakdown map[Category]int

// SentimentBreakdown counts matched events per sentiment within a
// dossier's trailing window.
type SentimentBreakdown map[Sentiment]int

// Dossier is an org-scoped saved profile the Dossier Matcher evaluates
// incoming events against (spec.md §3). Statistics (EventCount, Count7d,
// Count30d, the breakdowns) are derived, never hand-edited — owned by the
// DossierMatcher and the periodic stats-refresh tick (spec.md invariant 4).
type Dossier struct {
	ID          string             `db:"id" json:"id"`
	OrgID       string             `db:"org_id" json:"org_id"`
	Name        string             `db:"name" json:"name"`
	SubjectType DossierSubjectType `db:"subject_type" json:"subject_type"`
	IsOfficial  bool               `db:"is_official" json:"is_official"`
	Description string             `db:"description" json:"description"`
	Aliases     StringArray        `db:"aliases" json:"aliases"`
	Tags        StringArray        `db:"tags" json:"tags"`
	Notes       string             `db:"notes" json:"notes"`
	Keywords    StringArray        `db:"keywords" json:"keywords"`
	Locations   StringArray        `db:"locations" json:"locations"`
	// Latitude/Longitude are an optional known coordinate for location
	// dossiers, checked by the matcher's 25km geo-proximity OR-clause
	// (spec.md §4.5) alongside the name/alias match.
	Latitude  *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64 `db:"longitude" json:"longitude,omitempty"`

	EventCount  int        `db:"event_count" json:"event_count"`
	LastEventAt *time.Time `db:"last_event_at" json:"last_event_at,omitempty"`
	Count7d     int        `db:"count_7d" json:"count_7d"`
	Count30d    int        `db:"count_30d" json:"count_30d"`

	CategoryBreakdownRaw  []byte             `db:"category_breakdown" json:"-"`
	CategoryBreakdown     CategoryBreakdown  `db:"-" json:"category_breakdown"`
	SentimentBreakdownRaw []byte             `db:"sentiment_breakdown" json:"-"`
	SentimentBreakdown    SentimentBreakdown `db:"-" json:"sentiment_breakdown"`

	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Watchlist is an org-scoped saved query over events/clusters.
type Watchlist struct {
	ID         string      `db:"id" json:"id"`
	OrgID      string      `db:"org_id" json:"org_id"`
	Name       string      `db:"name" json:"name"`
	Categories StringArray `db:"categories" json:"categories"`
	Keywords   StringArray `db:"keywords" json:"keywords"`
	MinPriority float64    `db:"min_priority" json:"min_priority"`
	CreatedBy  string      `db:"created_by" json:"created_by"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// FeedbackVerdict is an analyst's judgment on an event's relevance.
type FeedbackVerdict string

const (
	FeedbackRelevant   FeedbackVerdict = "relevant"
	FeedbackIrrelevant FeedbackVerdict = "irrelevant"
	FeedbackDuplicate  FeedbackVerdict = "duplicate"
)

// EventFeedback is org-scoped analyst input on a GLOBAL event.
type EventFeedback struct {
	ID        string          `db:"id" json:"id"`
	OrgID     string          `db:"org_id" json:"org_id"`
	EventID   string          `db:"event_id" json:"event_id"`
	UserID    string          `db:"user_id" json:"user_id"`
	Verdict   FeedbackVerdict `db:"verdict" json:"verdict"`
	Note      string          `db:"note" json:"note"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// AuditAction enumerates the actions AuditRecord tracks, grouped by domain
// area in the same spirit as a gazetteer of permitted verbs.
type AuditAction string

const (
	AuditCreate        AuditAction = "create"
	AuditUpdate        AuditAction = "update"
	AuditDelete        AuditAction = "delete"
	AuditView          AuditAction = "view"
	AuditExport        AuditAction = "export"
	AuditLogin         AuditAction = "login"
	AuditLogout        AuditAction = "logout"
	AuditAccessDenied  AuditAction = "access_denied"
)

// AuditRecord is an org-scoped, append-only log entry. UserID is nullable:
// deleting a user anonymizes their historical audit rows (spec.md §3
// invariant 7) via ON DELETE SET NULL rather than deleting the rows
// themselves; UserEmail is a snapshot taken at write time so the trail
// still shows who acted after the account is gone.
type AuditRecord struct {
	ID         string      `db:"id" json:"id"`
	OrgID      string      `db:"org_id" json:"org_id"`
	UserID     *string     `db:"user_id" json:"user_id,omitempty"`
	UserEmail  string      `db:"user_email" json:"user_email,omitempty"`
	Action     AuditAction `db:"action" json:"action"`
	EntityType string      `db:"entity_type" json:"entity_type"`
	EntityID   string      `db:"entity_id" json:"entity_id"`
	Detail     string      `db:"detail" json:"detail"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// OrgSettings is the one-row-per-org configuration record.
type OrgSettings struct {
	OrgID                 string      `db:"org_id" json:"org_id"`
	AlertCategories       StringArray `db:"alert_categories" json:"alert_categories"`
	AlertSentimentTypes   StringArray `db:"alert_sentiment_types" json:"alert_sentiment_types"`
	HighPriorityThreshold float64     `db:"high_priority_threshold" json:"high_priority_threshold"`
	EmailAlertsEnabled    bool        `db:"email_alerts_enabled" json:"email_alerts_enabled"`
	// EventRetentionDays overrides the process-wide default retention
	// window (nil means "use the global default"); events are GLOBAL so
	// this only narrows, never widens, how long this org's view keeps them.
	EventRetentionDays *int      `db:"event_retention_days" json:"event_retention_days,omitempty"`
	AuditRetentionDays int       `db:"audit_retention_days" json:"audit_retention_days"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}
