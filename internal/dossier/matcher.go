// Package dossier implements the Dossier Matcher from spec.md §4.5:
// evaluating an incoming event against every organization's saved
// dossiers and recording matches/stats.
package dossier

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/harrowgate/sitrep/internal/apierr"
	"github.com/harrowgate/sitrep/internal/models"
)

// geoProximityKm is the radius within which a location dossier matches an
// event by coordinates alone, independent of name/alias overlap (spec.md
// §4.5).
const geoProximityKm = 25.0

// Store is the subset of store.Store the matcher needs.
type Store interface {
	AllDossiers(ctx context.Context) ([]models.Dossier, error)
	RecordDossierMatch(ctx context.Context, dossierID string, at time.Time) error
}

// Matcher evaluates events against every org's dossiers.
type Matcher struct {
	store Store
}

func NewMatcher(store Store) *Matcher {
	return &Matcher{store: store}
}

// MatchResult names which dossiers matched an event, carried back to the
// ingest pipeline so AlertTriggered can be evaluated immediately (the
// supplemented control-flow step documented in SPEC_FULL.md).
type MatchResult struct {
	DossierID string
	OrgID     string
}

// Match evaluates ev against every dossier and records matches, returning
// the matched dossier/org pairs.
func (m *Matcher) Match(ctx context.Context, ev *models.Event) ([]MatchResult, error) {
	dossiers, err := m.store.AllDossiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("dossier: load dossiers: %w", err)
	}

	var matches []MatchResult
	for _, d := range dossiers {
		if !matches1(d, ev) {
			continue
		}
		if err := m.store.RecordDossierMatch(ctx, d.ID, time.Now().UTC()); err != nil {
			return matches, fmt.Errorf("dossier: record match: %w", err)
		}
		matches = append(matches, MatchResult{DossierID: d.ID, OrgID: d.OrgID})
	}
	return matches, nil
}

// matches1 applies the subject-type-specific matching rule from
// spec.md §4.5. Location dossiers match on name/alias overlap OR
// 25km geo-proximity between the dossier's known coordinate and the
// event's.
func matches1(d models.Dossier, ev *models.Event) bool {
	switch d.SubjectType {
	case models.SubjectLocation:
		names := append(append(models.StringArray{}, d.Locations...), d.Aliases...)
		return overlaps(names, ev.Locations) || geoNear(d, ev)
	case models.SubjectOrg, models.SubjectGroup, models.SubjectPerson:
		return containsAny(ev.Title+" "+ev.RawText, d.Keywords) || containsEntity(ev.Entities, d.Keywords)
	case models.SubjectTopic:
		return containsAny(ev.Title+" "+ev.RawText, d.Keywords) || containsString(d.Keywords, string(ev.Category))
	default:
		return false
	}
}

// geoNear reports whether d and ev both carry coordinates within
// geoProximityKm of each other.
func geoNear(d models.Dossier, ev *models.Event) bool {
	if d.Latitude == nil || d.Longitude == nil || ev.Latitude == nil || ev.Longitude == nil {
		return false
	}
	return haversineKm(*d.Latitude, *d.Longitude, *ev.Latitude, *ev.Longitude) <= geoProximityKm
}

// haversineKm returns the great-circle distance in kilometers between two
// lat/lon points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	sinLat, sinLon := math.Sin(dLat/2), math.Sin(dLon/2)
	h := sinLat*sinLat + math.Cos(rad(lat1))*math.Cos(rad(lat2))*sinLon*sinLon
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func containsString(list models.StringArray, target string) bool {
	for _, v := range list {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

func overlaps(a models.StringArray, b models.StringArray) bool {
	setB := make(map[string]bool, len(b))
	for _, v := range b {
		setB[strings.ToLower(v)] = true
	}
	for _, v := range a {
		if setB[strings.ToLower(v)] {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords models.StringArray) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func containsEntity(entities []models.Entity, keywords models.StringArray) bool {
	for _, e := range entities {
		for _, kw := range keywords {
			if strings.EqualFold(e.Text, kw) {
				return true
			}
		}
	}
	return false
}

// ValidateSubject enforces spec.md §9 Open Question 1: person dossiers
// must be rejected at creation unless is_official is set, rather than
// silently never matching at evaluation time.
func ValidateSubject(d *models.Dossier) error {
	if d.SubjectType == models.SubjectPerson && !d.IsOfficial {
		return apierr.Validation("person dossiers require is_official=true", nil)
	}
	return nil
}
