package match

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/okanlawon/pawdispatch/internal/domain"
	"github.com/okanlawon/pawdispatch/internal/geo"
	"github.com/okanlawon/pawdispatch/internal/store"
)

// ErrNoCandidates means no clinic fell within the search radius. Terminal
// for the dispatch; the coordinator must not invoke any channel adapter.
var ErrNoCandidates = errors.New("no candidate clinics within radius")

// Candidate is a matched clinic with its distance from the emergency.
type Candidate struct {
	Clinic         *domain.Clinic
	DistanceMeters float64
}

// Matcher resolves notification recipients for a location. It consumes the
// spatial index contract and does not implement the search itself.
type Matcher struct {
	index   geo.Index
	clinics store.ClinicStore
}

func NewMatcher(index geo.Index, clinics store.ClinicStore) *Matcher {
	return &Matcher{index: index, clinics: clinics}
}

// FindCandidates returns clinics within radiusMeters of the point, ordered
// by distance ascending, ties broken partner-first then by clinic ID.
func (m *Matcher) FindCandidates(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]Candidate, error) {
	members, err := m.index.Search(ctx, lat, lng, radiusMeters, limit)
	if err != nil {
		return nil, fmt.Errorf("spatial search: %w", err)
	}
	if len(members) == 0 {
		return nil, ErrNoCandidates
	}

	ids := make([]string, 0, len(members))
	distances := make(map[string]float64, len(members))
	for _, mem := range members {
		ids = append(ids, mem.ID)
		distances[mem.ID] = mem.DistanceMeters
	}

	clinics, err := m.clinics.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load clinics: %w", err)
	}
	if len(clinics) == 0 {
		// Index members with no backing record are stale entries.
		return nil, ErrNoCandidates
	}

	candidates := make([]Candidate, 0, len(clinics))
	for _, c := range clinics {
		candidates = append(candidates, Candidate{
			Clinic:         c,
			DistanceMeters: distances[c.ID],
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.DistanceMeters != b.DistanceMeters {
			return a.DistanceMeters < b.DistanceMeters
		}
		if a.Clinic.Partner != b.Clinic.Partner {
			return a.Clinic.Partner
		}
		return a.Clinic.ID < b.Clinic.ID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}
