package geo

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Member is one indexed entity with its distance from the query point.
type Member struct {
	ID             string
	DistanceMeters float64
}

// Index is the nearest-neighbor capability the clinic matcher consumes:
// members within radius of a point, ordered by distance ascending. The
// matcher does not care how the index is implemented.
type Index interface {
	Add(ctx context.Context, id string, lat, lng float64) error
	Search(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]Member, error)
}

type point struct {
	lat, lng float64
}

// MemoryIndex is a haversine scan over an in-process map. Suitable for tests
// and single-node dev runs; production uses the Redis GEO index.
type MemoryIndex struct {
	mu     sync.RWMutex
	points map[string]point
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{points: make(map[string]point)}
}

func (m *MemoryIndex) Add(ctx context.Context, id string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[id] = point{lat: lat, lng: lng}
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var members []Member
	for id, p := range m.points {
		d := haversineMeters(lat, lng, p.lat, p.lng)
		if d <= radiusMeters {
			members = append(members, Member{ID: id, DistanceMeters: d})
		}
	}

	sort.Slice(members, func(i, j int) bool {
		if members[i].DistanceMeters != members[j].DistanceMeters {
			return members[i].DistanceMeters < members[j].DistanceMeters
		}
		return members[i].ID < members[j].ID
	})

	if limit > 0 && len(members) > limit {
		members = members[:limit]
	}
	return members, nil
}

const earthRadiusMeters = 6371000

func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
