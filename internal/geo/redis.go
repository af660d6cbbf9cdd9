package geo

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const clinicGeoKey = "clinics:geo"

// RedisIndex backs the Index contract with a Redis GEO sorted set.
type RedisIndex struct {
	client *redis.Client
}

func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{client: client}
}

// NewRedisClient connects and pings, failing fast on a bad address.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *RedisIndex) Add(ctx context.Context, id string, lat, lng float64) error {
	err := r.client.GeoAdd(ctx, clinicGeoKey, &redis.GeoLocation{
		Name:      id,
		Latitude:  lat,
		Longitude: lng,
	}).Err()
	if err != nil {
		return fmt.Errorf("geoadd %s: %w", id, err)
	}
	return nil
}

func (r *RedisIndex) Search(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]Member, error) {
	locs, err := r.client.GeoSearchLocation(ctx, clinicGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Latitude:   lat,
			Longitude:  lng,
			Radius:     radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
			Count:      limit,
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geosearch: %w", err)
	}

	members := make([]Member, 0, len(locs))
	for _, loc := range locs {
		members = append(members, Member{
			ID:             loc.Name,
			DistanceMeters: loc.Dist,
		})
	}
	return members, nil
}
