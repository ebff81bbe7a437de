package fleet

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
)

// RedisMirror fans driver writes out to a Redis GEO set plus a metadata hash
// per driver, so anything speaking Redis can query live positions.
type RedisMirror struct {
	client *redis.Client
	key    string
}

func NewRedisMirror(addr, password, key string) *RedisMirror {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisMirror{client: c, key: key}
}

func (m *RedisMirror) Publish(d models.Driver) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _ = m.client.GeoAdd(ctx, m.key, &redis.GeoLocation{
		Longitude: d.Position.Lng,
		Latitude:  d.Position.Lat,
		Name:      d.ID,
	}).Result()
	_ = m.client.HSet(ctx, metaKey(d.ID), map[string]interface{}{
		"name":    d.Name,
		"status":  string(d.Status),
		"rating":  strconv.FormatFloat(d.Rating, 'f', 1, 64),
		"vehicle": d.VehicleID,
		"updated": time.Now().Format(time.RFC3339),
	}).Err()
}

func (m *RedisMirror) Close() error { return m.client.Close() }

func metaKey(id string) string { return "driver:meta:" + id }
