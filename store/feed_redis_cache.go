package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
)

const (
	openRequestsKey = "blood-requests:open"
	openRequestsTTL = 30 * time.Second
)

// FeedRedisCache keeps the unfiltered open-request feed hot for the browse
// endpoint. Entries expire quickly and are dropped on every feed mutation, so
// a stale read window never outlives the TTL.
type FeedRedisCache struct {
	client *redis.Client
	tracer trace.Tracer
}

func NewFeedRedisCache(client *redis.Client, tracer trace.Tracer) domain.FeedCache {
	return &FeedRedisCache{
		client: client,
		tracer: tracer,
	}
}

func (cache *FeedRedisCache) GetOpenRequests(ctx context.Context) ([]domain.OpenBloodRequest, error) {
	_, span := cache.tracer.Start(ctx, "FeedRedisCache.GetOpenRequests")
	defer span.End()

	raw, err := cache.client.Get(openRequestsKey).Result()
	if err != nil {
		if err != redis.Nil {
			span.SetStatus(codes.Error, "Error getting cached feed")
		}
		return nil, err
	}

	var requests []domain.OpenBloodRequest
	if err := json.Unmarshal([]byte(raw), &requests); err != nil {
		span.SetStatus(codes.Error, "Error decoding cached feed")
		return nil, err
	}
	return requests, nil
}

func (cache *FeedRedisCache) SetOpenRequests(ctx context.Context, requests []domain.OpenBloodRequest) error {
	_, span := cache.tracer.Start(ctx, "FeedRedisCache.SetOpenRequests")
	defer span.End()

	raw, err := json.Marshal(requests)
	if err != nil {
		span.SetStatus(codes.Error, "Error encoding feed")
		return err
	}

	result := cache.client.Set(openRequestsKey, raw, openRequestsTTL)
	if result.Err() != nil {
		span.SetStatus(codes.Error, "Error posting cached feed")
		return result.Err()
	}
	return nil
}

func (cache *FeedRedisCache) Invalidate(ctx context.Context) error {
	_, span := cache.tracer.Start(ctx, "FeedRedisCache.Invalidate")
	defer span.End()

	result := cache.client.Del(openRequestsKey)
	if result.Err() != nil {
		span.SetStatus(codes.Error, "Error deleting cached feed")
		return result.Err()
	}
	return nil
}
