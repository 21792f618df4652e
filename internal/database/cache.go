package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/careroute/careroute/internal/classifier"
	"github.com/careroute/careroute/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Cache key formats
const (
	ClassificationKey = "classification:%s"
	SystemHealthKey   = "system:health"
)

type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewCache(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger,
	}
}

// GetClassification returns a cached classification. A miss is reported as redis.Nil.
func (c *Cache) GetClassification(ctx context.Context, key string) (*classifier.Classification, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf(ClassificationKey, key)).Bytes()
	if err != nil {
		return nil, err
	}

	var result classifier.Classification
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classification: %w", err)
	}
	return &result, nil
}

func (c *Cache) SetClassification(ctx context.Context, key string, result classifier.Classification, expiration time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal classification: %w", err)
	}
	return c.client.Set(ctx, fmt.Sprintf(ClassificationKey, key), data, expiration).Err()
}

func (c *Cache) CacheSystemHealth(ctx context.Context, health []models.SystemHealth, expiration time.Duration) error {
	data, err := json.Marshal(health)
	if err != nil {
		return fmt.Errorf("failed to marshal system health: %w", err)
	}

	return c.client.Set(ctx, SystemHealthKey, data, expiration).Err()
}

func (c *Cache) GetCachedSystemHealth(ctx context.Context) ([]models.SystemHealth, error) {
	data, err := c.client.Get(ctx, SystemHealthKey).Bytes()
	if err != nil {
		return nil, err
	}

	var health []models.SystemHealth
	err = json.Unmarshal(data, &health)
	return health, err
}
