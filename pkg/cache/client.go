package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/evotools/evo-dispatch/environments"
	"github.com/evotools/evo-dispatch/internal/domain"
	"github.com/evotools/evo-dispatch/pkg/logger"
)

// Client keeps a short-lived record of successfully dispatched jobs so
// operators can inspect recent sends without hitting the job store.
type Client struct {
	client valkey.Client
}

const (
	sentJobKeyPrefix = "sent_job:"
	sentJobTTL       = 24 * time.Hour
)

func NewClient(cfg environments.CacheConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to cache: %w", err)
	}

	logger.Infof("Connected to cache (via Valkey client)")

	return &Client{client: client}, nil
}

func (c *Client) CacheSentJob(ctx context.Context, jobID, remoteID string, sentAt time.Time) error {
	entry := domain.SentJobCache{
		RemoteID: remoteID,
		SentAt:   sentAt,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	key := sentJobKeyPrefix + jobID

	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(sentJobTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache sent job: %w", err)
	}

	logger.Debugf("Cached job %s -> %s", jobID, remoteID)

	return nil
}

func (c *Client) GetCachedJob(ctx context.Context, jobID string) (*domain.SentJobCache, error) {
	key := sentJobKeyPrefix + jobID

	result := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached job: %w", result.Error())
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached job: %w", err)
	}

	var entry domain.SentJobCache
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	return &entry, nil
}

func (c *Client) GetAllCachedJobs(ctx context.Context) (map[string]*domain.SentJobCache, error) {
	pattern := sentJobKeyPrefix + "*"

	var keys []string
	var cursor uint64
	for {
		result := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build())
		if result.Error() != nil {
			return nil, fmt.Errorf("failed to scan cache keys: %w", result.Error())
		}

		scanResult, err := result.AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to parse scan result: %w", err)
		}

		keys = append(keys, scanResult.Elements...)
		cursor = scanResult.Cursor

		if cursor == 0 {
			break
		}
	}

	entries := make(map[string]*domain.SentJobCache)

	for _, key := range keys {
		getResult := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
		if getResult.Error() != nil {
			continue
		}

		data, err := getResult.ToString()
		if err != nil {
			continue
		}

		var entry domain.SentJobCache
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			continue
		}

		entries[strings.TrimPrefix(key, sentJobKeyPrefix)] = &entry
	}

	return entries, nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
