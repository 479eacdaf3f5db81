package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps each collection in a hash {version, payload} and uses
// WATCH/MULTI so a write only lands if the hash is unchanged since the
// version check.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if prefix == "" {
		prefix = "bounty-board"
	}
	return &RedisStore{Client: client, Prefix: prefix}, nil
}

func (s *RedisStore) key(collection string) string {
	return s.Prefix + ":" + collection
}

func (s *RedisStore) ReadAll(ctx context.Context, collection string) (Snapshot, error) {
	if err := checkCollection(collection); err != nil {
		return Snapshot{}, err
	}
	version, payload, err := readHash(ctx, s.Client, s.key(collection))
	if err != nil {
		return Snapshot{}, unavailable("read "+collection, err)
	}
	records, err := unmarshalPayload([]byte(payload))
	if err != nil {
		return Snapshot{}, unavailable("decode "+collection, err)
	}
	return Snapshot{Records: records, Version: version}, nil
}

func (s *RedisStore) WriteAll(ctx context.Context, collection string, records []json.RawMessage, expected Version) (Version, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	payload, err := marshalPayload(records)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", collection, err)
	}

	key := s.key(collection)
	var next Version
	err = s.Client.Watch(ctx, func(tx *redis.Tx) error {
		current, _, err := readHash(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != expected {
			return ErrConflict
		}

		var n int64 = 1
		if current != "" {
			prev, err := strconv.ParseInt(string(current), 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt version %q: %w", current, err)
			}
			n = prev + 1
		}
		next = Version(strconv.FormatInt(n, 10))

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "version", string(next), "payload", string(payload))
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, ErrConflict), errors.Is(err, redis.TxFailedErr):
		return "", ErrConflict
	default:
		return "", unavailable("write "+collection, err)
	}
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}

type hashGetter interface {
	HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
}

func readHash(ctx context.Context, c hashGetter, key string) (Version, string, error) {
	vals, err := c.HMGet(ctx, key, "version", "payload").Result()
	if err != nil {
		return "", "", err
	}
	version, _ := vals[0].(string)
	payload, _ := vals[1].(string)
	return Version(version), payload, nil
}
