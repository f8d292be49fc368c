package db

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mezonai/tokenledger/logx"
	"github.com/redis/go-redis/v9"
)

// indexedPrefixes are key prefixes followed by a big-endian uint64 index
var indexedPrefixes = []string{"tx:", "archive_tx:"}

// RedisProvider implements IterableProvider for Redis
type RedisProvider struct {
	client *redis.Client
	ctx    context.Context
}

// convertKeyToHumanReadable renders binary index keys as zero-padded decimals so
// redis keys stay readable and still sort in index order
func convertKeyToHumanReadable(key []byte) string {
	keyStr := string(key)

	for _, prefix := range indexedPrefixes {
		if strings.HasPrefix(keyStr, prefix) && len(key) == len(prefix)+8 {
			index := binary.BigEndian.Uint64(key[len(prefix):])
			return fmt.Sprintf("%s%020d", prefix, index)
		}
	}

	return keyStr
}

// NewRedisProvider connects to the redis server at address, using logical database dbIndex
func NewRedisProvider(address string, dbIndex int) (*RedisProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr: address,
		DB:   dbIndex,
	})

	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisProvider{
		client: client,
		ctx:    ctx,
	}, nil
}

func (p *RedisProvider) Get(key []byte) ([]byte, error) {
	value, err := p.client.Get(p.ctx, convertKeyToHumanReadable(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

// GetBatch uses MGET so all values come from one round trip
func (p *RedisProvider) GetBatch(keys [][]byte) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = convertKeyToHumanReadable(key)
	}

	values, err := p.client.MGet(p.ctx, redisKeys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		result[string(keys[i])] = []byte(s)
	}
	return result, nil
}

func (p *RedisProvider) Put(key, value []byte) error {
	redisKey := convertKeyToHumanReadable(key)
	logx.Debug("REDIS", fmt.Sprintf("Put key: %s value length: %d", redisKey, len(value)))
	return p.client.Set(p.ctx, redisKey, value, 0).Err()
}

func (p *RedisProvider) Delete(key []byte) error {
	return p.client.Del(p.ctx, convertKeyToHumanReadable(key)).Err()
}

func (p *RedisProvider) Has(key []byte) (bool, error) {
	count, err := p.client.Exists(p.ctx, convertKeyToHumanReadable(key)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p *RedisProvider) Close() error {
	return p.client.Close()
}

// Batch returns a MULTI/EXEC pipeline so the writes apply atomically
func (p *RedisProvider) Batch() DatabaseBatch {
	return &RedisBatch{
		client: p.client,
		ctx:    p.ctx,
		pipe:   p.client.TxPipeline(),
	}
}

// IteratePrefix collects matching keys with SCAN, then visits them in key order
func (p *RedisProvider) IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error {
	pattern := string(prefix) + "*"
	var (
		cursor uint64
		all    []string
	)
	for {
		keys, newCursor, err := p.client.Scan(p.ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return err
		}
		all = append(all, keys...)
		cursor = newCursor
		if cursor == 0 {
			break
		}
	}
	sort.Strings(all)

	for _, k := range all {
		val, err := p.client.Get(p.ctx, k).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return err
		}
		if !fn([]byte(k), val) {
			return nil
		}
	}
	return nil
}

// RedisBatch implements DatabaseBatch for Redis
type RedisBatch struct {
	client *redis.Client
	ctx    context.Context
	pipe   redis.Pipeliner
}

func (b *RedisBatch) Put(key, value []byte) {
	b.pipe.Set(b.ctx, convertKeyToHumanReadable(key), value, 0)
}

func (b *RedisBatch) Delete(key []byte) {
	b.pipe.Del(b.ctx, convertKeyToHumanReadable(key))
}

func (b *RedisBatch) Write() error {
	_, err := b.pipe.Exec(b.ctx)
	return err
}

func (b *RedisBatch) Reset() {
	b.pipe.Discard()
	b.pipe = b.client.TxPipeline()
}

func (b *RedisBatch) Close() error {
	b.pipe.Discard()
	return nil
}
