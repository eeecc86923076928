package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "kartlag:overlay:"

// RedisCache Redisを後段に使うResultCache実装。
// 複数インスタンス間でキャッシュを共有したいデプロイ向け（REDIS_ADDRで有効化）。
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache Redis接続を確認してキャッシュを作成
func NewRedisCache(ctx context.Context, addr, password string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redisへの接続に失敗: %w", err)
	}
	return &RedisCache{client: client, ttl: DefaultTTL}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (CachedResult, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return CachedResult{}, false
	}
	if err != nil {
		log.Printf("⚠️  Redisキャッシュの取得に失敗（キャッシュミス扱い）: %v", err)
		return CachedResult{}, false
	}
	var result CachedResult
	if err := json.Unmarshal(data, &result); err != nil {
		log.Printf("⚠️  Redisキャッシュのアンマーシャル失敗（キャッシュミス扱い）: %v", err)
		return CachedResult{}, false
	}
	return result, true
}

func (c *RedisCache) Set(ctx context.Context, key string, result CachedResult) {
	data, err := json.Marshal(result)
	if err != nil {
		log.Printf("⚠️  RedisキャッシュのJSONマーシャル失敗: %v", err)
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		log.Printf("⚠️  Redisキャッシュの保存に失敗: %v", err)
	}
}

func (c *RedisCache) Clear(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("⚠️  Redisキャッシュのクリアに失敗: %v", err)
	}
}

// Close Redis接続を閉じる
func (c *RedisCache) Close() error {
	return c.client.Close()
}
