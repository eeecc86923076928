package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Kartlag-App/internal/domain/model"
)

// DefaultTTL キャッシュエントリの既定有効期間
const DefaultTTL = 10 * time.Minute

// CachedResult キャッシュに保存される取得タスク1件分の結果。
// 劣化モードの警告は結果と一体で保存し、ヒット時にも再掲する。
// 警告を落とすと、デモデータがTTL内ずっとバナーなしで表示されてしまう。
type CachedResult struct {
	POIs     []model.POI `json:"pois"`
	Warnings []string    `json:"warnings,omitempty"`
}

// ResultCache (ソース, カテゴリ, 量子化bbox) をキーとする正規化済み結果のキャッシュ。
// TTL経過または明示的なClearで破棄される。
type ResultCache interface {
	Get(ctx context.Context, key string) (CachedResult, bool)
	Set(ctx context.Context, key string, result CachedResult)
	Clear(ctx context.Context)
}

// Key キャッシュキーを組み立てる。bboxは量子化済みの文字列を渡すこと。
func Key(source, categoryID, quantizedBBox string) string {
	return fmt.Sprintf("%s:%s:%s", source, categoryID, quantizedBBox)
}

// entry 有効期限付きのキャッシュエントリ
type entry struct {
	result    CachedResult
	expiresAt time.Time
}

// MemoryCache プロセス内TTLキャッシュ（既定の実装）
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryCache 既定TTLのインメモリキャッシュを作成
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithTTL(DefaultTTL)
}

// NewMemoryCacheWithTTL TTLを指定してインメモリキャッシュを作成
func NewMemoryCacheWithTTL(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (CachedResult, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return CachedResult{}, false
	}
	if c.now().After(e.expiresAt) {
		c.evictIfExpired(key)
		return CachedResult{}, false
	}
	return e.result, true
}

// evictIfExpired 期限切れエントリの遅延削除。読み取りロック解放後に
// 割り込んだSetの新しいエントリを消さないよう、書き込みロック下で期限を再確認する。
func (c *MemoryCache) evictIfExpired(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && c.now().After(e.expiresAt) {
		delete(c.entries, key)
	}
}

func (c *MemoryCache) Set(ctx context.Context, key string, result CachedResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{result: result, expiresAt: c.now().Add(c.ttl)}
}

func (c *MemoryCache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}
