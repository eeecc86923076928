package httpclient

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"Kartlag-App/internal/domain/model"
)

const (
	defaultMinInterval  = 3 * time.Second  // 同一上流への最小呼び出し間隔
	defaultBudgetPerMin = 8                // 同一上流への1分あたりの呼び出し予算
	defaultQueryTimeout = 25 * time.Second // 検索系リクエストのタイムアウト
	defaultProbeTimeout = 5 * time.Second  // 疎通確認のタイムアウト
	defaultCooldown429  = 60 * time.Second // HTTP 429後の固定クールダウン
)

// RateLimitedClient 全アダプターが共有するスロットリング付きHTTPクライアント。
// 上流ごとに最小呼び出し間隔とローリング予算を管理し、429には固定クールダウン後の
// 1回だけのリトライを行う。恒久的な失敗はErrSourceUnavailableとして返し、
// この境界を越えてpanicさせない。
type RateLimitedClient struct {
	httpClient   *http.Client
	minInterval  time.Duration
	queryTimeout time.Duration
	probeTimeout time.Duration
	cooldown429  time.Duration

	mu        sync.Mutex
	upstreams map[string]*upstreamState
}

// upstreamState 上流1つ分のスロットリング簿記
type upstreamState struct {
	mu       sync.Mutex
	budget   *rate.Limiter
	lastCall time.Time
}

// NewRateLimitedClient 既定のスロットリング設定でクライアントを作成
func NewRateLimitedClient() *RateLimitedClient {
	return &RateLimitedClient{
		httpClient:   &http.Client{Timeout: defaultQueryTimeout + 5*time.Second},
		minInterval:  defaultMinInterval,
		queryTimeout: defaultQueryTimeout,
		probeTimeout: defaultProbeTimeout,
		cooldown429:  defaultCooldown429,
		upstreams:    make(map[string]*upstreamState),
	}
}

func (c *RateLimitedClient) state(upstream string) *upstreamState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.upstreams[upstream]
	if !ok {
		st = &upstreamState{
			budget: rate.NewLimiter(rate.Limit(float64(defaultBudgetPerMin)/60.0), defaultBudgetPerMin),
		}
		c.upstreams[upstream] = st
	}
	return st
}

// throttle 最小呼び出し間隔とローリング予算の両方を満たすまで待機する
func (c *RateLimitedClient) throttle(ctx context.Context, upstream string) error {
	st := c.state(upstream)
	st.mu.Lock()
	defer st.mu.Unlock()

	if wait := c.minInterval - time.Since(st.lastCall); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := st.budget.Wait(ctx); err != nil {
		return err
	}
	st.lastCall = time.Now()
	return nil
}

// Fetch スロットリングを適用してリクエストを実行し、レスポンスボディを返す。
// 429は固定クールダウン後に1回だけリトライし、それでも失敗すればErrSourceUnavailable。
func (c *RateLimitedClient) Fetch(ctx context.Context, upstream string, buildReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	if err := c.throttle(ctx, upstream); err != nil {
		return nil, fmt.Errorf("スロットリング待機が中断されました: %w", err)
	}

	body, status, err := c.doOnce(ctx, buildReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSourceUnavailable, err)
	}

	if status == http.StatusTooManyRequests {
		// 429は固定クールダウン後に1回のみリトライ（指数バックオフは行わない）
		log.Printf("⚠️  %s: HTTP 429を受信、%v後に1回だけ再試行します", upstream, c.cooldown429)
		select {
		case <-time.After(c.cooldown429):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", model.ErrSourceUnavailable, ctx.Err())
		}
		body, status, err = c.doOnce(ctx, buildReq)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrSourceUnavailable, err)
		}
		if status == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %w: 再試行後も429が続いています", model.ErrSourceUnavailable, model.ErrRateLimited)
		}
	}

	if status >= 500 {
		return nil, fmt.Errorf("%w: 上流がステータス%dを返しました", model.ErrSourceUnavailable, status)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: 予期しないステータス%d", model.ErrSourceUnavailable, status)
	}
	return body, nil
}

// doOnce 1回分のHTTP呼び出し。タイムアウトは有界。
func (c *RateLimitedClient) doOnce(ctx context.Context, buildReq func(ctx context.Context) (*http.Request, error)) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	req, err := buildReq(reqCtx)
	if err != nil {
		return nil, 0, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTPリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("レスポンスボディの読み取りに失敗: %w", err)
	}
	return body, resp.StatusCode, nil
}

// Probe 短いタイムアウトで上流の疎通を確認する（アダプターの劣化モード判定用）
func (c *RateLimitedClient) Probe(ctx context.Context, url string) error {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, "HEAD", url, nil)
	if err != nil {
		return fmt.Errorf("疎通確認リクエストの作成に失敗: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: 疎通確認がステータス%dで失敗", model.ErrSourceUnavailable, resp.StatusCode)
	}
	return nil
}
