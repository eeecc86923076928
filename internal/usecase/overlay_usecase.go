package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"Kartlag-App/internal/config"
	"Kartlag-App/internal/domain/adapter"
	"Kartlag-App/internal/domain/model"
	"Kartlag-App/internal/domain/repository"
	"Kartlag-App/internal/domain/service"
	"Kartlag-App/internal/infrastructure/cache"
)

// OverlayUseCase ビューポート・カテゴリ変更に応じてディスパッチサイクルを実行するユースケース
type OverlayUseCase interface {
	// Dispatch 1回のディスパッチサイクルを実行する。全アダプター呼び出しが完了してから
	// マージ結果を公開し、順序が前後した古いサイクルの完了は破棄する。
	// 戻り値のappliedは結果が最新として適用されたかどうか。
	Dispatch(ctx context.Context, viewport model.ViewportWindow, activeCategories []string) (*model.OverlayResult, bool)

	// ClearPOIs アクティブカテゴリが空になったとき、デバウンスを待たずに全POIをクリアする
	ClearPOIs()

	// Latest 最後に適用されたサイクルの結果（未実行ならnil）
	Latest() *model.OverlayResult
}

// overlayUseCaseImpl OverlayUseCaseの実装
type overlayUseCaseImpl struct {
	registry   map[string][]adapter.SourceAdapter // カテゴリコード→担当アダプター（複数可）
	normalizer *service.Normalizer
	cache      cache.ResultCache
	customRepo repository.CustomPOIsRepository // nil可（独自スポット機能なしで動作）
	catalog    config.Catalog

	// onApply 適用されたサイクルの結果を購読者（レンダラー等）へ通知する
	onApply func(*model.OverlayResult)

	seq         atomic.Uint64
	mu          sync.Mutex
	lastApplied uint64
	latest      *model.OverlayResult
}

// NewOverlayUseCase 新しいOverlayUseCaseインスタンスを作成
func NewOverlayUseCase(
	registry map[string][]adapter.SourceAdapter,
	normalizer *service.Normalizer,
	resultCache cache.ResultCache,
	customRepo repository.CustomPOIsRepository,
	catalog config.Catalog,
	onApply func(*model.OverlayResult),
) OverlayUseCase {
	return &overlayUseCaseImpl{
		registry:   registry,
		normalizer: normalizer,
		cache:      resultCache,
		customRepo: customRepo,
		catalog:    catalog,
		onApply:    onApply,
	}
}

// fetchTask サイクル内のアダプター呼び出し1件分
type fetchTask struct {
	categoryID string
	adapter    adapter.SourceAdapter
}

// fetchOutcome アダプター呼び出し1件分の結果
type fetchOutcome struct {
	pois     []model.POI
	raster   *model.RasterLayerDescriptor
	warnings []string
}

func (u *overlayUseCaseImpl) Dispatch(ctx context.Context, viewport model.ViewportWindow, activeCategories []string) (*model.OverlayResult, bool) {
	sequence := u.seq.Add(1)

	// 空の選択は定義済みのUI状態：キャッシュ内容に関わらず空のマージ結果になる
	if len(activeCategories) == 0 {
		result := &model.OverlayResult{Sequence: sequence, Viewport: viewport, GeneratedAt: time.Now()}
		return result, u.apply(result)
	}

	var tasks []fetchTask
	for _, categoryID := range activeCategories {
		for _, a := range u.registry[categoryID] {
			tasks = append(tasks, fetchTask{categoryID: categoryID, adapter: a})
		}
	}

	// 全呼び出しを並行発行し、全件完了後にのみマージ結果を公開する（部分公開なし）。
	// 各タスクは読み取り専用のviewportとキー付きキャッシュ以外の可変状態を共有しない。
	outcomes := make([]fetchOutcome, len(tasks))
	g, groupCtx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			outcomes[i] = u.runTask(groupCtx, task, viewport)
			return nil // 個々の失敗は警告に変換済み。サイクル全体は中断しない
		})
	}
	_ = g.Wait()

	result := &model.OverlayResult{
		Sequence:    sequence,
		Viewport:    viewport,
		GeneratedAt: time.Now(),
	}

	seenPOI := make(map[string]bool)
	seenRaster := make(map[string]bool)
	for _, outcome := range outcomes {
		for _, poi := range outcome.pois {
			// マージ結果内でPOI IDは一意（重複排除）
			if !seenPOI[poi.ID] {
				seenPOI[poi.ID] = true
				result.POIs = append(result.POIs, poi)
			}
		}
		if outcome.raster != nil && !seenRaster[outcome.raster.ID] {
			seenRaster[outcome.raster.ID] = true
			result.RasterLayers = append(result.RasterLayers, *outcome.raster)
		}
		result.Warnings = append(result.Warnings, outcome.warnings...)
	}

	// 外部永続化コラボレーターの独自スポットをアクティブカテゴリでフィルタしてマージ
	u.mergeCustomPOIs(ctx, activeCategories, seenPOI, result)

	applied := u.apply(result)
	if applied {
		log.Printf("📊 ディスパッチ#%d完了: POI %d件, ラスター%d件, 警告%d件",
			sequence, len(result.POIs), len(result.RasterLayers), len(result.Warnings))
	} else {
		log.Printf("⚠️  ディスパッチ#%dは古いサイクルのため破棄されました", sequence)
	}
	return result, applied
}

// runTask アダプター呼び出し1件分：キャッシュ確認→取得→正規化→キャッシュ保存。
// 失敗はここでキャッチして「空の結果＋警告」に変換する。
func (u *overlayUseCaseImpl) runTask(ctx context.Context, task fetchTask, viewport model.ViewportWindow) fetchOutcome {
	key := cache.Key(task.adapter.Source(), task.categoryID, viewport.QuantizedKey())
	if cached, ok := u.cache.Get(ctx, key); ok {
		// 劣化モードの警告も結果と一体でキャッシュされているため、
		// ヒット時にも再掲される（デモデータがバナーなしで出続けない）
		return fetchOutcome{pois: cached.POIs, warnings: cached.Warnings}
	}

	result, err := task.adapter.FetchCategory(ctx, viewport, task.categoryID)
	if err != nil {
		// 1つのアダプターの失敗は他を中断させない
		log.Printf("⚠️  %s（%s）の取得に失敗: %v", task.adapter.Source(), task.categoryID, err)
		return fetchOutcome{warnings: []string{
			fmt.Sprintf("Kunne ikke hente data fra %s", task.adapter.DisplayName()),
		}}
	}

	outcome := fetchOutcome{warnings: result.Warnings}
	if result.Skipped {
		// ズームゲート等による意図的な省略は意味のある結果ではないため、キャッシュしない
		return outcome
	}
	if result.Raster != nil {
		outcome.raster = result.Raster
		return outcome
	}

	pois := make([]model.POI, 0, len(result.Records))
	for _, raw := range result.Records {
		if poi, ok := u.normalizer.Normalize(raw, task.categoryID); ok {
			pois = append(pois, *poi)
		}
	}
	u.cache.Set(ctx, key, cache.CachedResult{POIs: pois, Warnings: result.Warnings})
	outcome.pois = pois
	return outcome
}

func (u *overlayUseCaseImpl) mergeCustomPOIs(ctx context.Context, activeCategories []string, seen map[string]bool, result *model.OverlayResult) {
	if u.customRepo == nil {
		return
	}
	customs, err := u.customRepo.ListByCategories(ctx, activeCategories)
	if err != nil {
		log.Printf("⚠️  独自スポットの取得に失敗: %v", err)
		result.Warnings = append(result.Warnings, "Kunne ikke hente egne steder")
		return
	}
	for i := range customs {
		poi := customs[i].ToPOI(u.catalog.Info(customs[i].Category).Color)
		if !seen[poi.ID] {
			seen[poi.ID] = true
			result.POIs = append(result.POIs, poi)
		}
	}
}

// apply 完了したサイクルを順序番号で検査し、最新の完了分のみを適用する
func (u *overlayUseCaseImpl) apply(result *model.OverlayResult) bool {
	u.mu.Lock()
	if result.Sequence <= u.lastApplied {
		u.mu.Unlock()
		return false
	}
	u.lastApplied = result.Sequence
	u.latest = result
	onApply := u.onApply
	u.mu.Unlock()

	if onApply != nil {
		onApply(result)
	}
	return true
}

func (u *overlayUseCaseImpl) ClearPOIs() {
	sequence := u.seq.Add(1)
	result := &model.OverlayResult{Sequence: sequence, GeneratedAt: time.Now()}
	u.apply(result)
}

func (u *overlayUseCaseImpl) Latest() *model.OverlayResult {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.latest
}
