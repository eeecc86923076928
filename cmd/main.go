package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"Kartlag-App/internal/config"
	"Kartlag-App/internal/domain/adapter"
	"Kartlag-App/internal/domain/model"
	"Kartlag-App/internal/domain/repository"
	"Kartlag-App/internal/domain/service"
	"Kartlag-App/internal/handler"
	"Kartlag-App/internal/infrastructure/cache"
	"Kartlag-App/internal/infrastructure/database"
	"Kartlag-App/internal/infrastructure/entur"
	"Kartlag-App/internal/infrastructure/firestore"
	"Kartlag-App/internal/infrastructure/geonorge"
	"Kartlag-App/internal/infrastructure/httpclient"
	"Kartlag-App/internal/infrastructure/overpass"
	repoimpl "Kartlag-App/internal/repository"
	"Kartlag-App/internal/usecase"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using system environment variables")
	}

	ctx := context.Background()

	// カテゴリツリー（YAMLパス未設定時は組み込みツリー）
	tree, err := config.LoadCategoryTree(os.Getenv("CATEGORY_TREE_PATH"))
	if err != nil {
		log.Fatalf("カテゴリツリー読み込み失敗: %v", err)
	}
	catalog := config.DefaultCatalog()

	// 結果キャッシュ（REDIS_ADDR設定時はRedis、未設定時はインメモリ）
	resultCache := newResultCache(ctx)

	// レート制限付きHTTPクライアントとソースアダプターのレジストリ
	client := httpclient.NewRateLimitedClient()
	overpassAdapter := overpass.NewOverpassAdapter(client)
	shelterAdapter := geonorge.NewShelterAdapter(client)
	transitAdapter := entur.NewTransitAdapter(client)

	registry := map[string][]adapter.SourceAdapter{
		"viewpoints":          {overpassAdapter},
		"wilderness_shelters": {overpassAdapter},
		"drinking_water":      {overpassAdapter},
		"war_memorials":       {overpassAdapter},
		"civil_shelters":      {shelterAdapter},
		"bus_stops":           {transitAdapter},
		"rail_stations":       {transitAdapter},
		"forest_cover":        {geonorge.NewForestCoverAdapter()},
		"trail_network":       {geonorge.NewTrailNetworkAdapter()},
	}

	// 独自スポットの永続化バックエンド（環境変数で選択、未設定時は無効）
	customRepo := newCustomPOIsRepository(ctx)

	// Dependency injection
	normalizer := service.NewNormalizer(catalog)
	overlayUseCase := usecase.NewOverlayUseCase(registry, normalizer, resultCache, customRepo, catalog, nil)

	categoryState := service.NewCategoryState(tree,
		func(viewport model.ViewportWindow, activeCodes []string) {
			overlayUseCase.Dispatch(context.Background(), viewport, activeCodes)
		},
		func() {
			overlayUseCase.ClearPOIs()
		},
	)

	overlayHandler := handler.NewOverlayHandler(categoryState, overlayUseCase, customRepo, catalog, tree)

	// Ginルーターのセットアップ
	r := gin.Default()
	overlayHandler.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Kartlag-App server starting on :%s...", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("サーバー起動失敗: %v", err)
	}
}

// newResultCache REDIS_ADDR設定時はRedisキャッシュを、未設定時はインメモリキャッシュを返す
func newResultCache(ctx context.Context) cache.ResultCache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Println("📊 結果キャッシュ: インメモリ")
		return cache.NewMemoryCache()
	}

	redisCache, err := cache.NewRedisCache(ctx, addr, os.Getenv("REDIS_PASSWORD"))
	if err != nil {
		log.Printf("⚠️  Redis接続失敗（インメモリキャッシュで継続）: %v", err)
		return cache.NewMemoryCache()
	}
	log.Printf("✅ 結果キャッシュ: Redis (%s)", addr)
	return redisCache
}

// newCustomPOIsRepository 環境変数から独自スポットの永続化バックエンドを選択する。
// DATABASE_URL → PostgreSQL、SUPABASE_URL → Supabase、FIRESTORE_PROJECT_ID → Firestore。
// いずれも未設定なら独自スポット機能なしで動作する。
func newCustomPOIsRepository(ctx context.Context) repository.CustomPOIsRepository {
	if os.Getenv("DATABASE_URL") != "" {
		client, err := database.NewPostgreSQLClient()
		if err != nil {
			log.Fatalf("PostgreSQL初期化失敗: %v", err)
		}
		log.Println("✅ 独自スポット: PostgreSQL")
		return repoimpl.NewPostgresCustomPOIsRepository(client)
	}

	if os.Getenv("SUPABASE_URL") != "" {
		client, err := database.NewSupabaseClient()
		if err != nil {
			log.Fatalf("Supabaseクライアント初期化失敗: %v", err)
		}
		log.Println("✅ 独自スポット: Supabase")
		return repoimpl.NewSupabaseCustomPOIsRepository(client)
	}

	if projectID := os.Getenv("FIRESTORE_PROJECT_ID"); projectID != "" {
		client, err := firestore.NewFirestoreClient(ctx, projectID)
		if err != nil {
			log.Fatalf("Firestore初期化失敗: %v", err)
		}
		log.Println("✅ 独自スポット: Firestore")
		return repoimpl.NewFirestoreCustomPOIsRepository(client)
	}

	log.Println("📊 独自スポット: 永続化バックエンド未設定のため無効")
	return nil
}
