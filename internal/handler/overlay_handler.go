package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"Kartlag-App/internal/config"
	"Kartlag-App/internal/domain/model"
	"Kartlag-App/internal/domain/repository"
	"Kartlag-App/internal/domain/service"
	"Kartlag-App/internal/usecase"
)

// OverlayHandler オーバーレイ同期エンジンのHTTPハンドラー。
// カテゴリ状態マシン・ディスパッチャー・独自スポット永続化への入口になる。
type OverlayHandler struct {
	state      *service.CategoryState
	overlay    usecase.OverlayUseCase
	customRepo repository.CustomPOIsRepository // nil可（独自スポット機能なしで動作）
	catalog    config.Catalog
	tree       *model.CategoryTree
}

// NewOverlayHandler OverlayHandlerの新しいインスタンスを作成
func NewOverlayHandler(
	state *service.CategoryState,
	overlay usecase.OverlayUseCase,
	customRepo repository.CustomPOIsRepository,
	catalog config.Catalog,
	tree *model.CategoryTree,
) *OverlayHandler {
	return &OverlayHandler{
		state:      state,
		overlay:    overlay,
		customRepo: customRepo,
		catalog:    catalog,
		tree:       tree,
	}
}

// RegisterRoutes ルーティングの登録
func (h *OverlayHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/categories", h.GetCategories)
		api.POST("/categories/:id/toggle", h.ToggleCategory)
		api.POST("/viewport", h.SetViewport)
		api.GET("/overlay", h.GetOverlay)
		api.GET("/custom-pois", h.ListCustomPOIs)
		api.POST("/custom-pois", h.CreateCustomPOI)
		api.DELETE("/custom-pois/:id", h.DeleteCustomPOI)
	}
}

// Health GET /api/health - ヘルスチェック
func (h *OverlayHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// categoryNodeResponse カテゴリツリー1ノード分のレスポンス表現
type categoryNodeResponse struct {
	ID       string                 `json:"id"`
	Label    string                 `json:"label"`
	Codes    []string               `json:"codes,omitempty"`
	Checked  bool                   `json:"checked"`
	Expanded bool                   `json:"expanded"`
	Children []categoryNodeResponse `json:"children,omitempty"`
}

// GetCategories GET /api/categories - カテゴリツリーとアクティベーション状態を取得
func (h *OverlayHandler) GetCategories(c *gin.Context) {
	checked, expanded := h.state.Snapshot()

	var build func(nodes []*model.CategoryNode) []categoryNodeResponse
	build = func(nodes []*model.CategoryNode) []categoryNodeResponse {
		out := make([]categoryNodeResponse, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, categoryNodeResponse{
				ID:       n.ID,
				Label:    n.Label,
				Codes:    n.Codes,
				Checked:  checked[n.ID],
				Expanded: expanded[n.ID],
				Children: build(n.Children),
			})
		}
		return out
	}

	c.JSON(http.StatusOK, gin.H{
		"categories":        build(h.tree.Roots),
		"active_categories": h.state.ActiveCodes(),
	})
}

// ToggleCategory POST /api/categories/:id/toggle - チェックボックスのトグル
func (h *OverlayHandler) ToggleCategory(c *gin.Context) {
	nodeID := c.Param("id")

	if err := h.state.Toggle(nodeID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "unknown_category",
			"message": "Unknown category node: " + nodeID,
		})
		return
	}

	// トグルのカスケード結果を即時返す。ディスパッチ自体はデバウンス後に走る
	checked, _ := h.state.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"id":                nodeID,
		"checked":           checked[nodeID],
		"active_categories": h.state.ActiveCodes(),
	})
}

// SetViewport POST /api/viewport - ビューポート確定イベント（ディスパッチを起動する）
func (h *OverlayHandler) SetViewport(c *gin.Context) {
	var viewport model.ViewportWindow
	if err := c.ShouldBindJSON(&viewport); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return
	}

	if err := validateViewport(viewport); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "バリデーションエラー",
			"details": err.Error(),
		})
		return
	}

	h.state.SetViewport(viewport)

	// ビューポート確定はデバウンスなしで即時ディスパッチ
	result, applied := h.overlay.Dispatch(c.Request.Context(), viewport, h.state.ActiveCodes())
	c.JSON(http.StatusOK, gin.H{
		"sequence":  result.Sequence,
		"applied":   applied,
		"poi_count": len(result.POIs),
		"warnings":  result.Warnings,
	})
}

// validateViewport はビューポートの詳細バリデーションを行う
func validateViewport(v model.ViewportWindow) error {
	if v.North < -90 || v.North > 90 || v.South < -90 || v.South > 90 {
		return &ValidationError{Field: "north/south", Message: "緯度は-90から90の範囲で指定してください"}
	}
	if v.East < -180 || v.East > 180 || v.West < -180 || v.West > 180 {
		return &ValidationError{Field: "east/west", Message: "経度は-180から180の範囲で指定してください"}
	}
	if v.North <= v.South {
		return &ValidationError{Field: "north", Message: "northはsouthより大きい値を指定してください"}
	}
	if v.East <= v.West {
		return &ValidationError{Field: "east", Message: "eastはwestより大きい値を指定してください"}
	}
	if v.Zoom < 0 || v.Zoom > 22 {
		return &ValidationError{Field: "zoom", Message: "zoomは0から22の範囲で指定してください"}
	}
	return nil
}

// GetOverlay GET /api/overlay - 最後に適用されたサイクルの結果を取得
func (h *OverlayHandler) GetOverlay(c *gin.Context) {
	latest := h.overlay.Latest()
	if latest == nil {
		c.JSON(http.StatusOK, gin.H{
			"sequence":      0,
			"pois":          []model.POI{},
			"raster_layers": []model.RasterLayerDescriptor{},
			"warnings":      []string{},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sequence":        latest.Sequence,
		"pois":            latest.POIs,
		"raster_layers":   latest.RasterLayers,
		"warnings":        latest.Warnings,
		"warning_summary": latest.WarningSummary(),
		"generated_at":    latest.GeneratedAt,
	})
}

// createCustomPOIRequest 独自スポット作成リクエスト
type createCustomPOIRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// CreateCustomPOI POST /api/custom-pois - 独自スポットの作成
func (h *OverlayHandler) CreateCustomPOI(c *gin.Context) {
	if h.customRepo == nil {
		h.customPOIsDisabled(c)
		return
	}

	var req createCustomPOIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return
	}

	if err := validateCustomPOI(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "バリデーションエラー",
			"details": err.Error(),
		})
		return
	}

	poi := &model.CustomPOI{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Lat:         req.Lat,
		Lng:         req.Lng,
		CreatedAt:   time.Now(),
	}

	if err := h.customRepo.Create(c.Request.Context(), poi); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to create custom POI: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, poi)
}

// validateCustomPOI は独自スポット作成リクエストの詳細バリデーションを行う
func validateCustomPOI(req *createCustomPOIRequest) error {
	if req.Name == "" {
		return &ValidationError{Field: "name", Message: "名前は必須です"}
	}
	if req.Category == "" {
		return &ValidationError{Field: "category", Message: "カテゴリは必須です"}
	}
	if !model.InNorwayBounds(model.LatLng{Lat: req.Lat, Lng: req.Lng}) {
		return &ValidationError{Field: "lat/lng", Message: "座標はノルウェー国内の範囲で指定してください"}
	}
	return nil
}

// ListCustomPOIs GET /api/custom-pois - カテゴリ指定で独自スポット一覧を取得
func (h *OverlayHandler) ListCustomPOIs(c *gin.Context) {
	if h.customRepo == nil {
		h.customPOIsDisabled(c)
		return
	}

	categoriesParam := c.Query("categories")
	if categoriesParam == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing_parameter",
			"message": "categories parameter is required (comma-separated category codes)",
		})
		return
	}
	categories := strings.Split(categoriesParam, ",")

	pois, err := h.customRepo.ListByCategories(c.Request.Context(), categories)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list custom POIs: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"custom_pois": pois})
}

// DeleteCustomPOI DELETE /api/custom-pois/:id - 独自スポットの削除
func (h *OverlayHandler) DeleteCustomPOI(c *gin.Context) {
	if h.customRepo == nil {
		h.customPOIsDisabled(c)
		return
	}

	id := c.Param("id")
	if err := h.customRepo.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to delete custom POI: " + err.Error(),
		})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *OverlayHandler) customPOIsDisabled(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "feature_disabled",
		"message": "Custom POI storage is not configured",
	})
}

// ValidationError はバリデーションエラーを表す
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
