package geonorge

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"Kartlag-App/internal/domain/adapter"
	"Kartlag-App/internal/domain/model"
)

const (
	defaultForestWMSURL = "https://wms.nibio.no/cgi-bin/skogbruksplan"
	defaultTrailWMSURL  = "https://wms.geonorge.no/skwms1/wms.friluftsruter2"
)

// WMSRasterAdapter WMSタイルサービス1つ分のソースアダプター。
// ポイントではなくラスターレイヤー記述子を返す。記述子は (source, layer-type) ごとに
// 1つだけ生成され、同じカテゴリへの再呼び出しは同一IDの記述子を返す（冪等な再登録）。
type WMSRasterAdapter struct {
	source      string
	displayName string
	categoryID  string
	descriptor  model.RasterLayerDescriptor
}

// NewForestCoverAdapter 森林被覆WMS（NIBIO）のラスターアダプターを作成
func NewForestCoverAdapter() *WMSRasterAdapter {
	baseURL := os.Getenv("FOREST_WMS_URL")
	if baseURL == "" {
		baseURL = defaultForestWMSURL
	}
	return &WMSRasterAdapter{
		source:      model.SourceForest,
		displayName: "skogdekke (NIBIO)",
		categoryID:  "forest_cover",
		descriptor: model.RasterLayerDescriptor{
			ID:          "raster-forest_cover",
			Category:    "forest_cover",
			TileURL:     buildWMSTileURL(baseURL, "hogstklasser"),
			Opacity:     0.55,
			Visible:     true,
			Attribution: "© NIBIO",
		},
	}
}

// NewTrailNetworkAdapter 登山道ネットワークWMS（Kartverket）のラスターアダプターを作成
func NewTrailNetworkAdapter() *WMSRasterAdapter {
	baseURL := os.Getenv("TRAIL_WMS_URL")
	if baseURL == "" {
		baseURL = defaultTrailWMSURL
	}
	return &WMSRasterAdapter{
		source:      model.SourceTrail,
		displayName: "turstier (Kartverket)",
		categoryID:  "trail_network",
		descriptor: model.RasterLayerDescriptor{
			ID:          "raster-trail_network",
			Category:    "trail_network",
			TileURL:     buildWMSTileURL(baseURL, "Fotrute"),
			Opacity:     0.8,
			Visible:     true,
			Attribution: "© Kartverket",
		},
	}
}

func (a *WMSRasterAdapter) Source() string      { return a.source }
func (a *WMSRasterAdapter) DisplayName() string { return a.displayName }

// FetchCategory ラスター記述子を返す。ネットワーク呼び出しは発生しない
// （タイル取得は地図エンジンがTileURLテンプレート経由で行う）。
func (a *WMSRasterAdapter) FetchCategory(ctx context.Context, viewport model.ViewportWindow, categoryID string) (*adapter.Result, error) {
	if categoryID != a.categoryID {
		return nil, fmt.Errorf("ラスターアダプター%sが未対応のカテゴリです: %s", a.source, categoryID)
	}
	desc := a.descriptor
	return &adapter.Result{Raster: &desc}, nil
}

// buildWMSTileURL WMS GetMapのタイルURLテンプレートを組み立てる。
// {bbox-epsg-3857}は地図エンジン側で展開されるプレースホルダ。
func buildWMSTileURL(baseURL, layer string) string {
	params := url.Values{}
	params.Set("service", "WMS")
	params.Set("version", "1.3.0")
	params.Set("request", "GetMap")
	params.Set("layers", layer)
	params.Set("styles", "")
	params.Set("format", "image/png")
	params.Set("transparent", "true")
	params.Set("crs", "EPSG:3857")
	params.Set("width", "256")
	params.Set("height", "256")
	encoded := params.Encode()
	// bboxプレースホルダはURLエンコードせずそのまま残す
	return fmt.Sprintf("%s?%s&bbox={bbox-epsg-3857}", baseURL, encoded)
}
