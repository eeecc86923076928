package entur

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"Kartlag-App/internal/domain/adapter"
	"Kartlag-App/internal/domain/model"
)

const (
	defaultBaseURL = "https://api.entur.io/stop-places/v1/read"

	// ズーム閾値。閾値未満では上流を呼ばずに空を返す（停留所は低ズームでは密集しすぎるため）。
	minZoomBus  = 10.0
	minZoomRail = 8.0
)

// fetcher レート制限付きHTTPクライアントの必要部分
type fetcher interface {
	Fetch(ctx context.Context, upstream string, buildReq func(ctx context.Context) (*http.Request, error)) ([]byte, error)
}

// endpointSpec カテゴリ1つ分のエンドポイント定義
type endpointSpec struct {
	path     string
	stopType string
	minZoom  float64
}

var endpoints = map[string]endpointSpec{
	"bus_stops":     {path: "/stop-places", stopType: "onstreetBus", minZoom: minZoomBus},
	"rail_stations": {path: "/stop-places", stopType: "railStation", minZoom: minZoomRail},
}

// TransitAdapter 交通機関停留所レジストリ（REST/JSON）のソースアダプター。
// バスと鉄道は独立したエンドポイントとして扱い、それぞれ最小ズームでゲートする。
type TransitAdapter struct {
	client  fetcher
	baseURL string
}

// NewTransitAdapter 環境変数TRANSIT_API_URL（未設定時はEntur公式）でアダプターを作成
func NewTransitAdapter(client fetcher) *TransitAdapter {
	baseURL := os.Getenv("TRANSIT_API_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &TransitAdapter{client: client, baseURL: baseURL}
}

func (a *TransitAdapter) Source() string      { return model.SourceTransit }
func (a *TransitAdapter) DisplayName() string { return "holdeplassregisteret (Entur)" }

// FetchCategory 最小ズームを満たす場合のみ停留所を取得する。
// 閾値未満は上流を呼び出さず空の結果を返す（エラーでも警告でもない）。
func (a *TransitAdapter) FetchCategory(ctx context.Context, viewport model.ViewportWindow, categoryID string) (*adapter.Result, error) {
	spec, ok := endpoints[categoryID]
	if !ok {
		return nil, fmt.Errorf("交通アダプターが未対応のカテゴリです: %s", categoryID)
	}

	if viewport.Zoom < spec.minZoom {
		return &adapter.Result{Skipped: true}, nil
	}

	body, err := a.client.Fetch(ctx, model.SourceTransit, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", a.buildURL(spec, viewport), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("ET-Client-Name", "kartlag-app")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	stops, err := parseStops(body)
	if err != nil {
		return nil, err
	}

	records := make([]model.RawRecord, 0, len(stops))
	for i := range stops {
		records = append(records, model.RawRecord{
			Source: model.SourceTransit,
			Stop:   &stops[i],
		})
	}
	return &adapter.Result{Records: records}, nil
}

func (a *TransitAdapter) buildURL(spec endpointSpec, v model.ViewportWindow) string {
	params := url.Values{}
	params.Set("stopPlaceType", spec.stopType)
	params.Set("boundingBox.minLat", fmt.Sprintf("%f", v.South))
	params.Set("boundingBox.maxLat", fmt.Sprintf("%f", v.North))
	params.Set("boundingBox.minLon", fmt.Sprintf("%f", v.West))
	params.Set("boundingBox.maxLon", fmt.Sprintf("%f", v.East))
	return fmt.Sprintf("%s%s?%s", a.baseURL, spec.path, params.Encode())
}

// stopsResponse 停留所レジストリのJSONレスポンス
type stopsResponse struct {
	Stops []model.TransitStop `json:"stopPlaces"`
}

func parseStops(body []byte) ([]model.TransitStop, error) {
	var resp stopsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: 停留所レスポンス: %v", model.ErrParseError, err)
	}
	return resp.Stops, nil
}
