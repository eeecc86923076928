package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"Kartlag-App/internal/domain/adapter"
	"Kartlag-App/internal/domain/model"
)

const (
	defaultBaseURL = "https://overpass-api.de/api/interpreter"

	// 1回の呼び出しで取得する要素数の上限
	resultLimit = 100
)

// fetcher レート制限付きHTTPクライアントの必要部分
type fetcher interface {
	Fetch(ctx context.Context, upstream string, buildReq func(ctx context.Context) (*http.Request, error)) ([]byte, error)
}

// querySpec カテゴリ1つ分のOverpass QLセレクタ。
// 1カテゴリが複数のサブクエリを発行する場合がある（例: 展望台カテゴリは狩猟台も検索する）。
type querySpec struct {
	selectors []string
}

// categoryQueries カテゴリコード→Overpass QLセレクタの対応表
var categoryQueries = map[string]querySpec{
	"viewpoints": {selectors: []string{
		`nwr["tourism"="viewpoint"]`,
		`nwr["amenity"="hunting_stand"]`,
	}},
	"wilderness_shelters": {selectors: []string{
		`nwr["amenity"="shelter"]["shelter_type"!="public_transport"]`,
	}},
	"drinking_water": {selectors: []string{
		`node["amenity"="drinking_water"]`,
	}},
	"war_memorials": {selectors: []string{
		`nwr["historic"="memorial"]["memorial"="war_memorial"]`,
	}},
}

// OverpassAdapter コミュニティ地理データ（Overpass API）のソースアダプター。
// 構造化クエリをHTTP POSTで発行し、JSONレスポンスを生レコードに変換する。
type OverpassAdapter struct {
	client  fetcher
	baseURL string
}

// NewOverpassAdapter 環境変数OVERPASS_URL（未設定時は公式エンドポイント）でアダプターを作成
func NewOverpassAdapter(client fetcher) *OverpassAdapter {
	baseURL := os.Getenv("OVERPASS_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OverpassAdapter{client: client, baseURL: baseURL}
}

func (a *OverpassAdapter) Source() string      { return model.SourceOverpass }
func (a *OverpassAdapter) DisplayName() string { return "fellesdata (OpenStreetMap)" }

// FetchCategory カテゴリに対応するサブクエリをすべて発行し、生レコードをまとめて返す
func (a *OverpassAdapter) FetchCategory(ctx context.Context, viewport model.ViewportWindow, categoryID string) (*adapter.Result, error) {
	spec, ok := categoryQueries[categoryID]
	if !ok {
		return nil, fmt.Errorf("Overpassアダプターが未対応のカテゴリです: %s", categoryID)
	}

	var records []model.RawRecord
	for _, selector := range spec.selectors {
		query := buildQuery(selector, viewport)

		body, err := a.client.Fetch(ctx, model.SourceOverpass, func(ctx context.Context) (*http.Request, error) {
			form := url.Values{"data": {query}}
			req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL, strings.NewReader(form.Encode()))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return req, nil
		})
		if err != nil {
			return nil, err
		}

		elements, err := parseResponse(body)
		if err != nil {
			return nil, err
		}
		for i := range elements {
			records = append(records, model.RawRecord{
				Source: model.SourceOverpass,
				OSM:    &elements[i],
			})
		}
	}

	return &adapter.Result{Records: records}, nil
}

// buildQuery Overpass QLクエリを組み立てる。
// bboxフィルタに加えてノルウェーの国境ポリゴン（areaフィルタ）で絞り込み、
// 国境付近のbboxで隣国のマッチが混入するのを防ぐ。
func buildQuery(selector string, v model.ViewportWindow) string {
	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n")
	b.WriteString(`area["ISO3166-1"="NO"][admin_level=2]->.norge;` + "\n")
	b.WriteString(fmt.Sprintf("%s(area.norge)(%f,%f,%f,%f);\n", selector, v.South, v.West, v.North, v.East))
	b.WriteString(fmt.Sprintf("out center %d;", resultLimit))
	return b.String()
}

// overpassResponse Overpass APIのJSONレスポンス
type overpassResponse struct {
	Elements []model.OSMElement `json:"elements"`
}

func parseResponse(body []byte) ([]model.OSMElement, error) {
	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: Overpassレスポンス: %v", model.ErrParseError, err)
	}
	return resp.Elements, nil
}
