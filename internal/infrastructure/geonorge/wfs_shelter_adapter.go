package geonorge

import (
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"Kartlag-App/internal/domain/adapter"
	"Kartlag-App/internal/domain/model"
)

const defaultShelterWFSURL = "https://ogc.dsb.no/wfs.ashx"

// fetcher レート制限付きHTTPクライアントの必要部分
type fetcher interface {
	Fetch(ctx context.Context, upstream string, buildReq func(ctx context.Context) (*http.Request, error)) ([]byte, error)
	Probe(ctx context.Context, url string) error
}

// ShelterAdapter 公共避難所レジストリ（DSB tilfluktsrom、WFS 2.0/GML）のソースアダプター。
// bboxフィルタ付きGetFeatureを発行し、名前空間付きXMLをパースする。
// 上流がデプロイ元オリジンからの呼び出しを拒否する場合（疎通確認の失敗で検出）、
// 例外を投げずに小さな固定デモデータセットへソフトフォールバックし、警告で劣化モードを伝える。
type ShelterAdapter struct {
	client  fetcher
	baseURL string

	probeOnce sync.Once
	degraded  bool
}

// NewShelterAdapter 環境変数SHELTER_WFS_URL（未設定時はDSB公式）でアダプターを作成
func NewShelterAdapter(client fetcher) *ShelterAdapter {
	baseURL := os.Getenv("SHELTER_WFS_URL")
	if baseURL == "" {
		baseURL = defaultShelterWFSURL
	}
	return &ShelterAdapter{client: client, baseURL: baseURL}
}

func (a *ShelterAdapter) Source() string      { return model.SourceShelter }
func (a *ShelterAdapter) DisplayName() string { return "tilfluktsromregisteret (DSB)" }

// FetchCategory bboxフィルタ付きのWFS GetFeatureを発行する
func (a *ShelterAdapter) FetchCategory(ctx context.Context, viewport model.ViewportWindow, categoryID string) (*adapter.Result, error) {
	if categoryID != "civil_shelters" {
		return nil, fmt.Errorf("避難所アダプターが未対応のカテゴリです: %s", categoryID)
	}

	// 初回のみ疎通確認を行い、拒否された場合は以後デモデータで動作する
	a.probeOnce.Do(func() {
		if err := a.client.Probe(ctx, a.baseURL); err != nil {
			log.Printf("⚠️  避難所レジストリへの疎通確認に失敗、デモデータで劣化動作します: %v", err)
			a.degraded = true
		}
	})

	if a.degraded {
		return &adapter.Result{
			Records:  demoShelters(),
			Warnings: []string{"Tilfluktsromregisteret er utilgjengelig – viser demonstrasjonsdata"},
		}, nil
	}

	body, err := a.client.Fetch(ctx, model.SourceShelter, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, "GET", a.buildGetFeatureURL(viewport), nil)
	})
	if err != nil {
		return nil, err
	}

	features, err := parseFeatureCollection(body)
	if err != nil {
		return nil, err
	}

	records := make([]model.RawRecord, 0, len(features))
	for i := range features {
		records = append(records, model.RawRecord{
			Source:  model.SourceShelter,
			Shelter: &features[i],
		})
	}
	// マッチ0件の正常レスポンスはエラーではない（警告なしの空リスト）
	return &adapter.Result{Records: records}, nil
}

func (a *ShelterAdapter) buildGetFeatureURL(v model.ViewportWindow) string {
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", "2.0.0")
	params.Set("request", "GetFeature")
	params.Set("typeNames", "tilfluktsrom:Tilfluktsrom")
	params.Set("srsName", "EPSG:4326")
	params.Set("bbox", v.BBoxString()+",EPSG:4326")
	return fmt.Sprintf("%s?%s", a.baseURL, params.Encode())
}

// --- WFS/GMLレスポンスをパースするための構造体 ---
// 要素名はローカル名のみで照合するため、名前空間プレフィックスの違いに影響されない。

type featureCollection struct {
	XMLName xml.Name    `xml:"FeatureCollection"`
	Members []wfsMember `xml:"member"`
}

type wfsMember struct {
	Shelter shelterElement `xml:"Tilfluktsrom"`
}

type shelterElement struct {
	ID       string      `xml:"id,attr"`
	Address  string      `xml:"adresse"`  // 任意属性
	Capacity string      `xml:"plasser"`  // 任意属性
	District string      `xml:"kommune"`  // 任意属性
	Position gmlPosition `xml:"posisjon"`
}

type gmlPosition struct {
	Point gmlPoint `xml:"Point"`
}

type gmlPoint struct {
	Pos string `xml:"pos"`
}

// parseFeatureCollection 名前空間付きGMLをパースし、生フィーチャに変換する。
// 任意属性の欠落は許容し、座標を持たないフィーチャは読み飛ばす。
func parseFeatureCollection(body []byte) ([]model.ShelterFeature, error) {
	var fc featureCollection
	if err := xml.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("%w: WFSレスポンス: %v", model.ErrParseError, err)
	}

	features := make([]model.ShelterFeature, 0, len(fc.Members))
	for _, m := range fc.Members {
		lat, lon, ok := parseGMLPos(m.Shelter.Position.Point.Pos)
		if !ok {
			continue
		}
		capacity := 0
		if m.Shelter.Capacity != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(m.Shelter.Capacity)); err == nil {
				capacity = n
			}
		}
		features = append(features, model.ShelterFeature{
			FeatureID: m.Shelter.ID,
			Address:   strings.TrimSpace(m.Shelter.Address),
			Capacity:  capacity,
			District:  strings.TrimSpace(m.Shelter.District),
			Lat:       lat,
			Lon:       lon,
		})
	}
	return features, nil
}

// parseGMLPos gml:posの "lat lon"（EPSG:4326の軸順）をパースする
func parseGMLPos(pos string) (lat, lon float64, ok bool) {
	fields := strings.Fields(pos)
	if len(fields) < 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(fields[0], 64)
	lon, err2 := strconv.ParseFloat(fields[1], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// demoShelters 劣化モードで表示する固定デモデータ
func demoShelters() []model.RawRecord {
	demo := []model.ShelterFeature{
		{FeatureID: "demo-1", Address: "Sentrum P-hus, Oslo", Capacity: 2500, District: "Oslo", Lat: 59.9139, Lon: 10.7522},
		{FeatureID: "demo-2", Address: "Bystasjonen, Bergen", Capacity: 1200, District: "Bergen", Lat: 60.3913, Lon: 5.3221},
		{FeatureID: "demo-3", Address: "Solsiden, Trondheim", Capacity: 800, District: "Trondheim", Lat: 63.4305, Lon: 10.4051},
	}
	records := make([]model.RawRecord, len(demo))
	for i := range demo {
		records[i] = model.RawRecord{Source: model.SourceShelter, Shelter: &demo[i]}
	}
	return records
}
