package model

import "time"

// LatLng 緯度経度を表す基本的な型（正規化・投影で使用）
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// POI 地図上に表示する1件のスポット（統一スキーマ）
type POI struct {
	ID          string            `json:"id"`                   // ソースプレフィックス付きの安定ID（例: "osm-node-123"）
	Name        string            `json:"name"`                 // 表示名
	Description string            `json:"description"`          // カテゴリラベル＋属性由来の説明文
	Category    string            `json:"category"`             // カテゴリコード（例: "war_memorials"）
	Location    LatLng            `json:"location"`             // 位置情報
	Color       string            `json:"color"`                // マーカー表示色
	Enrichment  map[string]string `json:"enrichment,omitempty"` // 追加属性（NULLABLE）
	Source      string            `json:"source"`               // 取得元サービス（provenance）
	UpdatedAt   time.Time         `json:"updated_at"`           // 最終更新時刻
}

// ToLatLng POIの位置情報をLatLng型として返す
func (p *POI) ToLatLng() LatLng {
	return p.Location
}

// HasEnrichment 指定キーの追加属性が設定されているかチェック
func (p *POI) HasEnrichment(key string) bool {
	if p.Enrichment == nil {
		return false
	}
	_, ok := p.Enrichment[key]
	return ok
}

// CustomPOI ユーザーが追加した独自スポット（外部永続化コラボレーターで保存）
type CustomPOI struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	Lat         float64   `json:"lat" db:"lat"`
	Lng         float64   `json:"lng" db:"lng"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ToPOI CustomPOIを統一POIスキーマに変換する
func (c *CustomPOI) ToPOI(color string) POI {
	return POI{
		ID:          "custom-" + c.ID,
		Name:        c.Name,
		Description: c.Description,
		Category:    c.Category,
		Location:    LatLng{Lat: c.Lat, Lng: c.Lng},
		Color:       color,
		Source:      SourceCustom,
		UpdatedAt:   c.CreatedAt,
	}
}

// 取得元サービスの識別子
const (
	SourceOverpass = "overpass"
	SourceShelter  = "dsb_tilfluktsrom"
	SourceTransit  = "entur"
	SourceForest   = "nibio_skog"
	SourceTrail    = "kartverket_sti"
	SourceCustom   = "custom"
)
