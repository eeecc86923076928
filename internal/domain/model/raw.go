package model

// RawRecord アダプター境界で生成されるタグ付きバリアント。
// 各上流サービス固有の生データ形状は、このバリアントの1フィールドとしてのみ存在し、
// Normalizerを越えて漏れ出してはならない。
type RawRecord struct {
	Source  string          // 取得元サービスの識別子
	OSM     *OSMElement     // Overpass（コミュニティ地理データ）の生要素
	Shelter *ShelterFeature // 公共避難所レジストリ（WFS）の生フィーチャ
	Stop    *TransitStop    // 交通機関停留所レジストリの生レコード
}

// OSMElement Overpass APIが返すJSON要素（node / way / relation）
type OSMElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat,omitempty"`
	Lon    float64           `json:"lon,omitempty"`
	Center *OSMCenter        `json:"center,omitempty"` // way/relationの場合の重心
	Tags   map[string]string `json:"tags,omitempty"`
}

// OSMCenter way/relation要素の重心座標（out centerで取得）
type OSMCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Coordinate 要素の代表座標を返す。node座標→重心の順で解決し、
// どちらも無い場合はok=falseを返す（座標なしレコードは破棄対象）。
func (e *OSMElement) Coordinate() (LatLng, bool) {
	if e.Type == "node" && (e.Lat != 0 || e.Lon != 0) {
		return LatLng{Lat: e.Lat, Lng: e.Lon}, true
	}
	if e.Center != nil {
		return LatLng{Lat: e.Center.Lat, Lng: e.Center.Lon}, true
	}
	return LatLng{}, false
}

// Tag タグ値を取得する（未設定なら空文字列）
func (e *OSMElement) Tag(key string) string {
	if e.Tags == nil {
		return ""
	}
	return e.Tags[key]
}

// ShelterFeature 公共避難所（tilfluktsrom）WFSフィーチャの生データ。
// 上流XMLの任意属性は欠落し得るため、数値以外はすべて文字列のまま保持する。
type ShelterFeature struct {
	FeatureID string  // gml:id
	Address   string  // adresse（任意）
	Capacity  int     // plasser（任意、0 = 不明）
	District  string  // kommune（任意）
	Lat       float64
	Lon       float64
}

// TransitStop 交通機関停留所レジストリの生レコード
type TransitStop struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Lat      float64 `json:"latitude"`
	Lng      float64 `json:"longitude"`
	StopType string  `json:"stopType"` // "onstreetBus" / "railStation" など
}
