package service

import (
	"fmt"
	"strings"
	"time"

	"Kartlag-App/internal/config"
	"Kartlag-App/internal/domain/model"
)

// Normalizer ソース固有の生レコードを統一POIスキーマへ変換する。
// 国境バウンディングボックス外の座標と座標なしレコードはここで黙って破棄される
// （bboxフィルタをすり抜けた隣国のマッチに対する防衛線）。
type Normalizer struct {
	catalog config.Catalog
	now     func() time.Time
}

// NewNormalizer カテゴリメタデータ付きでNormalizerを作成
func NewNormalizer(catalog config.Catalog) *Normalizer {
	return &Normalizer{catalog: catalog, now: time.Now}
}

// Normalize 生レコードをPOIに変換する。破棄すべきレコードは ok=false を返す。
func (n *Normalizer) Normalize(raw model.RawRecord, categoryCode string) (*model.POI, bool) {
	info := n.catalog.Info(categoryCode)

	switch {
	case raw.OSM != nil:
		return n.normalizeOSM(raw.OSM, info)
	case raw.Shelter != nil:
		return n.normalizeShelter(raw.Shelter, info)
	case raw.Stop != nil:
		return n.normalizeStop(raw.Stop, info)
	}
	return nil, false
}

func (n *Normalizer) normalizeOSM(el *model.OSMElement, info config.CategoryInfo) (*model.POI, bool) {
	// ポイントはそのまま、way/relationは提供された重心を使う。座標なしは破棄。
	ll, ok := el.Coordinate()
	if !ok {
		return nil, false
	}
	if !model.InNorwayBounds(ll) {
		return nil, false
	}

	name := resolveName(el.Tag("name:no"), el.Tag("name"), info.FallbackName, nearbyPlace(el))
	desc := assembleDescription(info.Label, el.Tags)

	return &model.POI{
		ID:          fmt.Sprintf("osm-%s-%d", el.Type, el.ID),
		Name:        RepairMojibake(name),
		Description: RepairMojibake(desc),
		Category:    info.Code,
		Location:    ll,
		Color:       info.Color,
		Source:      model.SourceOverpass,
		UpdatedAt:   n.now(),
	}, true
}

func (n *Normalizer) normalizeShelter(s *model.ShelterFeature, info config.CategoryInfo) (*model.POI, bool) {
	ll := model.LatLng{Lat: s.Lat, Lng: s.Lon}
	if !model.InNorwayBounds(ll) {
		return nil, false
	}

	name := resolveName("", s.Address, info.FallbackName, s.District)

	attrs := map[string]string{}
	if s.Capacity > 0 {
		attrs["capacity"] = fmt.Sprintf("%d", s.Capacity)
	}
	desc := assembleDescription(info.Label, attrs)

	poi := &model.POI{
		ID:          "shelter-" + s.FeatureID,
		Name:        RepairMojibake(name),
		Description: RepairMojibake(desc),
		Category:    info.Code,
		Location:    ll,
		Color:       info.Color,
		Source:      model.SourceShelter,
		UpdatedAt:   n.now(),
	}
	if s.District != "" {
		poi.Enrichment = map[string]string{"kommune": s.District}
	}
	return poi, true
}

func (n *Normalizer) normalizeStop(s *model.TransitStop, info config.CategoryInfo) (*model.POI, bool) {
	ll := model.LatLng{Lat: s.Lat, Lng: s.Lng}
	if !model.InNorwayBounds(ll) {
		return nil, false
	}

	name := resolveName("", s.Name, info.FallbackName, "")

	return &model.POI{
		ID:          "transit-" + s.ID,
		Name:        RepairMojibake(name),
		Description: info.Label,
		Category:    info.Code,
		Location:    ll,
		Color:       info.Color,
		Source:      model.SourceTransit,
		UpdatedAt:   n.now(),
	}, true
}

// placeholderNames 「名前あり」とみなさない既知のプレースホルダ
var placeholderNames = map[string]bool{
	"unknown":   true,
	"ukjent":    true,
	"uten navn": true,
	"noname":    true,
	"?":         true,
	"-":         true,
}

func isPlaceholder(name string) bool {
	return placeholderNames[strings.ToLower(strings.TrimSpace(name))]
}

// resolveName 名前解決の優先順位:
// ローカライズ名 → 汎用名 → カテゴリ別の生成フォールバック（近傍地名があれば付加）。
// 空文字と既知のプレースホルダは「名前なし」として扱う。
func resolveName(localized, generic, fallback, place string) string {
	if localized != "" && !isPlaceholder(localized) {
		return localized
	}
	if generic != "" && !isPlaceholder(generic) {
		return generic
	}
	if place != "" && fallback != "" {
		return fallback + " ved " + place
	}
	return fallback
}

// nearbyPlace フォールバック名に付加する近傍地名属性を探す
func nearbyPlace(el *model.OSMElement) string {
	for _, key := range []string{"addr:place", "addr:city", "is_in"} {
		if v := el.Tag(key); v != "" {
			return v
		}
	}
	return ""
}

// descriptionAttr 説明文に取り込む属性1つ分の翻訳定義
type descriptionAttr struct {
	key       string
	translate map[string]string // 既知値の翻訳。未知値はそのまま通す
	format    string            // 値を埋め込む書式（translateにない場合）
}

// descriptionOrder 属性由来の節を組み立てる固定優先順位。
// この順序は決定的で、同じ入力からは常に同じ説明文が生成される。
var descriptionOrder = []descriptionAttr{
	{key: "access", translate: map[string]string{
		"yes":        "allment tilgjengelig",
		"public":     "allment tilgjengelig",
		"private":    "privat",
		"permissive": "åpen etter avtale",
		"no":         "stengt for allmennheten",
	}, format: "%s"},
	{key: "capacity", format: "plass til %s"},
	{key: "fee", translate: map[string]string{
		"yes": "avgift",
		"no":  "gratis",
	}, format: "%s"},
	{key: "fireplace", translate: map[string]string{
		"yes": "bålplass",
	}, format: "utstyr: %s"},
	{key: "ele", format: "%s moh."},
	{key: "start_date", format: "oppført %s"},
}

// assembleDescription カテゴリラベルに属性由来の節を固定順で連結する
func assembleDescription(label string, attrs map[string]string) string {
	if len(attrs) == 0 {
		return label
	}
	clauses := make([]string, 0, len(descriptionOrder))
	for _, attr := range descriptionOrder {
		value, ok := attrs[attr.key]
		if !ok || value == "" {
			continue
		}
		if translated, ok := attr.translate[value]; ok {
			clauses = append(clauses, translated)
			continue
		}
		clauses = append(clauses, fmt.Sprintf(attr.format, value))
	}
	if len(clauses) == 0 {
		return label
	}
	return label + " – " + strings.Join(clauses, ", ")
}
