package render

import (
	"log"
	"sync"

	"Kartlag-App/internal/domain/model"
)

// HostMap ベース地図エンジンへの薄いアダプター。
// レイヤー登録・表示切り替えのプリミティブのみを公開する（描画エンジン本体は対象外）。
type HostMap interface {
	AddRasterLayer(desc model.RasterLayerDescriptor) error
	SetRasterVisibility(id string, visible bool) error
}

// Marker POI1件分の表示マーカー。位置は毎フレーム射影し直す。
type Marker struct {
	POI     model.POI   `json:"poi"`
	Screen  ScreenPoint `json:"screen"`
	Scale   float64     `json:"scale"`   // ホバー時は拡大
	ZIndex  int         `json:"z_index"` // ホバー時は前面へ
	Hovered bool        `json:"hovered"`
}

// Popup 開いている詳細ポップアップ（常に高々1つ）
type Popup struct {
	POIID  string      `json:"poi_id"`
	Anchor ScreenPoint `json:"anchor"`
}

// OverlayRenderer マーカーとラスターレイヤーを地図フレームに同期させ続けるレンダラー。
// 位置の再計算は純粋な算術のみで行い、フレームイベント中にネットワーク呼び出しは発生しない。
type OverlayRenderer struct {
	host HostMap

	mu        sync.Mutex
	transform ViewportTransform
	markers   map[string]*Marker
	popup     *Popup

	// registered 遅延登録済みのラスターレイヤー。
	// ベーススタイル入れ替え後はエンジン側で破棄されるため、再追加が必要になる。
	registered map[string]model.RasterLayerDescriptor
}

// NewOverlayRenderer ホスト地図アダプターを受け取ってレンダラーを作成
func NewOverlayRenderer(host HostMap) *OverlayRenderer {
	return &OverlayRenderer{
		host:       host,
		markers:    make(map[string]*Marker),
		registered: make(map[string]model.RasterLayerDescriptor),
	}
}

// SetPOIs POIリストの置き換え。既存マーカーをすべて破棄して作り直す。
// 開いていたポップアップのPOIが消えた場合はポップアップも閉じる。
func (r *OverlayRenderer) SetPOIs(pois []model.POI) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.markers = make(map[string]*Marker, len(pois))
	for _, poi := range pois {
		r.markers[poi.ID] = &Marker{
			POI:    poi,
			Screen: Project(poi.Location, r.transform),
			Scale:  1.0,
		}
	}
	if r.popup != nil {
		if _, exists := r.markers[r.popup.POIID]; !exists {
			r.popup = nil
		}
	}
}

// OnFrame 地図のmove/zoomフレームイベント。全マーカー位置とポップアップのアンカーを
// 現在の射影で再計算する。独立したアニメーションループは持たない。
func (r *OverlayRenderer) OnFrame(t ViewportTransform) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transform = t
	for _, m := range r.markers {
		m.Screen = Project(m.POI.Location, t)
	}
	if r.popup != nil {
		if m, ok := r.markers[r.popup.POIID]; ok {
			r.popup.Anchor = m.Screen
		}
	}
}

// Hover 指定マーカーを拡大・前面化する（他のマーカーのホバーは解除）
func (r *OverlayRenderer) Hover(poiID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, m := range r.markers {
		if id == poiID {
			m.Hovered = true
			m.Scale = 1.4
			m.ZIndex = 1000
		} else if m.Hovered {
			m.Hovered = false
			m.Scale = 1.0
			m.ZIndex = 0
		}
	}
}

// Click マーカークリック。既存のポップアップを置き換えて、
// マーカーの現在画面位置にアンカーした詳細ポップアップをちょうど1つ開く。
func (r *OverlayRenderer) Click(poiID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.markers[poiID]
	if !ok {
		return false
	}
	r.popup = &Popup{POIID: poiID, Anchor: m.Screen}
	return true
}

// ClickOutside マーカーとポップアップの外側のクリック。ポップアップを閉じる。
func (r *OverlayRenderer) ClickOutside() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.popup = nil
}

// Popup 現在開いているポップアップ（なければnil）
func (r *OverlayRenderer) Popup() *Popup {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.popup == nil {
		return nil
	}
	p := *r.popup
	return &p
}

// Markers 現在のマーカーのスナップショットを返す
func (r *OverlayRenderer) Markers() []Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Marker, 0, len(r.markers))
	for _, m := range r.markers {
		out = append(out, *m)
	}
	return out
}

// SyncRasterLayers ディスパッチ結果のラスター記述子を地図エンジンへ同期する。
// 初回有効化時のみレイヤーを遅延追加し、以後は表示フラグの切り替えのみ。
// 結果に含まれなくなった登録済みレイヤーは非表示にする（削除はしない）。
func (r *OverlayRenderer) SyncRasterLayers(descriptors []model.RasterLayerDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := make(map[string]bool, len(descriptors))
	for _, desc := range descriptors {
		active[desc.ID] = true
		if _, ok := r.registered[desc.ID]; !ok {
			// 初回有効化：遅延登録
			if err := r.host.AddRasterLayer(desc); err != nil {
				log.Printf("⚠️  ラスターレイヤー%sの追加に失敗: %v", desc.ID, err)
				continue
			}
			r.registered[desc.ID] = desc
		}
		if err := r.host.SetRasterVisibility(desc.ID, desc.Visible); err != nil {
			log.Printf("⚠️  ラスターレイヤー%sの表示切替に失敗: %v", desc.ID, err)
		}
	}

	for id := range r.registered {
		if !active[id] {
			if err := r.host.SetRasterVisibility(id, false); err != nil {
				log.Printf("⚠️  ラスターレイヤー%sの非表示化に失敗: %v", id, err)
			}
		}
	}
}

// OnStyleReloaded ベーススタイル入れ替え完了シグナル（地図エンジンのstyle-loadedイベント）。
// スタイル入れ替えは追加済みレイヤー・ソースを破棄するため、登録済みレイヤーを
// 「再表示」ではなく「再追加」してから表示状態を復元する。
func (r *OverlayRenderer) OnStyleReloaded(activeIDs map[string]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, desc := range r.registered {
		if err := r.host.AddRasterLayer(desc); err != nil {
			log.Printf("⚠️  スタイル入替後のラスターレイヤー%s再追加に失敗: %v", id, err)
			continue
		}
		if err := r.host.SetRasterVisibility(id, activeIDs[id] && desc.Visible); err != nil {
			log.Printf("⚠️  スタイル入替後のラスターレイヤー%s表示復元に失敗: %v", id, err)
		}
	}
}
