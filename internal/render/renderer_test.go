package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Kartlag-App/internal/domain/model"
)

// fakeHostMap 地図エンジン呼び出しを記録するフェイク
type fakeHostMap struct {
	added      []string
	visibility map[string]bool
}

func newFakeHostMap() *fakeHostMap {
	return &fakeHostMap{visibility: make(map[string]bool)}
}

func (f *fakeHostMap) AddRasterLayer(desc model.RasterLayerDescriptor) error {
	f.added = append(f.added, desc.ID)
	return nil
}

func (f *fakeHostMap) SetRasterVisibility(id string, visible bool) error {
	f.visibility[id] = visible
	return nil
}

func testPOIs() []model.POI {
	return []model.POI{
		{ID: "osm-node-1", Name: "Utsikten", Location: model.LatLng{Lat: 59.92, Lng: 10.75}},
		{ID: "osm-node-2", Name: "Minnesmerke", Location: model.LatLng{Lat: 59.90, Lng: 10.74}},
	}
}

func TestSetPOIsReplacesAllMarkers(t *testing.T) {
	r := NewOverlayRenderer(newFakeHostMap())
	r.OnFrame(osloTransform(13))

	r.SetPOIs(testPOIs())
	assert.Len(t, r.Markers(), 2)

	r.SetPOIs([]model.POI{{ID: "osm-node-3", Location: model.LatLng{Lat: 59.91, Lng: 10.76}}})
	markers := r.Markers()
	require.Len(t, markers, 1, "置き換え時に旧マーカーがすべて破棄されること")
	assert.Equal(t, "osm-node-3", markers[0].POI.ID)
}

func TestOnFrameRecomputesAllPositions(t *testing.T) {
	r := NewOverlayRenderer(newFakeHostMap())
	r.OnFrame(osloTransform(13))
	r.SetPOIs(testPOIs())

	before := r.Markers()

	// 中心を東へパンすると全マーカーが画面左へ動く
	panned := osloTransform(13)
	panned.Center.Lng += 0.02
	r.OnFrame(panned)

	after := r.Markers()
	byID := func(ms []Marker, id string) Marker {
		for _, m := range ms {
			if m.POI.ID == id {
				return m
			}
		}
		t.Fatalf("マーカー%sが見つかりません", id)
		return Marker{}
	}
	for _, id := range []string{"osm-node-1", "osm-node-2"} {
		assert.Less(t, byID(after, id).Screen.X, byID(before, id).Screen.X)
	}
}

func TestHoverEnlargesAndRaisesSingleMarker(t *testing.T) {
	r := NewOverlayRenderer(newFakeHostMap())
	r.OnFrame(osloTransform(13))
	r.SetPOIs(testPOIs())

	r.Hover("osm-node-1")
	for _, m := range r.Markers() {
		if m.POI.ID == "osm-node-1" {
			assert.True(t, m.Hovered)
			assert.Greater(t, m.Scale, 1.0)
			assert.Greater(t, m.ZIndex, 0)
		} else {
			assert.False(t, m.Hovered)
		}
	}

	// 別マーカーへ移ると前のホバーは解除される
	r.Hover("osm-node-2")
	for _, m := range r.Markers() {
		assert.Equal(t, m.POI.ID == "osm-node-2", m.Hovered)
	}
}

func TestClickOpensExactlyOnePopup(t *testing.T) {
	r := NewOverlayRenderer(newFakeHostMap())
	r.OnFrame(osloTransform(13))
	r.SetPOIs(testPOIs())

	require.True(t, r.Click("osm-node-1"))
	popup := r.Popup()
	require.NotNil(t, popup)
	assert.Equal(t, "osm-node-1", popup.POIID)

	// 2つ目のクリックは前のポップアップを置き換える
	require.True(t, r.Click("osm-node-2"))
	popup = r.Popup()
	require.NotNil(t, popup)
	assert.Equal(t, "osm-node-2", popup.POIID)

	// 外側クリックで閉じる
	r.ClickOutside()
	assert.Nil(t, r.Popup())

	// 存在しないマーカーのクリックは無視
	assert.False(t, r.Click("no-such-poi"))
}

func TestPopupAnchorFollowsFrames(t *testing.T) {
	r := NewOverlayRenderer(newFakeHostMap())
	r.OnFrame(osloTransform(13))
	r.SetPOIs(testPOIs())
	require.True(t, r.Click("osm-node-1"))

	before := r.Popup().Anchor
	panned := osloTransform(13)
	panned.Center.Lng += 0.02
	r.OnFrame(panned)
	after := r.Popup().Anchor

	assert.Less(t, after.X, before.X, "ポップアップのアンカーがマーカーの現在位置に追従すること")
}

func TestPopupClosesWhenPOIDisappears(t *testing.T) {
	r := NewOverlayRenderer(newFakeHostMap())
	r.OnFrame(osloTransform(13))
	r.SetPOIs(testPOIs())
	require.True(t, r.Click("osm-node-1"))

	r.SetPOIs([]model.POI{{ID: "osm-node-9", Location: model.LatLng{Lat: 59.9, Lng: 10.7}}})
	assert.Nil(t, r.Popup(), "対象POIが消えたらポップアップも閉じること")
}

func forestDesc() model.RasterLayerDescriptor {
	return model.RasterLayerDescriptor{ID: "raster-forest_cover", Category: "forest_cover", TileURL: "http://wms.test", Visible: true}
}

func TestRasterLayerLazyRegistration(t *testing.T) {
	host := newFakeHostMap()
	r := NewOverlayRenderer(host)

	r.SyncRasterLayers([]model.RasterLayerDescriptor{forestDesc()})
	assert.Equal(t, []string{"raster-forest_cover"}, host.added, "初回有効化で遅延追加されること")
	assert.True(t, host.visibility["raster-forest_cover"])

	// 2回目の同期では再追加せず表示切替のみ
	r.SyncRasterLayers([]model.RasterLayerDescriptor{forestDesc()})
	assert.Len(t, host.added, 1, "再登録は冪等であること")
}

func TestRasterLayerHiddenWhenInactive(t *testing.T) {
	host := newFakeHostMap()
	r := NewOverlayRenderer(host)

	r.SyncRasterLayers([]model.RasterLayerDescriptor{forestDesc()})
	r.SyncRasterLayers(nil)
	assert.False(t, host.visibility["raster-forest_cover"], "結果から消えたレイヤーは非表示になること")
}

func TestStyleReloadReAddsLayers(t *testing.T) {
	host := newFakeHostMap()
	r := NewOverlayRenderer(host)

	r.SyncRasterLayers([]model.RasterLayerDescriptor{forestDesc()})
	require.Len(t, host.added, 1)

	// スタイル入れ替えはエンジン側でレイヤーを破棄する → 再追加が必要
	r.OnStyleReloaded(map[string]bool{"raster-forest_cover": true})
	assert.Len(t, host.added, 2, "style-loadedシグナルで再追加（再表示ではなく）されること")
	assert.True(t, host.visibility["raster-forest_cover"])

	// アクティブでないレイヤーは再追加後も非表示
	r.OnStyleReloaded(map[string]bool{})
	assert.Len(t, host.added, 3)
	assert.False(t, host.visibility["raster-forest_cover"])
}
