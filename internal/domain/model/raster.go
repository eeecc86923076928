package model

// RasterLayerDescriptor WMSラスターレイヤーの記述子。
// ポイントマーカーではなく、サーバーレンダリング済みタイル画像として表示するレイヤー。
// (source, layer-type) ごとに1つだけ存在し、再登録は冪等。
type RasterLayerDescriptor struct {
	ID          string  `json:"id"`           // レイヤーID（例: "raster-forest_cover"）
	Category    string  `json:"category"`     // 対応するカテゴリコード
	TileURL     string  `json:"tile_url"`     // タイルURLテンプレート（{bbox-epsg-3857}等のプレースホルダ含む）
	Opacity     float64 `json:"opacity"`      // 0.0〜1.0
	Visible     bool    `json:"visible"`      // 表示状態
	Attribution string  `json:"attribution"`  // 出典表示
}
