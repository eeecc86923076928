package render

import (
	"math"

	"Kartlag-App/internal/domain/model"
)

// tileSize Webメルカトルのワールド座標基準タイルサイズ
const tileSize = 256.0

// ViewportTransform 地図エンジンのフレームイベントが運ぶ射影パラメータ
type ViewportTransform struct {
	Center   model.LatLng
	Zoom     float64
	WidthPx  float64
	HeightPx float64
}

// ScreenPoint 画面ピクセル座標
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Project 地理座標を現在の画面ピクセル座標へ射影する純粋関数。
// ツールキット非依存で、毎フレーム呼ばれるためネットワークも副作用も持たない。
func Project(coord model.LatLng, t ViewportTransform) ScreenPoint {
	worldCoord := toWorld(coord, t.Zoom)
	worldCenter := toWorld(t.Center, t.Zoom)
	return ScreenPoint{
		X: worldCoord.X - worldCenter.X + t.WidthPx/2,
		Y: worldCoord.Y - worldCenter.Y + t.HeightPx/2,
	}
}

// toWorld Webメルカトルのワールドピクセル座標へ変換
func toWorld(coord model.LatLng, zoom float64) ScreenPoint {
	worldSize := tileSize * math.Pow(2, zoom)
	x := (coord.Lng + 180.0) / 360.0 * worldSize
	latRad := coord.Lat * math.Pi / 180.0
	y := (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * worldSize
	return ScreenPoint{X: x, Y: y}
}
