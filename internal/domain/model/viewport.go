package model

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ViewportWindow 地図エンジンがパン・ズーム確定時に発行する表示範囲
type ViewportWindow struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
	Zoom  float64 `json:"zoom"`
}

// Bound orb.Bound（[west, south] - [east, north]）に変換する
func (v ViewportWindow) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{v.West, v.South},
		Max: orb.Point{v.East, v.North},
	}
}

// Contains 指定座標が表示範囲内にあるかチェック
func (v ViewportWindow) Contains(ll LatLng) bool {
	return v.Bound().Contains(orb.Point{ll.Lng, ll.Lat})
}

// QuantizedKey キャッシュキー用に量子化したbbox文字列を返す。
// 各辺を0.01度グリッドに丸めることで、わずかなパン操作では同じキーを共有する。
// 整数ズームもバケットとして含める：ズームゲート付きソース（停留所など）では
// 同一bboxでもゲート判定が変わるため、ズーム違いのエントリを共有してはならない。
func (v ViewportWindow) QuantizedKey() string {
	q := func(x float64) float64 { return math.Round(x*100) / 100 }
	return fmt.Sprintf("%.2f,%.2f,%.2f,%.2f@z%d", q(v.South), q(v.West), q(v.North), q(v.East), int(math.Floor(v.Zoom)))
}

// BBoxString WFSなどのbboxパラメータ用の "south,west,north,east" 文字列
func (v ViewportWindow) BBoxString() string {
	return fmt.Sprintf("%f,%f,%f,%f", v.South, v.West, v.North, v.East)
}

// ノルウェー本土の国境バウンディングボックス。
// 隣国（スウェーデン・フィンランド等）のマッチ混入を防ぐための座標範囲。
var NorwayBounds = orb.Bound{
	Min: orb.Point{4.0, 57.5},
	Max: orb.Point{32.0, 72.0},
}

// InNorwayBounds 座標がノルウェーの国境バウンディングボックス内にあるかチェック
func InNorwayBounds(ll LatLng) bool {
	return NorwayBounds.Contains(orb.Point{ll.Lng, ll.Lat})
}
