package model

import "time"

// OverlayResult 1回のディスパッチサイクルの成果物。
// 全アダプター呼び出しが完了した後にのみ公開される（部分公開なし＝ちらつき防止）。
type OverlayResult struct {
	Sequence     uint64                  `json:"sequence"`      // 単調増加のサイクル番号
	Viewport     ViewportWindow          `json:"viewport"`      // サイクル発行時の表示範囲
	POIs         []POI                   `json:"pois"`          // マージ・重複排除済みPOI
	RasterLayers []RasterLayerDescriptor `json:"raster_layers"` // 有効なラスターレイヤー
	Warnings     []string                `json:"warnings"`      // 人間可読の警告（ソース単位）
	GeneratedAt  time.Time               `json:"generated_at"`
}

// WarningSummary サイクル内の警告を1つのUI向けサマリー文字列にまとめる。
// 生のエラー詳細は含めず、影響を受けたデータソース名のみを一般的な表現で伝える。
func (r *OverlayResult) WarningSummary() string {
	if len(r.Warnings) == 0 {
		return ""
	}
	summary := r.Warnings[0]
	for _, w := range r.Warnings[1:] {
		summary += " / " + w
	}
	return summary
}
