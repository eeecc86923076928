package adapter

import (
	"context"

	"Kartlag-App/internal/domain/model"
)

// Result アダプター呼び出しの結果。ポイント系ソースはRecordsを、
// ラスター系ソースはRasterを返す（どちらか一方のみ）。
type Result struct {
	Records []model.RawRecord
	Raster  *model.RasterLayerDescriptor

	// Warnings 呼び出し自体は成功したが劣化モードで動作した場合のUI向け警告
	Warnings []string

	// Skipped ズームゲート等により意図的に取得を省略した場合true。
	// 省略は意味のある結果ではないため、キャッシュしてはならない。
	Skipped bool
}

// SourceAdapter 外部地理データサービス1つをプロトコル変換するアダプターの共通契約。
// 失敗はアダプター境界でキャッチし「空の結果＋警告」に変換するのが原則だが、
// Fetchそのものはエラーを返し、変換はディスパッチャー側の収集処理で行う。
type SourceAdapter interface {
	// Source 取得元サービスの識別子（キャッシュキーと警告文で使用）
	Source() string

	// DisplayName UI警告バナー用のデータソース表示名
	DisplayName() string

	// FetchCategory 表示範囲とカテゴリコードから生レコード群またはラスター記述子を取得する
	FetchCategory(ctx context.Context, viewport model.ViewportWindow, categoryID string) (*Result, error)
}
