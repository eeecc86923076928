package repository

import (
	"context"

	"Kartlag-App/internal/domain/model"
)

// CustomPOIsRepository ユーザー独自スポットの永続化コラボレーター。
// ディスパッチサイクルはアクティブカテゴリでフィルタした独自スポットをマージする。
type CustomPOIsRepository interface {
	// ListByCategories 指定カテゴリに属する独自スポットを取得する
	ListByCategories(ctx context.Context, categories []string) ([]model.CustomPOI, error)

	// Create 独自スポットを保存する（IDは呼び出し側で採番済み）
	Create(ctx context.Context, poi *model.CustomPOI) error

	// Delete 独自スポットを削除する
	Delete(ctx context.Context, id string) error
}
