package repository

import (
	"context"
	"fmt"

	"google.golang.org/api/iterator"

	"Kartlag-App/internal/domain/model"
	"Kartlag-App/internal/domain/repository"
	"Kartlag-App/internal/infrastructure/firestore"
)

const customPOICollection = "customPois"

// FirestoreCustomPOIsRepository Firestoreを使用した独自スポットリポジトリ
type FirestoreCustomPOIsRepository struct {
	client *firestore.FirestoreClient
}

// NewFirestoreCustomPOIsRepository 新しいFirestoreCustomPOIsRepositoryインスタンスを作成
func NewFirestoreCustomPOIsRepository(client *firestore.FirestoreClient) repository.CustomPOIsRepository {
	return &FirestoreCustomPOIsRepository{
		client: client,
	}
}

func (r *FirestoreCustomPOIsRepository) ListByCategories(ctx context.Context, categories []string) ([]model.CustomPOI, error) {
	if len(categories) == 0 {
		return nil, nil
	}

	// Firestoreのin句は最大10要素のため分割して発行する
	var pois []model.CustomPOI
	for start := 0; start < len(categories); start += 10 {
		end := start + 10
		if end > len(categories) {
			end = len(categories)
		}

		iter := r.client.Collection(customPOICollection).
			Where("category", "in", toAnySlice(categories[start:end])).
			Documents(ctx)

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("独自スポットドキュメントの取得失敗: %w", err)
			}
			var poi model.CustomPOI
			if err := doc.DataTo(&poi); err != nil {
				return nil, fmt.Errorf("独自スポットドキュメントの変換失敗: %w", err)
			}
			pois = append(pois, poi)
		}
	}

	return pois, nil
}

func (r *FirestoreCustomPOIsRepository) Create(ctx context.Context, poi *model.CustomPOI) error {
	_, err := r.client.Collection(customPOICollection).Doc(poi.ID).Set(ctx, poi)
	if err != nil {
		return fmt.Errorf("独自スポットの保存に失敗しました: %w", err)
	}
	return nil
}

func (r *FirestoreCustomPOIsRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.Collection(customPOICollection).Doc(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("独自スポットの削除に失敗しました: %w", err)
	}
	return nil
}

func toAnySlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
