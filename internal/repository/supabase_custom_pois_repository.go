package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"Kartlag-App/internal/domain/model"
	"Kartlag-App/internal/domain/repository"
	"Kartlag-App/internal/infrastructure/database"
)

type SupabaseCustomPOIsRepository struct {
	client *database.SupabaseClient
}

func NewSupabaseCustomPOIsRepository(client *database.SupabaseClient) repository.CustomPOIsRepository {
	return &SupabaseCustomPOIsRepository{
		client: client,
	}
}

func (r *SupabaseCustomPOIsRepository) ListByCategories(ctx context.Context, categories []string) ([]model.CustomPOI, error) {
	if len(categories) == 0 {
		return nil, nil
	}

	var pois []model.CustomPOI
	data, count, err := r.client.GetClient().From("custom_pois").
		Select("*", "exact", false).
		In("category", categories).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("独自スポットデータの取得失敗: %w", err)
	}
	_ = count

	if err := json.Unmarshal([]byte(data), &pois); err != nil {
		return nil, fmt.Errorf("独自スポットデータのJSONアンマーシャル失敗: %w", err)
	}

	return pois, nil
}

func (r *SupabaseCustomPOIsRepository) Create(ctx context.Context, poi *model.CustomPOI) error {
	data, err := json.Marshal(poi)
	if err != nil {
		return fmt.Errorf("独自スポットデータのJSONマーシャル失敗: %w", err)
	}

	_, _, err = r.client.GetClient().From("custom_pois").Insert(string(data), false, "", "", "").Execute()
	if err != nil {
		return fmt.Errorf("独自スポットデータの作成失敗: %w", err)
	}
	return nil
}

func (r *SupabaseCustomPOIsRepository) Delete(ctx context.Context, id string) error {
	_, _, err := r.client.GetClient().From("custom_pois").Delete("", "").Eq("id", id).Execute()
	if err != nil {
		return fmt.Errorf("独自スポットデータの削除失敗: %w", err)
	}
	return nil
}
