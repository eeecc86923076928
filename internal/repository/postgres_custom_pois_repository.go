package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"Kartlag-App/internal/domain/model"
	"Kartlag-App/internal/domain/repository"
	"Kartlag-App/internal/infrastructure/database"
)

type PostgresCustomPOIsRepository struct {
	client *database.PostgreSQLClient
}

func NewPostgresCustomPOIsRepository(client *database.PostgreSQLClient) repository.CustomPOIsRepository {
	return &PostgresCustomPOIsRepository{
		client: client,
	}
}

func (r *PostgresCustomPOIsRepository) ListByCategories(ctx context.Context, categories []string) ([]model.CustomPOI, error) {
	if len(categories) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, description, category, lat, lng, created_at
		FROM custom_pois
		WHERE category = ANY($1)
		ORDER BY created_at`

	rows, err := r.client.DB.QueryContext(ctx, query, pq.Array(categories))
	if err != nil {
		return nil, fmt.Errorf("独自スポットの取得失敗: %w", err)
	}
	defer rows.Close()

	var pois []model.CustomPOI
	for rows.Next() {
		var poi model.CustomPOI
		if err := rows.Scan(&poi.ID, &poi.Name, &poi.Description, &poi.Category, &poi.Lat, &poi.Lng, &poi.CreatedAt); err != nil {
			return nil, fmt.Errorf("独自スポット行のスキャン失敗: %w", err)
		}
		pois = append(pois, poi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("独自スポットの読み取り中にエラー: %w", err)
	}

	return pois, nil
}

func (r *PostgresCustomPOIsRepository) Create(ctx context.Context, poi *model.CustomPOI) error {
	query := `
		INSERT INTO custom_pois (id, name, description, category, lat, lng, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.client.DB.ExecContext(ctx, query,
		poi.ID, poi.Name, poi.Description, poi.Category, poi.Lat, poi.Lng, poi.CreatedAt)
	if err != nil {
		return fmt.Errorf("独自スポットの作成失敗: %w", err)
	}
	return nil
}

func (r *PostgresCustomPOIsRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.DB.ExecContext(ctx, `DELETE FROM custom_pois WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("独自スポットの削除失敗: %w", err)
	}
	return nil
}
