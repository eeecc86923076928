package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"Kartlag-App/internal/domain/model"
)

// CategoryInfo カテゴリコード1つ分の表示メタデータ
type CategoryInfo struct {
	Code         string `yaml:"code"`
	Label        string `yaml:"label"`         // UI表示用ラベル（説明文の先頭にも使用）
	Color        string `yaml:"color"`         // マーカー表示色
	FallbackName string `yaml:"fallback_name"` // 名前欠落時の生成名
}

// Catalog カテゴリコード→表示メタデータの引き当て表
type Catalog map[string]CategoryInfo

// Info カテゴリコードのメタデータを返す（未定義コードは灰色の汎用表示）
func (c Catalog) Info(code string) CategoryInfo {
	if info, ok := c[code]; ok {
		return info
	}
	return CategoryInfo{Code: code, Label: code, Color: "#7f8c8d", FallbackName: "Ukjent sted"}
}

// DefaultCatalog 組み込みのカテゴリメタデータ
func DefaultCatalog() Catalog {
	return Catalog{
		"viewpoints":          {Code: "viewpoints", Label: "Utsiktspunkt", Color: "#2980b9", FallbackName: "Utsiktspunkt"},
		"wilderness_shelters": {Code: "wilderness_shelters", Label: "Gapahuk / skjul", Color: "#27ae60", FallbackName: "Gapahuk"},
		"drinking_water":      {Code: "drinking_water", Label: "Drikkevann", Color: "#3498db", FallbackName: "Drikkevannskilde"},
		"war_memorials":       {Code: "war_memorials", Label: "Krigsminne", Color: "#8e44ad", FallbackName: "Krigsminne"},
		"civil_shelters":      {Code: "civil_shelters", Label: "Tilfluktsrom", Color: "#c0392b", FallbackName: "Offentlig tilfluktsrom"},
		"bus_stops":           {Code: "bus_stops", Label: "Bussholdeplass", Color: "#e67e22", FallbackName: "Bussholdeplass"},
		"rail_stations":       {Code: "rail_stations", Label: "Togstasjon", Color: "#d35400", FallbackName: "Togstasjon"},
		"forest_cover":        {Code: "forest_cover", Label: "Skogdekke", Color: "#16a085", FallbackName: ""},
		"trail_network":       {Code: "trail_network", Label: "Turstier", Color: "#2c3e50", FallbackName: ""},
		"custom_places":       {Code: "custom_places", Label: "Mine steder", Color: "#f39c12", FallbackName: "Eget sted"},
	}
}

// DefaultCategoryTree 組み込みのカテゴリツリー（チェックボックス階層）
func DefaultCategoryTree() (*model.CategoryTree, error) {
	roots := []*model.CategoryNode{
		{
			ID: "nature", Label: "Natur og friluftsliv",
			Children: []*model.CategoryNode{
				{ID: "viewpoints", Label: "Utsiktspunkt", Codes: []string{"viewpoints"}},
				{ID: "wilderness_shelters", Label: "Gapahuk / skjul", Codes: []string{"wilderness_shelters"}},
				{ID: "drinking_water", Label: "Drikkevann", Codes: []string{"drinking_water"}},
				{ID: "forest_cover", Label: "Skogdekke", Codes: []string{"forest_cover"}},
				{ID: "trail_network", Label: "Turstier", Codes: []string{"trail_network"}},
			},
		},
		{
			ID: "history", Label: "Kultur og historie",
			Children: []*model.CategoryNode{
				{ID: "war_memorials", Label: "Krigsminne", Codes: []string{"war_memorials"}},
			},
		},
		{
			ID: "preparedness", Label: "Beredskap",
			Children: []*model.CategoryNode{
				{ID: "civil_shelters", Label: "Tilfluktsrom", Codes: []string{"civil_shelters"}},
			},
		},
		{
			ID: "transit", Label: "Kollektivtransport",
			Children: []*model.CategoryNode{
				{ID: "bus_stops", Label: "Bussholdeplasser", Codes: []string{"bus_stops"}},
				{ID: "rail_stations", Label: "Togstasjoner", Codes: []string{"rail_stations"}},
			},
		},
		{
			ID: "custom", Label: "Mine steder", Codes: []string{"custom_places"},
		},
	}
	return model.NewCategoryTree(roots)
}

// treeFile カテゴリツリーYAMLファイルのルート構造
type treeFile struct {
	Categories []*model.CategoryNode `yaml:"categories"`
}

// LoadCategoryTree YAMLファイルからカテゴリツリーを読み込む。
// パスが空の場合は組み込みツリーを返す。
func LoadCategoryTree(path string) (*model.CategoryTree, error) {
	if path == "" {
		return DefaultCategoryTree()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("カテゴリツリーファイルの読み込みに失敗: %w", err)
	}

	var file treeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("カテゴリツリーYAMLのパースに失敗: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("カテゴリツリーファイルにカテゴリが定義されていません: %s", path)
	}

	return model.NewCategoryTree(file.Categories)
}
