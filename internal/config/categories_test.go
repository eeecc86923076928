package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCategoryTree(t *testing.T) {
	tree, err := DefaultCategoryTree()
	require.NoError(t, err)

	assert.NotNil(t, tree.Node("nature"))
	assert.NotNil(t, tree.Node("war_memorials"))

	// 親参照が張られていること
	node := tree.Node("viewpoints")
	require.NotNil(t, node)
	require.NotNil(t, node.Parent())
	assert.Equal(t, "nature", node.Parent().ID)

	// ルートは親を持たない
	assert.Nil(t, tree.Node("custom").Parent())
}

func TestLoadCategoryTreeFromYAML(t *testing.T) {
	yamlContent := `
categories:
  - id: outdoor
    label: Friluftsliv
    children:
      - id: peaks
        label: Topper
        codes: [peaks]
      - id: huts
        label: Hytter
        codes: [huts]
`
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	tree, err := LoadCategoryTree(path)
	require.NoError(t, err)

	huts := tree.Node("huts")
	require.NotNil(t, huts)
	assert.Equal(t, []string{"huts"}, huts.Codes)
	assert.Equal(t, "outdoor", huts.Parent().ID)
}

func TestLoadCategoryTreeEmptyPathUsesDefault(t *testing.T) {
	tree, err := LoadCategoryTree("")
	require.NoError(t, err)
	assert.NotNil(t, tree.Node("civil_shelters"))
}

func TestLoadCategoryTreeRejectsDuplicateIDs(t *testing.T) {
	yamlContent := `
categories:
  - id: a
    label: A
  - id: a
    label: A igjen
`
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	_, err := LoadCategoryTree(path)
	assert.Error(t, err, "ID重複のツリーは拒否されること")
}

func TestCatalogUnknownCode(t *testing.T) {
	catalog := DefaultCatalog()
	info := catalog.Info("no_such_category")
	assert.Equal(t, "no_such_category", info.Label)
	assert.NotEmpty(t, info.Color)
}
