package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Kartlag-App/internal/domain/model"
)

// deepTree 深さ3のテスト用ツリーを作成
func deepTree(t *testing.T) *model.CategoryTree {
	t.Helper()
	tree, err := model.NewCategoryTree([]*model.CategoryNode{
		{
			ID: "root", Label: "Rot",
			Children: []*model.CategoryNode{
				{
					ID: "mid-a", Label: "A",
					Children: []*model.CategoryNode{
						{ID: "leaf-a1", Label: "A1", Codes: []string{"code_a1"}},
						{ID: "leaf-a2", Label: "A2", Codes: []string{"code_a2"}},
					},
				},
				{ID: "mid-b", Label: "B", Codes: []string{"code_b"}},
			},
		},
	})
	require.NoError(t, err)
	return tree
}

func TestToggleParentCascadesToAllDescendants(t *testing.T) {
	tree := deepTree(t)
	s := NewCategoryState(tree, nil, nil)

	require.NoError(t, s.Toggle("root"))
	for _, id := range []string{"root", "mid-a", "leaf-a1", "leaf-a2", "mid-b"} {
		assert.True(t, s.IsChecked(id), "%sがチェック済みになること", id)
	}

	require.NoError(t, s.Toggle("root"))
	for _, id := range []string{"root", "mid-a", "leaf-a1", "leaf-a2", "mid-b"} {
		assert.False(t, s.IsChecked(id), "%sが解除されること", id)
	}
}

func TestToggleAllChildrenChecksParent(t *testing.T) {
	tree := deepTree(t)
	s := NewCategoryState(tree, nil, nil)

	require.NoError(t, s.Toggle("leaf-a1"))
	assert.False(t, s.IsChecked("mid-a"), "兄弟が混在している間は親は据え置き")

	require.NoError(t, s.Toggle("leaf-a2"))
	assert.True(t, s.IsChecked("mid-a"), "全子チェックで親もチェック済みになること")

	// 全チェック状態から1つ解除すると親も解除…ではなく混在なので据え置き→
	// ただし「全解除」になった場合のみ親が解除される
	require.NoError(t, s.Toggle("leaf-a1"))
	assert.True(t, s.IsChecked("mid-a"), "混在状態では親フラグは変更されないこと")

	require.NoError(t, s.Toggle("leaf-a2"))
	assert.False(t, s.IsChecked("mid-a"), "全子解除で親も解除されること")
}

func TestActiveCodesFromCheckedDataNodes(t *testing.T) {
	tree := deepTree(t)
	s := NewCategoryState(tree, nil, nil)

	require.NoError(t, s.Toggle("mid-a"))
	assert.Equal(t, []string{"code_a1", "code_a2"}, s.ActiveCodes())

	require.NoError(t, s.Toggle("mid-b"))
	assert.Equal(t, []string{"code_a1", "code_a2", "code_b"}, s.ActiveCodes())
}

func TestToggleUnknownNode(t *testing.T) {
	s := NewCategoryState(deepTree(t), nil, nil)
	assert.Error(t, s.Toggle("no-such-node"))
}

func TestDebouncedDispatchAbsorbsRapidToggles(t *testing.T) {
	tree := deepTree(t)

	var mu sync.Mutex
	dispatches := 0
	var lastActive []string

	s := NewCategoryState(tree, func(v model.ViewportWindow, active []string) {
		mu.Lock()
		dispatches++
		lastActive = active
		mu.Unlock()
	}, nil)
	s.debounce = 30 * time.Millisecond
	s.SetViewport(model.ViewportWindow{North: 60, South: 59, East: 11, West: 10, Zoom: 12})

	// 素早い連続トグルは1回のディスパッチに吸収される
	require.NoError(t, s.Toggle("leaf-a1"))
	require.NoError(t, s.Toggle("leaf-a2"))
	require.NoError(t, s.Toggle("mid-b"))

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, dispatches, "デバウンスにより1回だけディスパッチされること")
	assert.Equal(t, []string{"code_a1", "code_a2", "code_b"}, lastActive)
}

func TestEmptySelectionClearsImmediately(t *testing.T) {
	tree := deepTree(t)

	var mu sync.Mutex
	dispatches, clears := 0, 0

	s := NewCategoryState(tree, func(v model.ViewportWindow, active []string) {
		mu.Lock()
		dispatches++
		mu.Unlock()
	}, func() {
		mu.Lock()
		clears++
		mu.Unlock()
	})
	s.debounce = 30 * time.Millisecond
	s.SetViewport(model.ViewportWindow{North: 60, South: 59, East: 11, West: 10, Zoom: 12})

	require.NoError(t, s.Toggle("leaf-a1")) // チェック→ディスパッチ予約
	require.NoError(t, s.Toggle("leaf-a1")) // 解除→アクティブ集合が空→即時クリア

	mu.Lock()
	assert.Equal(t, 1, clears, "空になった瞬間に（デバウンスを待たず）クリアされること")
	mu.Unlock()

	// 予約済みディスパッチはキャンセルされている
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Zero(t, dispatches, "クリア後に古いディスパッチが発火しないこと")
	mu.Unlock()
}

func TestDispatchRequiresKnownViewport(t *testing.T) {
	tree := deepTree(t)
	dispatched := make(chan struct{}, 1)

	s := NewCategoryState(tree, func(v model.ViewportWindow, active []string) {
		dispatched <- struct{}{}
	}, nil)
	s.debounce = 10 * time.Millisecond

	// ビューポート未受信の間はディスパッチしない
	require.NoError(t, s.Toggle("leaf-a1"))
	select {
	case <-dispatched:
		t.Fatal("ビューポート未受信でディスパッチされた")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSetExpandedDoesNotAffectChecked(t *testing.T) {
	s := NewCategoryState(deepTree(t), nil, nil)
	s.SetExpanded("root", true)

	checked, expanded := s.Snapshot()
	assert.True(t, expanded["root"])
	assert.False(t, checked["root"])
}
