package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"Kartlag-App/internal/domain/model"
)

// debounceInterval 連続トグルを吸収してからディスパッチを予約するまでの待ち時間
const debounceInterval = 100 * time.Millisecond

// CategoryState カテゴリツリーのチェック状態を管理する状態機械。
// 状態の変更はToggle経由のみ。セッションスコープであり永続化されない。
type CategoryState struct {
	tree *model.CategoryTree

	mu       sync.Mutex
	checked  map[string]bool
	expanded map[string]bool

	lastViewport model.ViewportWindow
	hasViewport  bool

	debounce time.Duration
	timer    *time.Timer

	// onDispatch デバウンス後に最後の既知ビューポートでディスパッチサイクルを予約する
	onDispatch func(viewport model.ViewportWindow, activeCodes []string)
	// onClear アクティブ集合が空になった瞬間に（デバウンスをバイパスして）全POIをクリアする
	onClear func()
}

// NewCategoryState すべて未チェックの初期状態で状態機械を作成
func NewCategoryState(tree *model.CategoryTree, onDispatch func(model.ViewportWindow, []string), onClear func()) *CategoryState {
	return &CategoryState{
		tree:       tree,
		checked:    make(map[string]bool),
		expanded:   make(map[string]bool),
		debounce:   debounceInterval,
		onDispatch: onDispatch,
		onClear:    onClear,
	}
}

// Toggle 指定ノードのチェック状態を遷移させる。
//  1. ノード自身のフラグを反転
//  2. 子を持つ場合、全子孫を新しい値に強制
//  3. 親を持つ場合、親を再計算（全兄弟チェック→チェック、全解除→解除、混在→据え置き）
//
// 副作用としてアクティブコード集合を再計算し、デバウンス後のディスパッチを予約する。
func (s *CategoryState) Toggle(nodeID string) error {
	s.mu.Lock()

	node := s.tree.Node(nodeID)
	if node == nil {
		s.mu.Unlock()
		return fmt.Errorf("カテゴリノードが見つかりません: %s", nodeID)
	}

	newValue := !s.checked[nodeID]
	s.checked[nodeID] = newValue

	// 全子孫を新しい値に強制する（任意の深さ）
	s.cascade(node, newValue)

	// 親の再計算。混在状態は独立した値として保存せず、既存フラグを据え置く。
	if parent := node.Parent(); parent != nil {
		allChecked, noneChecked := true, true
		for _, sibling := range parent.Children {
			if s.checked[sibling.ID] {
				noneChecked = false
			} else {
				allChecked = false
			}
		}
		switch {
		case allChecked:
			s.checked[parent.ID] = true
		case noneChecked:
			s.checked[parent.ID] = false
		}
	}

	active := s.activeCodesLocked()
	viewport, hasViewport := s.lastViewport, s.hasViewport
	s.mu.Unlock()

	if len(active) == 0 {
		// 空の選択は定義済みのUI状態。デバウンスを待たずに即時クリアする。
		s.cancelTimer()
		if s.onClear != nil {
			s.onClear()
		}
		return nil
	}

	s.scheduleDispatch(viewport, hasViewport, active)
	return nil
}

func (s *CategoryState) cascade(node *model.CategoryNode, value bool) {
	for _, child := range node.Children {
		s.checked[child.ID] = value
		s.cascade(child, value)
	}
}

// scheduleDispatch デバウンスタイマーをリセットし、満了時にディスパッチを予約する
func (s *CategoryState) scheduleDispatch(viewport model.ViewportWindow, hasViewport bool, active []string) {
	if !hasViewport || s.onDispatch == nil {
		return
	}
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.onDispatch(viewport, active)
	})
	s.mu.Unlock()
}

func (s *CategoryState) cancelTimer() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
}

// SetViewport 地図エンジンからのビューポート確定イベントを記録する
func (s *CategoryState) SetViewport(v model.ViewportWindow) {
	s.mu.Lock()
	s.lastViewport = v
	s.hasViewport = true
	s.mu.Unlock()
}

// SetExpanded ノードの展開状態を記録する（チェック状態には影響しない）
func (s *CategoryState) SetExpanded(nodeID string, expanded bool) {
	s.mu.Lock()
	s.expanded[nodeID] = expanded
	s.mu.Unlock()
}

// IsChecked ノードのチェック状態を返す
func (s *CategoryState) IsChecked(nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checked[nodeID]
}

// ActiveCodes チェック済みデータ保有ノードから導出したアクティブカテゴリコード集合
func (s *CategoryState) ActiveCodes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeCodesLocked()
}

func (s *CategoryState) activeCodesLocked() []string {
	seen := make(map[string]bool)
	var codes []string
	s.tree.Walk(func(n *model.CategoryNode) {
		if !s.checked[n.ID] || len(n.Codes) == 0 {
			return
		}
		for _, code := range n.Codes {
			if !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
	})
	sort.Strings(codes)
	return codes
}

// Snapshot UI向けのチェック・展開状態のコピーを返す
func (s *CategoryState) Snapshot() (checked, expanded map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	checked = make(map[string]bool, len(s.checked))
	for k, v := range s.checked {
		checked[k] = v
	}
	expanded = make(map[string]bool, len(s.expanded))
	for k, v := range s.expanded {
		expanded[k] = v
	}
	return checked, expanded
}
