package model

// CategoryNode カテゴリツリーの1ノード。チェックボックス階層に対応する。
// 親参照はルックアップ専用（弱参照）、子ノードはこのノードが所有する。
type CategoryNode struct {
	ID       string          `json:"id" yaml:"id"`
	Label    string          `json:"label" yaml:"label"`
	Codes    []string        `json:"codes,omitempty" yaml:"codes,omitempty"` // データを持つノードのカテゴリコード
	Children []*CategoryNode `json:"children,omitempty" yaml:"children,omitempty"`

	parent *CategoryNode
}

// Parent 親ノードを返す（ルートの場合はnil）
func (n *CategoryNode) Parent() *CategoryNode { return n.parent }

// IsLeaf 子ノードを持たないかチェック
func (n *CategoryNode) IsLeaf() bool { return len(n.Children) == 0 }

// CategoryTree カテゴリノードのルート集合とIDインデックス
type CategoryTree struct {
	Roots []*CategoryNode
	index map[string]*CategoryNode
}

// NewCategoryTree ルートノード群からツリーを構築し、親参照とIDインデックスを設定する。
// 同一IDの重複や循環があればエラーを返す（ツリーは非循環が不変条件）。
func NewCategoryTree(roots []*CategoryNode) (*CategoryTree, error) {
	t := &CategoryTree{
		Roots: roots,
		index: make(map[string]*CategoryNode),
	}
	for _, root := range roots {
		if err := t.link(root, nil); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *CategoryTree) link(node, parent *CategoryNode) error {
	if _, exists := t.index[node.ID]; exists {
		return &DuplicateNodeError{NodeID: node.ID}
	}
	node.parent = parent
	t.index[node.ID] = node
	for _, child := range node.Children {
		if err := t.link(child, node); err != nil {
			return err
		}
	}
	return nil
}

// Node IDでノードを検索する（見つからない場合はnil）
func (t *CategoryTree) Node(id string) *CategoryNode {
	return t.index[id]
}

// Walk ツリー全体を深さ優先で巡回する
func (t *CategoryTree) Walk(fn func(*CategoryNode)) {
	var visit func(*CategoryNode)
	visit = func(n *CategoryNode) {
		fn(n)
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, root := range t.Roots {
		visit(root)
	}
}

// DuplicateNodeError カテゴリツリー構築時のID重複エラー
type DuplicateNodeError struct {
	NodeID string
}

func (e *DuplicateNodeError) Error() string {
	return "カテゴリノードIDが重複しています: " + e.NodeID
}
