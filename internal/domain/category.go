package domain

import (
	"fmt"

	"golang.org/x/text/cases"
)

const AllCategories = "all"

type CategoryLevel string

const (
	LevelMain    CategoryLevel = "main"
	LevelSub     CategoryLevel = "sub"
	LevelSubSub  CategoryLevel = "subsub"
	LevelUnknown CategoryLevel = "unknown"
)

// CategoryField names the product attribute a tree level is stored in.
type CategoryField string

const (
	FieldCategory       CategoryField = "category"
	FieldSubcategory    CategoryField = "subcategory"
	FieldSubsubcategory CategoryField = "subsubcategory"
)

type Classification struct {
	Level CategoryLevel
	Field CategoryField
	Value string
}

type CategoryNode struct {
	Name     string
	Children []CategoryNode
}

type treeEntry struct {
	level CategoryLevel
	path  []string
	node  *CategoryNode
}

// CategoryTree is the static main → sub → sub-sub hierarchy. Lookups are
// case-insensitive and return the canonical spelling stored in the tree.
type CategoryTree struct {
	roots []CategoryNode
	index map[string]treeEntry
}

// A Caser is stateful, so each call builds its own.
func foldKey(s string) string { return cases.Fold().String(s) }

func NewCategoryTree(roots []CategoryNode) (*CategoryTree, error) {
	t := &CategoryTree{roots: roots, index: map[string]treeEntry{}}
	levels := []CategoryLevel{LevelMain, LevelSub, LevelSubSub}
	var walk func(nodes []CategoryNode, depth int, parent []string) error
	walk = func(nodes []CategoryNode, depth int, parent []string) error {
		if depth >= len(levels) {
			if len(nodes) > 0 {
				return fmt.Errorf("category tree deeper than %d levels under %v", len(levels), parent)
			}
			return nil
		}
		for i := range nodes {
			n := &nodes[i]
			path := append(append([]string{}, parent...), n.Name)
			key := foldKey(n.Name)
			if prev, ok := t.index[key]; ok {
				if levels[depth] == LevelSubSub || prev.level == LevelSubSub {
					return fmt.Errorf("category %q appears twice in the tree", n.Name)
				}
				// main/sub name clash: the shallower node wins lookups.
			} else {
				t.index[key] = treeEntry{level: levels[depth], path: path, node: n}
			}
			if err := walk(n.Children, depth+1, path); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(t.roots, 0, nil); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *CategoryTree) Classify(name string) Classification {
	e, ok := t.index[foldKey(name)]
	if !ok {
		return Classification{Level: LevelUnknown, Field: FieldSubsubcategory, Value: name}
	}
	c := Classification{Level: e.level, Value: e.path[len(e.path)-1]}
	switch e.level {
	case LevelMain:
		c.Field = FieldCategory
	case LevelSub:
		c.Field = FieldSubcategory
	default:
		c.Field = FieldSubsubcategory
	}
	return c
}

// PathOf lists ancestors from the main category down to name, inclusive.
func (t *CategoryTree) PathOf(name string) []string {
	if name == "" || foldKey(name) == AllCategories {
		return nil
	}
	e, ok := t.index[foldKey(name)]
	if !ok {
		return nil
	}
	return append([]string{}, e.path...)
}

func (t *CategoryTree) IsLeaf(name string) bool {
	e, ok := t.index[foldKey(name)]
	return ok && e.level == LevelSubSub
}

// Canonical returns the tree spelling of name, or name unchanged when unknown.
func (t *CategoryTree) Canonical(name string) string {
	if e, ok := t.index[foldKey(name)]; ok {
		return e.path[len(e.path)-1]
	}
	return name
}

func (t *CategoryTree) Roots() []CategoryNode { return t.roots }

func (t *CategoryTree) Children(name string) []CategoryNode {
	if e, ok := t.index[foldKey(name)]; ok {
		return e.node.Children
	}
	return nil
}

// EqualName compares category names with the same folding the tree uses.
func EqualName(a, b string) bool { return foldKey(a) == foldKey(b) }

// FoldString exposes the catalog's case folding for free-text matching.
func FoldString(s string) string { return foldKey(s) }

var defaultTree = []CategoryNode{
	{Name: "Tiles", Children: []CategoryNode{
		{Name: "Floor Tiles", Children: []CategoryNode{{Name: "Ceramic Floor Tiles"}, {Name: "Porcelain Floor Tiles"}, {Name: "Vitrified Tiles"}}},
		{Name: "Wall Tiles", Children: []CategoryNode{{Name: "Bathroom Wall Tiles"}, {Name: "Kitchen Wall Tiles"}, {Name: "Outdoor Wall Tiles"}}},
	}},
	{Name: "Sanitary Ware", Children: []CategoryNode{
		{Name: "Toilets", Children: []CategoryNode{{Name: "One Piece Toilets"}, {Name: "Two Piece Toilets"}, {Name: "Wall Hung Toilets"}}},
		{Name: "Basins", Children: []CategoryNode{{Name: "Pedestal Basins"}, {Name: "Counter Top Basins"}}},
		{Name: "Faucets", Children: []CategoryNode{{Name: "Basin Mixers"}, {Name: "Shower Mixers"}, {Name: "Kitchen Sink Taps"}}},
	}},
	{Name: "Paints", Children: []CategoryNode{
		{Name: "Interior Paints", Children: []CategoryNode{{Name: "Plastic Emulsion"}, {Name: "Distemper"}}},
		{Name: "Exterior Paints", Children: []CategoryNode{{Name: "Weather Coat"}, {Name: "Texture Finish"}}},
	}},
	{Name: "Construction", Children: []CategoryNode{
		{Name: "Cement", Children: []CategoryNode{{Name: "Portland Cement"}, {Name: "Composite Cement"}}},
		{Name: "Steel", Children: []CategoryNode{{Name: "Deformed Bars"}, {Name: "Binding Wire"}}},
	}},
}

// DefaultCategoryTree is the storefront's built-in hierarchy.
func DefaultCategoryTree() *CategoryTree {
	t, err := NewCategoryTree(defaultTree)
	if err != nil {
		panic(err)
	}
	return t
}
