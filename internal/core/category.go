package core

import (
	"fmt"
	"sort"
)

var ErrCategoryCycle = fmt.Errorf("%w: category parent would create a cycle", ErrValidation)

// CheckCategoryParent reports whether giving category id the parent parentID
// keeps the tree acyclic. parents maps every known category id to its
// current parent. id is zero for a category that does not exist yet.
func CheckCategoryParent(id int64, parentID *int64, parents map[int64]*int64) error {
	if parentID == nil {
		return nil
	}
	if id != 0 && *parentID == id {
		return ErrCategoryCycle
	}
	seen := map[int64]bool{}
	for cur := parentID; cur != nil; cur = parents[*cur] {
		if id != 0 && *cur == id {
			return ErrCategoryCycle
		}
		if seen[*cur] {
			// Pre-existing loop above the new parent.
			return ErrCategoryCycle
		}
		seen[*cur] = true
	}
	return nil
}

// CategoryNode is a category with its children, sorted by name.
type CategoryNode struct {
	Category
	Children []*CategoryNode
}

// BuildCategoryTree arranges cats into a forest. Categories whose parent is
// not part of cats become roots.
func BuildCategoryTree(cats []Category) []*CategoryNode {
	nodes := make(map[int64]*CategoryNode, len(cats))
	for _, c := range cats {
		nodes[c.ID] = &CategoryNode{Category: c}
	}

	var roots []*CategoryNode
	for _, c := range cats {
		n := nodes[c.ID]
		if c.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[*c.ParentID]
		if !ok || createsLoop(nodes, c.ID) {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	sortNodes(roots)
	return roots
}

func createsLoop(nodes map[int64]*CategoryNode, id int64) bool {
	seen := map[int64]bool{id: true}
	cur := nodes[id]
	for cur != nil && cur.ParentID != nil {
		if seen[*cur.ParentID] {
			return true
		}
		seen[*cur.ParentID] = true
		cur = nodes[*cur.ParentID]
	}
	return false
}

func sortNodes(ns []*CategoryNode) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Name == ns[j].Name {
			return ns[i].ID < ns[j].ID
		}
		return ns[i].Name < ns[j].Name
	})
	for _, n := range ns {
		sortNodes(n.Children)
	}
}
