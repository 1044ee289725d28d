package models

import "time"

// Category defines the struct for the 'categories' table
type Category struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	ParentID  *int64    `json:"parent_id,omitempty" db:"parent_id"` // Use pointer for NULL
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Children []Category `json:"children,omitempty" db:"-"`
}

// BuildCategoryTree nests a flat category list under its parents, keeping
// the input order at every level. Categories whose parent is missing are
// treated as roots.
func BuildCategoryTree(flat []Category) []Category {
	known := make(map[int64]bool, len(flat))
	for _, c := range flat {
		known[c.ID] = true
	}

	children := make(map[int64][]Category)
	var roots []Category
	for _, c := range flat {
		if c.ParentID != nil && known[*c.ParentID] && *c.ParentID != c.ID {
			children[*c.ParentID] = append(children[*c.ParentID], c)
			continue
		}
		roots = append(roots, c)
	}

	// Depth-first so grandchildren are attached before their parent is copied.
	var attach func(c Category, seen map[int64]bool) Category
	attach = func(c Category, seen map[int64]bool) Category {
		if seen[c.ID] {
			return c
		}
		seen[c.ID] = true
		for _, child := range children[c.ID] {
			c.Children = append(c.Children, attach(child, seen))
		}
		return c
	}

	tree := make([]Category, 0, len(roots))
	seen := make(map[int64]bool, len(flat))
	for _, r := range roots {
		tree = append(tree, attach(r, seen))
	}
	return tree
}
