package gredi

import "fmt"

// Category is a folder in the DAM hierarchy. It is used transiently for
// navigation and breadcrumbs.
type Category struct {
	ID       string
	ParentID string
	Name     string

	// Parts is the hierarchical path down from the customer root. The root
	// itself has no parts.
	Parts []string

	// Folders holds sub-folders when populated by a tree walk.
	Folders []*Category
}

// ParseCategory maps a DAM folder payload into a Category. Like ParseAsset
// it accepts raw JSON or an already decoded map. Only id, parentId and name
// are copied; there are no derived fields.
func ParseCategory(payload any) (*Category, error) {
	m, err := decodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("decode category payload: %w", err)
	}

	c := &Category{
		ID:       stringify(m["id"]),
		ParentID: stringify(m["parentId"]),
		Name:     stringify(m["name"]),
	}
	if c.ID == "" {
		return nil, fmt.Errorf("category payload has no id")
	}
	return c, nil
}

// IsRoot reports whether the category is the customer root.
func (c *Category) IsRoot() bool {
	return len(c.Parts) == 0
}

// Path renders the breadcrumb path, ending with the folder's own name.
func (c *Category) Path() string {
	out := ""
	for _, part := range c.Parts {
		out += "/" + part
	}
	return out
}
