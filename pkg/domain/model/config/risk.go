package config

// Category is one risk category declared for an organization
type Category struct {
	ID          string
	Name        string
	Description string
}

// RiskConfig holds the risk reference data of one organization. An empty
// category list means categories are not restricted.
type RiskConfig struct {
	Categories []Category
}

// Restricted reports whether risks must use a declared category
func (c *RiskConfig) Restricted() bool {
	return c != nil && len(c.Categories) > 0
}

// FindCategory returns the declared category with id, or nil
func (c *RiskConfig) FindCategory(id string) *Category {
	if c == nil {
		return nil
	}
	for i := range c.Categories {
		if c.Categories[i].ID == id {
			return &c.Categories[i]
		}
	}
	return nil
}
