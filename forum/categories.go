package forum

// CategoryInfo describes one fixed discussion category. The registry is the
// source of truth for seeding; the categories table is read-only afterwards.
type CategoryInfo struct {
	Name        string
	Slug        string
	Description string
	Color       string
	SortOrder   int
}

// Categories is the fixed set of discussion categories.
var Categories = []CategoryInfo{
	{Name: "General Discussion", Slug: "general-discussion", Description: "Anything freediving that fits nowhere else", Color: "gray", SortOrder: 1},
	{Name: "Training & Technique", Slug: "training-technique", Description: "Breath-hold tables, equalization, finning", Color: "blue", SortOrder: 2},
	{Name: "Gear & Equipment", Slug: "gear-equipment", Description: "Masks, fins, wetsuits, computers", Color: "green", SortOrder: 3},
	{Name: "Spots & Travel", Slug: "spots-travel", Description: "Dive sites, trips, conditions", Color: "orange", SortOrder: 4},
	{Name: "Beginner Questions", Slug: "beginner-questions", Description: "No question too basic", Color: "purple", SortOrder: 5},
}

// CategoryBySlug looks up a category in the registry.
func CategoryBySlug(slug string) (CategoryInfo, bool) {
	for _, c := range Categories {
		if c.Slug == slug {
			return c, true
		}
	}
	return CategoryInfo{}, false
}
