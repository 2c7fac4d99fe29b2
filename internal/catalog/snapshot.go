package catalog

import (
	"sort"
	"strings"
)

// Snapshot is an immutable, case-insensitive name index over a catalog read.
// Safe for concurrent use.
type Snapshot struct {
	byName map[string]Ingredient
	all    []Ingredient
}

func NewSnapshot(ingredients []Ingredient) Snapshot {
	s := Snapshot{byName: make(map[string]Ingredient, len(ingredients))}
	for _, ing := range ingredients {
		key := normalizeName(ing.Name)
		if _, dup := s.byName[key]; dup {
			continue
		}
		s.byName[key] = ing
		s.all = append(s.all, ing)
	}
	SortByName(s.all)
	return s
}

// Lookup resolves name by case-insensitive exact match.
func (s Snapshot) Lookup(name string) (Ingredient, bool) {
	ing, ok := s.byName[normalizeName(name)]
	return ing, ok
}

func (s Snapshot) Len() int { return len(s.all) }

// SortByName orders case-insensitively, ties broken by byte order.
func SortByName(ingredients []Ingredient) {
	sort.SliceStable(ingredients, func(a, b int) bool {
		la, lb := strings.ToLower(ingredients[a].Name), strings.ToLower(ingredients[b].Name)
		if la != lb {
			return la < lb
		}
		return ingredients[a].Name < ingredients[b].Name
	})
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
