// Package admin customizes how manageable resource groups are presented in
// the admin UI.
package admin

import "sort"

// ResourceGroup is one manageable group of admin resources.
type ResourceGroup struct {
	Name      string   `json:"name"`
	Resources []string `json:"resources,omitempty"`
}

// DefaultPriority is the display order of the named groups. Groups not
// listed here appear after, keeping their generated order.
func DefaultPriority() []string {
	return []string{
		"Accounts",
		"Schools",
		"Classrooms",
		"Curriculum",
		"Library",
		"Reports",
	}
}

// Order returns the groups sorted by the priority list: listed groups first
// in list order, unlisted groups after in their original relative order.
func Order(groups []ResourceGroup, priority []string) []ResourceGroup {
	rank := make(map[string]int, len(priority))
	for i, name := range priority {
		rank[name] = i
	}

	ordered := make([]ResourceGroup, len(groups))
	copy(ordered, groups)

	sort.SliceStable(ordered, func(i, j int) bool {
		ri, iListed := rank[ordered[i].Name]
		rj, jListed := rank[ordered[j].Name]
		switch {
		case iListed && jListed:
			return ri < rj
		case iListed:
			return true
		default:
			return false
		}
	})

	return ordered
}
