package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrderings drops orderings on fields that are not in `allowed` (column names).
func FilterOrderings(ords []DBOrdering, allowed ...string) []DBOrdering {
	kept := make([]DBOrdering, 0, len(ords))
	for _, ord := range ords {
		for _, a := range allowed {
			if strings.EqualFold(ord.Field, a) {
				kept = append(kept, DBOrdering{Field: a, Ascending: ord.Ascending})
				break
			}
		}
	}
	return kept
}
