package notes

import (
	"cmp"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// DefaultRecentLimit is the size of the quick access list.
const DefaultRecentLimit = 5

// ByGroup returns the notes of groupID in input order. Uncategorized
// matches only notes without a group.
func ByGroup(notes []Note, groupID uuid.NullUUID) []Note {
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if n.InGroup(groupID) {
			out = append(out, n)
		}
	}
	return out
}

// Recent returns at most limit notes, most recently updated first.
// Notes with equal UpdatedAt keep their input order. A limit <= 0 means
// DefaultRecentLimit.
func Recent(notes []Note, limit int) []Note {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	sorted := slices.Clone(notes)
	slices.SortStableFunc(sorted, func(a, b Note) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// GroupsSortedByName orders groups by name using byte-wise comparison,
// so "Zeta" sorts before "alpha". Equal names keep their input order.
func GroupsSortedByName(groups []Group) []Group {
	sorted := slices.Clone(groups)
	slices.SortStableFunc(sorted, func(a, b Group) int {
		return strings.Compare(a.Name, b.Name)
	})
	return sorted
}

// SortedByTitle orders notes by display title, then by creation time.
func SortedByTitle(notes []Note) []Note {
	sorted := slices.Clone(notes)
	slices.SortStableFunc(sorted, func(a, b Note) int {
		return cmp.Or(
			strings.Compare(a.DisplayTitle(), b.DisplayTitle()),
			a.CreatedAt.Compare(b.CreatedAt),
		)
	})
	return sorted
}

// Count returns how many notes belong to groupID.
func Count(notes []Note, groupID uuid.NullUUID) int {
	n := 0
	for _, note := range notes {
		if note.InGroup(groupID) {
			n++
		}
	}
	return n
}

// IsGroupEmpty reports whether no note references the group.
func IsGroupEmpty(notes []Note, groupID uuid.UUID) bool {
	return Count(notes, ByID(groupID)) == 0
}

// Counts returns the number of notes per group id; uncategorized notes are
// counted under uuid.Nil.
func Counts(notes []Note) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int)
	for _, n := range notes {
		if n.GroupID.Valid {
			out[n.GroupID.UUID]++
		} else {
			out[uuid.Nil]++
		}
	}
	return out
}
