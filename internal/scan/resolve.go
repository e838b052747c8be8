package scan

import (
	"fmt"
	"sort"
	"time"

	"sessionlamp/internal/session"
)

// ///////////////////////////////////////////////
// Supersession Resolution
// ///////////////////////////////////////////////

// Resolved is a surviving snapshot with its assigned display identity.
type Resolved struct {
	session.Snapshot
	// Project is the logical project this session belongs to.
	Project string
	// DisplayName is the project name, suffixed "-2", "-3", ... for the
	// second and later concurrent survivors in creation order.
	DisplayName string
	// Ordinal is the 1-based position in creation order.
	Ordinal int
}

// createdKey is the sort key for CreatedAt. A missing creation time sorts
// as earliest.
func createdKey(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// Resolve decides which of one project's snapshots are superseded or
// cleared and assigns stable ordinals to the survivors.
//
// A snapshot is superseded when any snapshot with a strictly later
// CreatedAt was created after this one's LastModified: a successor session
// began after this one was last touched, so the user abandoned it. Cleared
// snapshots are always dropped. Equal timestamps never supersede.
func Resolve(project string, snaps []session.Snapshot) []Resolved {
	ordered := make([]session.Snapshot, len(snaps))
	copy(ordered, snaps)

	// Newest first; ties keep enumeration order.
	sort.SliceStable(ordered, func(i, j int) bool {
		return createdKey(ordered[i].CreatedAt) > createdKey(ordered[j].CreatedAt)
	})

	superseded := make([]bool, len(ordered))
	for i := range ordered {
		if ordered[i].WasCleared {
			superseded[i] = true
			continue
		}
		for j := 0; j < i; j++ {
			if ordered[j].CreatedAt.After(ordered[i].LastModified) {
				// One dominating successor is sufficient.
				superseded[i] = true
				break
			}
		}
	}

	var survivors []session.Snapshot
	for i, snap := range ordered {
		if !superseded[i] {
			survivors = append(survivors, snap)
		}
	}

	// Number in creation order, oldest first, so ordinals do not reshuffle
	// as sessions are touched in different order between passes.
	sort.SliceStable(survivors, func(i, j int) bool {
		return createdKey(survivors[i].CreatedAt) < createdKey(survivors[j].CreatedAt)
	})

	resolved := make([]Resolved, 0, len(survivors))
	for i, snap := range survivors {
		name := project
		if i > 0 {
			name = fmt.Sprintf("%s-%d", project, i+1)
		}
		resolved = append(resolved, Resolved{
			Snapshot:    snap,
			Project:     project,
			DisplayName: name,
			Ordinal:     i + 1,
		})
	}
	return resolved
}
