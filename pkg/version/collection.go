// ABOUTME: In-memory revision collection
// ABOUTME: Slice-backed Collection that keeps newest-first order on demand

package version

import "sort"

// MemoryCollection is a slice-backed Collection
type MemoryCollection struct {
	revisions []*Revision
}

// NewMemoryCollection creates a collection holding revs
func NewMemoryCollection(revs ...*Revision) *MemoryCollection {
	return &MemoryCollection{revisions: append([]*Revision(nil), revs...)}
}

// List returns the revisions in their current order
func (c *MemoryCollection) List() []*Revision {
	return append([]*Revision(nil), c.revisions...)
}

// Insert appends a revision
func (c *MemoryCollection) Insert(r *Revision) {
	c.revisions = append(c.revisions, r)
}

// Delete removes the revision with the given ID, if present
func (c *MemoryCollection) Delete(id string) {
	for i, r := range c.revisions {
		if r.ID == id {
			c.revisions = append(c.revisions[:i], c.revisions[i+1:]...)
			return
		}
	}
}

// Len returns the number of revisions
func (c *MemoryCollection) Len() int {
	return len(c.revisions)
}

// SortNewestFirst implements Sorter
func (c *MemoryCollection) SortNewestFirst() {
	sortNewestFirst(c.revisions)
}

func sortNewestFirst(revs []*Revision) {
	sort.SliceStable(revs, func(i, j int) bool {
		return revs[i].newerThan(revs[j])
	})
}
