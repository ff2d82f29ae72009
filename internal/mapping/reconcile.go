package mapping

// HistoricalLookup resolves a permanent id to a previously-assigned
// short id, consulting a mapping recovered from outside the current
// clone's state (typically `git show <remote>/<branch>:mappings/ids.yml`).
// It returns ok=false when no historical record exists.
type HistoricalLookup func(permanentID string) (shortID string, ok bool)

// Reconcile ensures every id in presentIDs has a mapping entry,
// recovering from historical first and falling back to a fresh
// allocation, per spec.md §4.3 "Mapping reconciliation". It mutates m
// in place and returns the list of ids that were newly bound, which the
// sync engine uses to decide whether a reconciliation-only commit is
// needed and to size its commit message ("reconcile N missing ID
// mapping(s)").
func (m *Mapping) Reconcile(presentIDs []string, historical HistoricalLookup) []string {
	var changed []string
	alloc := m.Allocator()
	for _, id := range presentIDs {
		if _, ok := m.IDToShort[id]; ok {
			continue
		}
		if historical != nil {
			if short, ok := historical(id); ok {
				if existingID, taken := m.ShortToID[short]; !taken || existingID == id {
					m.bindLocked(short, id)
					changed = append(changed, id)
					continue
				}
			}
		}
		fresh := alloc.Next()
		m.bindLocked(fresh, id)
		changed = append(changed, id)
	}
	m.AdoptAllocator(alloc)
	return changed
}
