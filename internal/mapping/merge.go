package mapping

// Merge combines the pulling clone's mapping (local) with the fetched
// one (remote):
//
//   - The union of entries is retained; nothing is ever deleted.
//   - For every short_id bound to different permanent ids on the two
//     sides, the remote binding wins: it was already pushed, so it is
//     the one other clones have seen. The local entry's permanent id is
//     reassigned a fresh short_id (spec.md §8 scenario 2: after B
//     pulls, a1 points at A's permanent id and B's issue gets a freshly
//     allocated short_id).
//
// Giving way to the pushed side is what makes clones converge on shared
// short ids: the side that pushed first never sees the collision, and
// every puller resolves it the same way.
func Merge(local, remote *Mapping) *Mapping {
	result := local.Clone()
	if remote.Generator > result.Generator {
		result.Generator = remote.Generator
	}
	alloc := result.Allocator()

	for short, id := range remote.ShortToID {
		localID, localHasShort := result.ShortToID[short]
		switch {
		case !localHasShort:
			// Not colliding with a local short id. But the remote's
			// permanent id might already have a different short id
			// locally (both clones saw the same issue under different
			// short ids) — in that case keep the local short id and do
			// not bind the remote token at all.
			if _, alreadyBound := result.IDToShort[id]; !alreadyBound {
				result.bindLocked(short, id)
			}
		case localID == id:
			// Same binding on both sides, nothing to do.
		default:
			// Collision: same short id maps to two different permanent
			// ids. The remote entry keeps `short`; the local permanent
			// id is displaced onto a fresh short id. Skipped when the
			// remote's permanent id already has some other short id
			// locally — then the local view of that issue stands.
			if _, alreadyBound := result.IDToShort[id]; alreadyBound {
				continue
			}
			fresh := alloc.Next()
			result.bindLocked(fresh, localID)
			result.bindLocked(short, id)
		}
	}

	result.AdoptAllocator(alloc)
	return result
}
