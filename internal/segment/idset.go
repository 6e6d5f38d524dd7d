package segment

// IDSet is the two-variant result of resolving a rule tree: either the
// "unrestricted" sentinel meaning all subjects match, or an explicit,
// deduplicated list of subject ids (possibly empty, meaning no subjects
// match). The sentinel must never be collapsed into an enumerated list of
// every known id; its whole point is to avoid materializing the subject
// table when no tag filter applies.
//
// The zero value is an explicit empty set. Insertion order of ids is
// preserved so that pagination over a resolved set is deterministic for a
// given membership snapshot.
type IDSet struct {
	unrestricted bool
	order        []string
	members      map[string]struct{}
}

// Unrestricted returns the "all subjects" sentinel.
func Unrestricted() IDSet {
	return IDSet{unrestricted: true}
}

// Restricted builds an explicit set from ids, dropping empty strings and
// duplicates while preserving first-seen order.
func Restricted(ids []string) IDSet {
	s := IDSet{
		order:   make([]string, 0, len(ids)),
		members: make(map[string]struct{}, len(ids)),
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, seen := s.members[id]; seen {
			continue
		}
		s.members[id] = struct{}{}
		s.order = append(s.order, id)
	}
	return s
}

// IsUnrestricted reports whether the set is the "all subjects" sentinel.
func (s IDSet) IsUnrestricted() bool {
	return s.unrestricted
}

// Len returns the number of ids in an explicit set. It is zero for the
// unrestricted sentinel, whose cardinality is unknown by design.
func (s IDSet) Len() int {
	return len(s.order)
}

// Contains reports membership. The unrestricted sentinel contains every id.
func (s IDSet) Contains(id string) bool {
	if s.unrestricted {
		return true
	}
	_, ok := s.members[id]
	return ok
}

// IDs returns a copy of the ids in insertion order.
func (s IDSet) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Slice returns the ids in the half-open window [offset, offset+limit),
// clamped to the available range. An offset beyond the set yields an
// empty slice.
func (s IDSet) Slice(offset, limit int) []string {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	if offset >= len(s.order) {
		return []string{}
	}
	end := offset + limit
	if end > len(s.order) {
		end = len(s.order)
	}
	out := make([]string, end-offset)
	copy(out, s.order[offset:end])
	return out
}

// Intersect returns the ids present in both sets, keeping the receiver's
// order. Intersecting with the unrestricted sentinel imposes no
// restriction: the other operand is returned unchanged.
func (s IDSet) Intersect(other IDSet) IDSet {
	if s.unrestricted {
		return other
	}
	if other.unrestricted {
		return s
	}

	kept := make([]string, 0, min(len(s.order), len(other.order)))
	for _, id := range s.order {
		if _, ok := other.members[id]; ok {
			kept = append(kept, id)
		}
	}
	return Restricted(kept)
}

// Union returns the ids present in either set, receiver's ids first.
// Union with the unrestricted sentinel is unrestricted.
func (s IDSet) Union(other IDSet) IDSet {
	if s.unrestricted || other.unrestricted {
		return Unrestricted()
	}

	merged := make([]string, 0, len(s.order)+len(other.order))
	merged = append(merged, s.order...)
	merged = append(merged, other.order...)
	return Restricted(merged)
}
