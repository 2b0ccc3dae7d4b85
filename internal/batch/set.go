package batch

// orderedSet is an insertion-ordered set. Adding a key that is already
// present keeps the existing value and position.
type orderedSet[K comparable, V any] struct {
	keys  []K
	items map[K]V
}

func (s *orderedSet[K, V]) add(k K, v V) bool {
	if s.items == nil {
		s.items = make(map[K]V)
	}
	if _, ok := s.items[k]; ok {
		return false
	}
	s.items[k] = v
	s.keys = append(s.keys, k)
	return true
}

func (s *orderedSet[K, V]) remove(k K) bool {
	if _, ok := s.items[k]; !ok {
		return false
	}
	delete(s.items, k)
	for i, key := range s.keys {
		if key == k {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return true
}

func (s *orderedSet[K, V]) contains(k K) bool {
	_, ok := s.items[k]
	return ok
}

func (s *orderedSet[K, V]) front() (V, bool) {
	if len(s.keys) == 0 {
		var zero V
		return zero, false
	}
	return s.items[s.keys[0]], true
}

func (s *orderedSet[K, V]) len() int {
	return len(s.keys)
}

// values returns the members in insertion order. Never nil.
func (s *orderedSet[K, V]) values() []V {
	out := make([]V, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.items[k])
	}
	return out
}
