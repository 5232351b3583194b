package overload

// walkHierarchy tries id and then each of its ancestors, nearest first, and
// stops at the first class whose key probe accepts. It returns that class,
// or nil once the chain is exhausted, together with the keys it tried.
func walkHierarchy(id *ClassIdentity, probe func(SignatureKey) bool) (*ClassIdentity, []SignatureKey) {
	var tried []SignatureKey
	for cur := id; cur != nil; cur = cur.base {
		k := cur.Key()
		tried = append(tried, k)
		if probe(k) {
			return cur, tried
		}
	}
	return nil, tried
}

// NearestOverload returns the overload of name taking a single instance of
// class id (or of its nearest ancestor that has one).
func (t *Table) NearestOverload(name string, id *ClassIdentity) (*Entry, bool) {
	match, _ := walkHierarchy(id, func(k SignatureKey) bool {
		_, ok := t.Lookup(name, []SignatureKey{k})
		return ok
	})
	if match == nil {
		return nil, false
	}
	return t.Lookup(name, []SignatureKey{match.Key()})
}
