package overload

// Arg describes one call argument as the classifier sees it.
type Arg struct {
	Kind ValueKind
	// Tags holds, for instances only, the type tag of the instance's class
	// followed by the tag of each VM base class, nearest first. Classes
	// defined in script carry a nil tag.
	Tags []any
}

// Candidates is the ordered list of keys to try for one argument. For an
// instance it names the instance's class; the keys are then the class and
// its ancestors, produced lazily by the hierarchy walk.
type Candidates struct {
	keys  []SignatureKey
	class *ClassIdentity
}

// Class returns the class of an instance argument, or nil.
func (c Candidates) Class() *ClassIdentity { return c.class }

// Keys returns every key the candidates stand for, most specific first.
func (c Candidates) Keys() []SignatureKey {
	if c.class != nil {
		chain := c.class.Ancestry()
		keys := make([]SignatureKey, len(chain))
		for i, id := range chain {
			keys[i] = id.Key()
		}
		return keys
	}
	return append([]SignatureKey(nil), c.keys...)
}

var (
	boolCandidates     = []SignatureKey{KeyBool, KeyInteger, KeyFloat}
	integerCandidates  = []SignatureKey{KeyInteger, KeyFloat, KeyBool}
	floatCandidates    = []SignatureKey{KeyFloat, KeyInteger, KeyBool}
	stringCandidates   = []SignatureKey{KeyString}
	arrayCandidates    = []SignatureKey{KeyArray}
	functionCandidates = []SignatureKey{KeyFunction}
	tableCandidates    = []SignatureKey{KeyTable}

	// Anything else (null, user pointers, class objects) may still bind to a
	// bool or string parameter. Kept for compatibility with existing bindings.
	fallbackCandidates = []SignatureKey{KeyBool, KeyString}
)

// Classify returns the keys to try for arg. It fails with ErrClassification
// for instances whose class chain carries no ClassIdentity.
func Classify(arg Arg) (Candidates, error) {
	switch arg.Kind {
	case ValueBool:
		return Candidates{keys: boolCandidates}, nil
	case ValueInteger:
		return Candidates{keys: integerCandidates}, nil
	case ValueFloat:
		return Candidates{keys: floatCandidates}, nil
	case ValueString:
		return Candidates{keys: stringCandidates}, nil
	case ValueArray:
		return Candidates{keys: arrayCandidates}, nil
	case ValueClosure, ValueNativeClosure:
		return Candidates{keys: functionCandidates}, nil
	case ValueTable:
		return Candidates{keys: tableCandidates}, nil
	case ValueInstance:
		id := instanceIdentity(arg.Tags)
		if id == nil {
			return Candidates{}, ErrClassification
		}
		return Candidates{class: id}, nil
	default:
		return Candidates{keys: fallbackCandidates}, nil
	}
}

// instanceIdentity returns the identity carried by the nearest tagged class.
// A foreign tag (not a *ClassIdentity) makes the instance unclassifiable.
func instanceIdentity(tags []any) *ClassIdentity {
	for _, tag := range tags {
		if tag == nil {
			continue
		}
		id, ok := tag.(*ClassIdentity)
		if !ok || id == nil {
			return nil
		}
		return id
	}
	return nil
}

// firstMatch returns the first key accepted by probe and every key tried on
// the way, including the accepted one.
func firstMatch(keys []SignatureKey, probe func(SignatureKey) bool) (SignatureKey, []SignatureKey, bool) {
	var tried []SignatureKey
	for _, k := range keys {
		tried = append(tried, k)
		if probe(k) {
			return k, tried, true
		}
	}
	return SignatureKey{}, tried, false
}
