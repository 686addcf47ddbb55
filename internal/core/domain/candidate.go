package domain

// Origin ranks where a candidate was declared. Lower values win ties.
type Origin uint8

const (
	// OriginInternal marks declarations of the unit's own module.
	OriginInternal Origin = iota
	// OriginExternal marks declarations of linked dependency modules.
	OriginExternal
	// OriginPredefined marks declarations of modules flagged as predefined.
	OriginPredefined
)

func (o Origin) String() string {
	switch o {
	case OriginInternal:
		return "internal"
	case OriginExternal:
		return "external"
	default:
		return "predefined"
	}
}

// MultiKind says whether a candidate contributes to an aggregate.
type MultiKind uint8

const (
	// MultiNone is an ordinary single-binding candidate.
	MultiNone MultiKind = iota
	// MultiSetElement contributes an element to Set<V>.
	MultiSetElement
	// MultiMapEntry contributes an entry to Map<K, V>.
	MultiMapEntry
)

// CallableKind is the shape of the declaration a candidate was built from.
type CallableKind uint8

const (
	// CallableFunction is a top-level or member function.
	CallableFunction CallableKind = iota
	// CallableConstructor is a class constructor.
	CallableConstructor
	// CallableProperty is a property read.
	CallableProperty
	// CallableObject is a singleton object.
	CallableObject
	// CallableValue is an injectable value parameter of an enclosing scope.
	CallableValue
)

func (k CallableKind) String() string {
	switch k {
	case CallableFunction:
		return "function"
	case CallableConstructor:
		return "constructor"
	case CallableProperty:
		return "property"
	case CallableObject:
		return "object"
	default:
		return "value"
	}
}

// ParseCallableKind maps a declaration kind name to its CallableKind.
func ParseCallableKind(s string) (CallableKind, bool) {
	for k := CallableFunction; k <= CallableValue; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return CallableFunction, false
}

// Parameter is one dependency of a candidate.
type Parameter struct {
	Name       string
	Type       *Type
	HasDefault bool
}

// Candidate is one injectable provider. Candidates are immutable after collection.
type Candidate struct {
	Name       InternedString
	Produced   *Type
	Parameters []Parameter
	TypeParams []TypeParam
	Origin     Origin
	Scope      InternedString
	Multi      MultiKind
	MapKey     string
	MapKeyType *Type
	Callable   CallableKind
	Location   Location
	// Order is the global deterministic collection index.
	Order int
	// Local marks injectable values of an enclosing scope.
	Local bool
}

// IsGeneric reports whether the candidate declares type parameters.
func (c *Candidate) IsGeneric() bool {
	return len(c.TypeParams) > 0
}

// String renders the candidate as name (location).
func (c *Candidate) String() string {
	if c == nil {
		return "<root>"
	}
	return c.Name.String() + " (" + c.Location.String() + ")"
}
