package bson

// Constructor function types for the ten extended-type carriers. The
// registry's role is decode-side reconstruction; encode-side dispatch is
// a plain Go type switch, since Go's static types make carrier identity
// free to test without a registry lookup.
type (
	LongConstructor      func(low, high int32) Long
	ObjectIDConstructor  func(id [12]byte) ObjectID
	BinaryConstructor    func(buf []byte, subtype byte) Binary
	CodeConstructor      func(source string, scope Map) Code
	DBRefConstructor     func(namespace string, oid ObjectID, db string, hasDB bool) DBRef
	SymbolConstructor    func(value string) Symbol
	DoubleConstructor    func(value float64) Double
	TimestampConstructor func(low, high int32) Timestamp
	MinKeyConstructor    func() MinKey
	MaxKeyConstructor    func() MaxKey
)

// Registry holds the ten carrier constructors a Codec uses to synthesize
// extended-type values on decode. It is built once at codec construction
// and is immutable and safe for concurrent read thereafter — it holds no
// mutable state at all.
type Registry struct {
	NewLong      LongConstructor
	NewObjectID  ObjectIDConstructor
	NewBinary    BinaryConstructor
	NewCode      CodeConstructor
	NewDBRef     DBRefConstructor
	NewSymbol    SymbolConstructor
	NewDouble    DoubleConstructor
	NewTimestamp TimestampConstructor
	NewMinKey    MinKeyConstructor
	NewMaxKey    MaxKeyConstructor
}

// NewRegistry validates that all ten constructors are present, returning
// ErrConfig naming the first missing one otherwise.
func NewRegistry(r Registry) (*Registry, error) {
	missing := func(name string) error {
		return errKeyf(ErrConfig, "missing carrier constructor %q", name)
	}
	switch {
	case r.NewLong == nil:
		return nil, missing("NewLong")
	case r.NewObjectID == nil:
		return nil, missing("NewObjectID")
	case r.NewBinary == nil:
		return nil, missing("NewBinary")
	case r.NewCode == nil:
		return nil, missing("NewCode")
	case r.NewDBRef == nil:
		return nil, missing("NewDBRef")
	case r.NewSymbol == nil:
		return nil, missing("NewSymbol")
	case r.NewDouble == nil:
		return nil, missing("NewDouble")
	case r.NewTimestamp == nil:
		return nil, missing("NewTimestamp")
	case r.NewMinKey == nil:
		return nil, missing("NewMinKey")
	case r.NewMaxKey == nil:
		return nil, missing("NewMaxKey")
	}
	out := r
	return &out, nil
}

// DefaultRegistry returns a Registry wired to this package's own carrier
// struct literals, for callers who don't need to substitute their own
// carrier representations.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Registry{
		NewLong: func(low, high int32) Long { return Long{Low: low, High: high} },
		NewObjectID: func(id [12]byte) ObjectID {
			return ObjectID{ID: id}
		},
		NewBinary: func(buf []byte, subtype byte) Binary {
			return NewBinary(buf, subtype)
		},
		NewCode: func(source string, scope Map) Code {
			return Code{Source: source, Scope: scope}
		},
		NewDBRef: func(namespace string, oid ObjectID, db string, hasDB bool) DBRef {
			return DBRef{Namespace: namespace, OID: oid, DB: db, HasDB: hasDB}
		},
		NewSymbol: func(value string) Symbol { return Symbol{Value: value} },
		NewDouble: func(value float64) Double { return Double{Value: value} },
		NewTimestamp: func(low, high int32) Timestamp {
			return Timestamp{Low: low, High: high}
		},
		NewMinKey: func() MinKey { return MinKey{} },
		NewMaxKey: func() MaxKey { return MaxKey{} },
	})
	if err != nil {
		// DefaultRegistry always supplies all ten constructors; a failure
		// here would be a programmer error in this file, not caller input.
		panic(err)
	}
	return r
}

// Reserved key sentinels recognised by the codec: DBRef's projected
// field names, kept here for hosts that reconstruct carriers from
// duck-typed documents rather than this package's typed carriers.
const (
	keyDBRefRef = "$ref"
	keyDBRefID  = "$id"
	keyDBRefDB  = "$db"
)
