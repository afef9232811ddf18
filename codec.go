package bson

// Codec is a single BSON codec instance: an immutable Registry plus the
// size/encode/decode operations built on top of it. A Codec is safe to
// share across goroutines for concurrent read — it holds no mutable
// state after construction.
type Codec struct {
	registry *Registry

	// debugAssertSize gates the encode-time equality assertion that
	// computed size must equal bytes actually written. Left on by
	// default since this module ships no separate release/debug build
	// mode; a consumer embedding this codec in a release binary can flip
	// it off via SetDebugAssertSize.
	debugAssertSize bool
}

// NewCodec builds a Codec from a caller-supplied Registry. The Registry
// must already be validated (see NewRegistry) — NewCodec rejects only a
// nil Registry and does not re-validate its constructors, so a *Registry
// built directly rather than through NewRegistry or DefaultRegistry is
// used as is.
func NewCodec(r *Registry) (*Codec, error) {
	if r == nil {
		return nil, errKeyf(ErrConfig, "registry must not be nil")
	}
	return &Codec{registry: r, debugAssertSize: true}, nil
}

// NewDefaultCodec returns a Codec wired to DefaultRegistry().
func NewDefaultCodec() *Codec {
	c, err := NewCodec(DefaultRegistry())
	if err != nil {
		panic(err)
	}
	return c
}

// SetDebugAssertSize toggles the encode-time size/write equality
// assertion (on by default).
func (c *Codec) SetDebugAssertSize(on bool) {
	c.debugAssertSize = on
}

// Registry returns the Codec's Registry.
func (c *Codec) Registry() *Registry {
	return c.registry
}
