package bson

import (
	"bytes"
	"fmt"
	"sync"
	"time"
)

// Map is a BSON document type backed by a plain Go map. Field iteration
// order over a Map is Go's map iteration order, which is unspecified and
// varies between runs — Map is for callers who don't care about field
// order. Use Document when order must round-trip.
type Map map[string]interface{}

// Document is a BSON document type that preserves field order, both on
// encode (its Elements are walked in slice order) and on decode (this is
// the default result type of Deserialize).
type Document []Element

// Element is one field of a Document.
type Element struct {
	Key   string
	Value interface{}
}

// Get returns the value of the first Element with the given key, and
// whether it was found. Document does not assume unique keys (BSON
// doesn't require it), so this returns the first match in source order.
func (d Document) Get(key string) (interface{}, bool) {
	for _, el := range d {
		if el.Key == key {
			return el.Value, true
		}
	}
	return nil, false
}

// ToMap converts a Document to a Map, discarding order and collapsing
// duplicate keys to their last occurrence (matching how a Go map literal
// with repeated keys would behave).
func (d Document) ToMap() Map {
	m := make(Map, len(d))
	for _, el := range d {
		m[el.Key] = el.Value
	}
	return m
}

// ToDocument converts a Map to a Document. Since Map has no defined
// order, the resulting Document's order is Go's map iteration order —
// call this only when order doesn't matter to the caller either.
func (m Map) ToDocument() Document {
	d := make(Document, 0, len(m))
	for k, v := range m {
		d = append(d, Element{Key: k, Value: v})
	}
	return d
}

var defaultCodecOnce sync.Once
var defaultCodec *Codec

func getDefaultCodec() *Codec {
	defaultCodecOnce.Do(func() {
		defaultCodec = NewDefaultCodec()
	})
	return defaultCodec
}

// Encode serialises m using the package default codec and options.
func (m Map) Encode() ([]byte, error) {
	return getDefaultCodec().Serialize(m, EncodeOptions{})
}

// MustEncode is Encode, panicking on error.
func (m Map) MustEncode() []byte {
	b, err := m.Encode()
	if err != nil {
		panic(err)
	}
	return b
}

// Encode serialises d using the package default codec and options.
func (d Document) Encode() ([]byte, error) {
	return getDefaultCodec().Serialize(d, EncodeOptions{})
}

// MustEncode is Encode, panicking on error.
func (d Document) MustEncode() []byte {
	b, err := d.Encode()
	if err != nil {
		panic(err)
	}
	return b
}

// String pretty-prints m. Deliberately not JSON — this printer exists
// purely for debugging and for cmd/bsondump, not as a conversion API.
func (m Map) String() string {
	wr := bytes.NewBuffer(nil)
	fmt.Fprint(wr, "Map[")
	first := true
	for k, v := range m {
		if !first {
			fmt.Fprint(wr, " ")
		}
		first = false
		fmt.Fprintf(wr, "%v: %v", k, printValue(v))
	}
	fmt.Fprint(wr, "]")
	return wr.String()
}

// String pretty-prints d in field order.
func (d Document) String() string {
	wr := bytes.NewBuffer(nil)
	fmt.Fprint(wr, "Document[")
	for i, el := range d {
		if i != 0 {
			fmt.Fprint(wr, " ")
		}
		fmt.Fprintf(wr, "%v: %v", el.Key, printValue(el.Value))
	}
	fmt.Fprint(wr, "]")
	return wr.String()
}

// printValue pretty-prints one field value, recursing into nested
// documents/arrays/carriers.
func printValue(v interface{}) string {
	switch vt := v.(type) {
	case nil:
		return "Null()"
	case Map:
		return vt.String()
	case Document:
		return vt.String()
	case Array:
		wr := bytes.NewBuffer(nil)
		fmt.Fprint(wr, "Array([")
		for i, e := range vt {
			if i != 0 {
				fmt.Fprint(wr, " ")
			}
			fmt.Fprint(wr, printValue(e))
		}
		fmt.Fprint(wr, "])")
		return wr.String()
	case Double:
		return fmt.Sprintf("Double(%v)", vt.Value)
	case Binary:
		return fmt.Sprintf("Binary(subtype=%#x len=%d)", vt.SubType, vt.Position)
	case ObjectID:
		return fmt.Sprintf("ObjectID(%x)", vt.ID)
	case DateTime:
		return fmt.Sprintf("DateTime(%v)", time.UnixMilli(int64(vt)).UTC())
	case Null:
		return "Null()"
	case Regex:
		return fmt.Sprintf("Regex(/%v/%v)", vt.Pattern, vt.Options)
	case Code:
		if len(vt.Scope) == 0 {
			return fmt.Sprintf("Code(%v)", vt.Source)
		}
		return fmt.Sprintf("CodeWithScope(%v, %v)", vt.Source, vt.Scope)
	case Symbol:
		return fmt.Sprintf("Symbol(%v)", vt.Value)
	case Timestamp:
		return fmt.Sprintf("Timestamp(low=%d high=%d)", vt.Low, vt.High)
	case Long:
		return fmt.Sprintf("Long(%v)", vt.Value())
	case DBRef:
		if vt.HasDB {
			return fmt.Sprintf("DBRef(%v, %x, %v)", vt.Namespace, vt.OID.ID, vt.DB)
		}
		return fmt.Sprintf("DBRef(%v, %x)", vt.Namespace, vt.OID.ID)
	case MinKey:
		return "MinKey()"
	case MaxKey:
		return "MaxKey()"
	}
	return fmt.Sprint(v)
}
