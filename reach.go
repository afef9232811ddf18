package bson

import (
	"reflect"
	"time"

	"github.com/pkg/errors"
)

// Reach walks a path of field names (dot, e.g. "a", "b", "c" for a.b.c)
// into m and coerces the value found there into dst — a convenience this
// module carries for callers that only need one or two fields out of a
// decoded document rather than a full type assertion.
//
// If dst points to a nil pointer or interface, Reach allocates through
// it. Reach returns (false, nil) if the path isn't present, and an error
// if dst is nil or if the path resolves to a value that can't be coerced
// into dst's type.
//
// Supported coercions:
//
//	Double/float64 -> float64
//	string         -> string
//	Binary         -> []byte
//	ObjectID       -> [12]byte
//	bool           -> bool
//	DateTime       -> int64, time.Time
//	Symbol         -> string
//	int32          -> int32, int64
//	int            -> int, int64
//	Timestamp      -> Timestamp, time.Time (High as Unix seconds); not int64
//	Long/int64     -> int64
//
// To require an exact type match, reach for that bson type directly (e.g.
// a *Regex) instead of a coerced primitive.
func (m Map) Reach(dst interface{}, dot ...string) (bool, error) {
	if dst == nil {
		return false, errors.New("bson: Reach destination must not be nil")
	}
	src := reach(m, dot...)
	if src == nil {
		return false, nil
	}
	return assign(dst, src)
}

// Reach is Map.Reach for an ordered Document.
func (d Document) Reach(dst interface{}, dot ...string) (bool, error) {
	if dst == nil {
		return false, errors.New("bson: Reach destination must not be nil")
	}
	src := reach(d, dot...)
	if src == nil {
		return false, nil
	}
	return assign(dst, src)
}

func reach(cur interface{}, dot ...string) interface{} {
	for _, name := range dot {
		switch curt := cur.(type) {
		case Map:
			v, ok := curt[name]
			if !ok {
				return nil
			}
			cur = v
		case Document:
			v, ok := curt.Get(name)
			if !ok {
				return nil
			}
			cur = v
		case Regex:
			switch name {
			case "Pattern":
				cur = curt.Pattern
			case "Options":
				cur = curt.Options
			default:
				return nil
			}
		case Code:
			switch name {
			case "Source":
				cur = curt.Source
			case "Scope":
				cur = curt.Scope
			default:
				return nil
			}
		case DBRef:
			switch name {
			case "Namespace":
				cur = curt.Namespace
			case "OID":
				cur = curt.OID
			case "DB":
				cur = curt.DB
			default:
				return nil
			}
		case Timestamp:
			switch name {
			case "Low":
				cur = curt.Low
			case "High":
				cur = curt.High
			default:
				return nil
			}
		default:
			return nil
		}
	}
	return cur
}

func assignError(dst reflect.Value, src interface{}) error {
	return errors.Errorf("bson: cannot coerce %T into %v", src, dst.Type())
}

// indirectAlloc dereferences all interfaces/pointers down to a concrete,
// settable value, allocating through a nil interface or pointer instead
// of stopping at it — needed here because Reach's dst is typically a
// fresh *T or *interface{} a caller passes without initializing. A nil
// interface allocates a Document rather than a Map, since Document is
// this package's order-preserving, default document representation;
// allocating a Map here would silently discard field order on any
// subsequent nested Reach into the allocated value.
func indirectAlloc(v reflect.Value) reflect.Value {
loop:
	for {
		switch v.Kind() {
		case reflect.Interface:
			if v.IsNil() {
				v.Set(reflect.ValueOf(Document{}))
			}
			v = v.Elem()
		case reflect.Ptr:
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		case reflect.Map:
			if v.IsNil() {
				v.Set(reflect.MakeMap(v.Type()))
			}
			break loop
		case reflect.Slice:
			if v.IsNil() {
				v.Set(reflect.MakeSlice(v.Type(), v.Len(), 0))
			}
			break loop
		default:
			break loop
		}
	}
	return v
}

// assign coerces src into dst, allocating through dst if it's a nil
// pointer or interface.
func assign(dst, src interface{}) (bool, error) {
	dstrv := indirectAlloc(reflect.ValueOf(dst))

	switch srct := src.(type) {
	case Double:
		if dstrv.Kind() != reflect.Float64 {
			return false, assignError(dstrv, src)
		}
		dstrv.SetFloat(srct.Value)
	case float64:
		if dstrv.Kind() != reflect.Float64 {
			return false, assignError(dstrv, src)
		}
		dstrv.SetFloat(srct)
	case string:
		if dstrv.Kind() != reflect.String {
			return false, assignError(dstrv, src)
		}
		dstrv.SetString(srct)
	case Map:
		if _, ok := dstrv.Interface().(Map); !ok {
			return false, assignError(dstrv, src)
		}
		dstrv.Set(reflect.ValueOf(srct))
	case Document:
		if _, ok := dstrv.Interface().(Document); !ok {
			return false, assignError(dstrv, src)
		}
		dstrv.Set(reflect.ValueOf(srct))
	case Array:
		if _, ok := dstrv.Interface().(Array); !ok {
			return false, assignError(dstrv, src)
		}
		dstrv.Set(reflect.ValueOf(srct))
	case Binary:
		if dstrv.Kind() != reflect.Slice || dstrv.Type().Elem().Kind() != reflect.Uint8 {
			return false, assignError(dstrv, src)
		}
		dstrv.SetBytes(srct.Bytes())
	case []byte:
		if dstrv.Kind() != reflect.Slice || dstrv.Type().Elem().Kind() != reflect.Uint8 {
			return false, assignError(dstrv, src)
		}
		dstrv.SetBytes(srct)
	case ObjectID:
		switch dstrv.Interface().(type) {
		case ObjectID:
			dstrv.Set(reflect.ValueOf(srct))
		case [12]byte:
			dstrv.Set(reflect.ValueOf(srct.ID))
		default:
			if dstrv.Kind() != reflect.Slice || dstrv.Type().Elem().Kind() != reflect.Uint8 {
				return false, assignError(dstrv, src)
			}
			dstrv.SetBytes(srct.ID[:])
		}
	case bool:
		if dstrv.Kind() != reflect.Bool {
			return false, assignError(dstrv, src)
		}
		dstrv.SetBool(srct)
	case DateTime:
		switch dstrv.Interface().(type) {
		case time.Time:
			dstrv.Set(reflect.ValueOf(time.UnixMilli(int64(srct)).UTC()))
		default:
			if dstrv.Kind() != reflect.Int64 {
				return false, assignError(dstrv, src)
			}
			dstrv.SetInt(int64(srct))
		}
	case Regex:
		if _, ok := dstrv.Interface().(Regex); !ok {
			return false, assignError(dstrv, src)
		}
		dstrv.Set(reflect.ValueOf(srct))
	case Code:
		if _, ok := dstrv.Interface().(Code); !ok {
			return false, assignError(dstrv, src)
		}
		dstrv.Set(reflect.ValueOf(srct))
	case Symbol:
		if dstrv.Kind() != reflect.String {
			return false, assignError(dstrv, src)
		}
		dstrv.SetString(srct.Value)
	case int32:
		if dstrv.Kind() != reflect.Int32 && dstrv.Kind() != reflect.Int64 {
			return false, assignError(dstrv, src)
		}
		dstrv.SetInt(int64(srct))
	case int:
		if dstrv.Kind() != reflect.Int && dstrv.Kind() != reflect.Int64 {
			return false, assignError(dstrv, src)
		}
		dstrv.SetInt(int64(srct))
	case Timestamp:
		switch dstrv.Interface().(type) {
		case time.Time:
			dstrv.Set(reflect.ValueOf(time.Unix(int64(srct.High), 0).UTC()))
		case Timestamp:
			dstrv.Set(reflect.ValueOf(srct))
		default:
			return false, assignError(dstrv, src)
		}
	case Long:
		if dstrv.Kind() != reflect.Int64 {
			return false, assignError(dstrv, src)
		}
		dstrv.SetInt(srct.Value())
	case int64:
		if dstrv.Kind() != reflect.Int64 {
			return false, assignError(dstrv, src)
		}
		dstrv.SetInt(srct)
	case DBRef:
		if _, ok := dstrv.Interface().(DBRef); !ok {
			return false, assignError(dstrv, src)
		}
		dstrv.Set(reflect.ValueOf(srct))
	case MinKey, MaxKey:
		// Identity-only carriers: nothing to copy.
	default:
		return false, assignError(dstrv, src)
	}
	return true, nil
}
