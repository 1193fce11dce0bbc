// Package mlrval implements the tagged-union runtime value of the DSL: the
// mlrval. Every scalar that flows through the CST interpreter — record
// fields, oosvar leaves, local-variable contents, literal data — is an
// Mlrval. Maps are represented out of band (see internal/mlhmmv) and held
// behind the MapValue interface to avoid an import cycle between the two
// packages, since mlhmmv's leaves are themselves Mlrvals.
package mlrval

import (
	"fmt"
	"strconv"
)

// Tag identifies which of the DSL's seven runtime types a value holds.
type Tag int

const (
	AbsentTag Tag = iota
	ErrorTag
	StringTag
	IntTag
	FloatTag
	BoolTag
	MapTag
)

func (t Tag) String() string {
	switch t {
	case AbsentTag:
		return "absent"
	case ErrorTag:
		return "error"
	case StringTag:
		return "string"
	case IntTag:
		return "int"
	case FloatTag:
		return "float"
	case BoolTag:
		return "boolean"
	case MapTag:
		return "map"
	default:
		return "unknown"
	}
}

// ErrorKind distinguishes the flavors of runtime type error (§7).
type ErrorKind int

const (
	ErrGeneric ErrorKind = iota
	ErrTypeMismatch
	ErrDivideByZero
	ErrBadCoercion
)

// MapValue is implemented by *mlhmmv.Node. It is declared here, rather than
// imported, purely to break the mlrval<->mlhmmv cycle: mlhmmv's terminal
// values are Mlrvals, so mlrval cannot import mlhmmv.
type MapValue interface {
	MlhmmvMarker()
	Len() int
}

// Mlrval is the DSL's tagged-union runtime value.
type Mlrval struct {
	tag     Tag
	s       string
	i       int64
	f       float64
	b       bool
	errKind ErrorKind
	errMsg  string
	m       MapValue
}

// Absent returns the absent value. Reading an undefined local, oosvar path,
// or srec field yields this; it is not an error.
func Absent() Mlrval { return Mlrval{tag: AbsentTag} }

// Error returns an error-tagged value. Errors are sticky through arithmetic.
func Error(kind ErrorKind, format string, args ...interface{}) Mlrval {
	return Mlrval{tag: ErrorTag, errKind: kind, errMsg: fmt.Sprintf(format, args...)}
}

// FromString returns a string-tagged value.
func FromString(s string) Mlrval { return Mlrval{tag: StringTag, s: s} }

// FromInt returns an int-tagged value.
func FromInt(i int64) Mlrval { return Mlrval{tag: IntTag, i: i} }

// FromFloat returns a float-tagged value.
func FromFloat(f float64) Mlrval { return Mlrval{tag: FloatTag, f: f} }

// FromBool returns a boolean-tagged value.
func FromBool(b bool) Mlrval { return Mlrval{tag: BoolTag, b: b} }

// FromMap returns a map-tagged value wrapping m.
func FromMap(m MapValue) Mlrval { return Mlrval{tag: MapTag, m: m} }

// InferFromString applies field-value type inferencing to a raw srec string,
// used by for-srec iteration (§4.3.4) and full-srec-to-oosvar copies (§4.3.1).
// mode follows the three type_inferencing choices threaded by the CST
// builder: 0 = pass-through strings, 1 = infer int, 2 = infer int-or-float.
func InferFromString(s string, mode int) Mlrval {
	if mode == 0 {
		return FromString(s)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return FromInt(i)
	}
	if mode == 2 {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return FromFloat(f)
		}
	}
	return FromString(s)
}

// Tag returns the value's runtime tag.
func (v Mlrval) Tag() Tag { return v.tag }

// IsAbsent reports whether v is the absent value.
func (v Mlrval) IsAbsent() bool { return v.tag == AbsentTag }

// IsError reports whether v is error-tagged.
func (v Mlrval) IsError() bool { return v.tag == ErrorTag }

// ErrorKind returns the error kind; only meaningful when IsError is true.
func (v Mlrval) ErrorKind() ErrorKind { return v.errKind }

// AsMap returns the wrapped MapValue, if v is map-tagged.
func (v Mlrval) AsMap() (MapValue, bool) {
	if v.tag != MapTag {
		return nil, false
	}
	return v.m, true
}

// Int returns v's integer value and whether the conversion succeeded.
func (v Mlrval) Int() (int64, bool) {
	switch v.tag {
	case IntTag:
		return v.i, true
	case FloatTag:
		return int64(v.f), true
	case BoolTag:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Float returns v's float value and whether the conversion succeeded.
func (v Mlrval) Float() (float64, bool) {
	switch v.tag {
	case FloatTag:
		return v.f, true
	case IntTag:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// Bool returns v's boolean value and whether the conversion succeeded.
func (v Mlrval) Bool() (bool, bool) {
	if v.tag == BoolTag {
		return v.b, true
	}
	return false, false
}

// RawString returns the underlying string for a string-tagged value.
func (v Mlrval) RawString() (string, bool) {
	if v.tag == StringTag {
		return v.s, true
	}
	return "", false
}

// String formats v the way a srec field assignment stringifies a value
// (§4.3.1): absent is never written (callers must check IsAbsent first);
// error becomes the literal "(error)" marker.
func (v Mlrval) String() string {
	switch v.tag {
	case AbsentTag:
		return ""
	case ErrorTag:
		return "(error)"
	case StringTag:
		return v.s
	case IntTag:
		return strconv.FormatInt(v.i, 10)
	case FloatTag:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case BoolTag:
		if v.b {
			return "true"
		}
		return "false"
	case MapTag:
		return fmt.Sprintf("{map with %d entries}", v.m.Len())
	default:
		return ""
	}
}

// KeyString returns a canonical, collision-free string for use as a
// dictionary key by the ordered map implementation in internal/mlhmmv. Two
// scalars share a KeyString exactly when they have the same tag and the same
// value; the tag is part of the key, so values that are Equal across tags
// (int 2 and float 2.0) get different keys. Map-tagged keys are never
// constructed by this DSL (only
// scalars address mlhmmv levels) so they fall back to a non-canonical
// representation.
func (v Mlrval) KeyString() string {
	switch v.tag {
	case StringTag:
		return "s:" + v.s
	case IntTag:
		return "i:" + strconv.FormatInt(v.i, 10)
	case FloatTag:
		return "f:" + strconv.FormatFloat(v.f, 'g', -1, 64)
	case BoolTag:
		return "b:" + strconv.FormatBool(v.b)
	case AbsentTag:
		return "a:"
	case ErrorTag:
		return "e:" + v.errMsg
	default:
		return fmt.Sprintf("m:%p", v.m)
	}
}

// Equal reports whether a and b compare equal under the DSL's numeric
// coercion rules (§3).
func Equal(a, b Mlrval) bool {
	if a.tag == StringTag || b.tag == StringTag {
		if a.tag != b.tag {
			return false
		}
		return a.s == b.s
	}
	if isNumeric(a.tag) && isNumeric(b.tag) {
		af, _ := a.Float()
		bf, _ := b.Float()
		return af == bf
	}
	if a.tag == BoolTag && b.tag == BoolTag {
		return a.b == b.b
	}
	return a.tag == b.tag
}

func isNumeric(t Tag) bool { return t == IntTag || t == FloatTag }

// Compare orders a and b by the DSL's standard numeric/string ordering. ok
// is false when the two values are not comparable (e.g. a map or an
// absent/error operand).
func Compare(a, b Mlrval) (cmp int, ok bool) {
	switch {
	case a.tag == StringTag && b.tag == StringTag:
		switch {
		case a.s < b.s:
			return -1, true
		case a.s > b.s:
			return 1, true
		default:
			return 0, true
		}
	case isNumeric(a.tag) && isNumeric(b.tag):
		af, _ := a.Float()
		bf, _ := b.Float()
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

// IsTruthy reports whether v is usable as a boolean condition (while/if/for
// predicates, filter-mode final expressions).
func IsTruthy(v Mlrval) (bool, bool) {
	if v.tag != BoolTag {
		return false, false
	}
	return v.b, true
}

// Add applies the DSL's binary plus, propagating absent and error per §3.
func Add(a, b Mlrval) Mlrval { return binaryArith(a, b, func(x, y float64) float64 { return x + y }, func(x, y int64) int64 { return x + y }) }

// Sub applies the DSL's binary minus.
func Sub(a, b Mlrval) Mlrval { return binaryArith(a, b, func(x, y float64) float64 { return x - y }, func(x, y int64) int64 { return x - y }) }

// Mul applies the DSL's binary multiply.
func Mul(a, b Mlrval) Mlrval { return binaryArith(a, b, func(x, y float64) float64 { return x * y }, func(x, y int64) int64 { return x * y }) }

// Div applies the DSL's binary division. Integer division by zero is a
// sticky error; float division by zero follows IEEE 754 (+Inf/-Inf/NaN).
func Div(a, b Mlrval) Mlrval {
	if a.IsAbsent() || b.IsAbsent() {
		return Absent()
	}
	if a.IsError() {
		return a
	}
	if b.IsError() {
		return b
	}
	if a.tag == IntTag && b.tag == IntTag {
		if b.i == 0 {
			return Error(ErrDivideByZero, "division by zero")
		}
		if a.i%b.i == 0 {
			return FromInt(a.i / b.i)
		}
		return FromFloat(float64(a.i) / float64(b.i))
	}
	af, aok := a.Float()
	bf, bok := b.Float()
	if !aok || !bok {
		return Error(ErrTypeMismatch, "non-numeric operand to /")
	}
	return FromFloat(af / bf)
}

func binaryArith(a, b Mlrval, ff func(float64, float64) float64, fi func(int64, int64) int64) Mlrval {
	if a.IsAbsent() || b.IsAbsent() {
		return Absent()
	}
	if a.IsError() {
		return a
	}
	if b.IsError() {
		return b
	}
	if a.tag == IntTag && b.tag == IntTag {
		return FromInt(fi(a.i, b.i))
	}
	af, aok := a.Float()
	bf, bok := b.Float()
	if !aok || !bok {
		return Error(ErrTypeMismatch, "non-numeric operand")
	}
	return FromFloat(ff(af, bf))
}

// DeepCopyScalar returns a copy of v. Scalars are value types in Go already;
// this exists so callers that don't know whether they hold a scalar or a
// map can call a uniform DeepCopy-shaped helper (map-tagged values route
// through mlhmmv.DeepCopy before being re-wrapped by the caller).
func DeepCopyScalar(v Mlrval) Mlrval { return v }
