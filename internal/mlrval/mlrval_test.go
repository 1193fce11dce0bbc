package mlrval

import "testing"

func TestAbsentPropagatesThroughArithmetic(t *testing.T) {
	cases := []struct {
		name string
		fn   func(a, b Mlrval) Mlrval
	}{
		{"Add", Add},
		{"Sub", Sub},
		{"Mul", Mul},
		{"Div", Div},
	}
	for _, c := range cases {
		if got := c.fn(Absent(), FromInt(5)); !got.IsAbsent() {
			t.Errorf("%s(absent, 5): got %v, want absent", c.name, got)
		}
		if got := c.fn(FromInt(5), Absent()); !got.IsAbsent() {
			t.Errorf("%s(5, absent): got %v, want absent", c.name, got)
		}
	}
}

func TestErrorIsSticky(t *testing.T) {
	e := Error(ErrGeneric, "boom")
	if got := Add(e, FromInt(1)); !got.IsError() {
		t.Errorf("Add(error, 1): got %v, want error", got)
	}
	if got := Add(FromInt(1), e); !got.IsError() {
		t.Errorf("Add(1, error): got %v, want error", got)
	}
}

func TestDivIntegerDivideByZeroIsError(t *testing.T) {
	got := Div(FromInt(4), FromInt(0))
	if !got.IsError() || got.ErrorKind() != ErrDivideByZero {
		t.Errorf("Div(4, 0): got %v, want a divide-by-zero error", got)
	}
}

func TestDivExactIntegersStayInt(t *testing.T) {
	got := Div(FromInt(6), FromInt(3))
	i, ok := got.Int()
	if !ok || i != 2 {
		t.Errorf("Div(6, 3): got %v, want int 2", got)
	}
	if got.Tag() != IntTag {
		t.Errorf("Div(6, 3): got tag %s, want int", got.Tag())
	}
}

func TestDivInexactIntegersPromoteToFloat(t *testing.T) {
	got := Div(FromInt(7), FromInt(2))
	if got.Tag() != FloatTag {
		t.Errorf("Div(7, 2): got tag %s, want float", got.Tag())
	}
	f, ok := got.Float()
	if !ok || f != 3.5 {
		t.Errorf("Div(7, 2): got %v, want 3.5", got)
	}
}

func TestEqualCoercesNumericTags(t *testing.T) {
	if !Equal(FromInt(2), FromFloat(2.0)) {
		t.Errorf("Equal(2, 2.0): want true")
	}
	if Equal(FromString("2"), FromInt(2)) {
		t.Errorf("Equal(\"2\", 2): want false, strings never coerce to numbers")
	}
}

func TestCompareOrdersStringsAndNumbersSeparately(t *testing.T) {
	if cmp, ok := Compare(FromString("a"), FromString("b")); !ok || cmp >= 0 {
		t.Errorf("Compare(\"a\",\"b\"): got (%d,%v), want negative,true", cmp, ok)
	}
	if cmp, ok := Compare(FromInt(3), FromFloat(2.5)); !ok || cmp <= 0 {
		t.Errorf("Compare(3, 2.5): got (%d,%v), want positive,true", cmp, ok)
	}
	if _, ok := Compare(FromString("a"), FromInt(1)); ok {
		t.Errorf("Compare(\"a\", 1): want not-comparable")
	}
}

func TestStringFormatting(t *testing.T) {
	cases := []struct {
		v    Mlrval
		want string
	}{
		{Absent(), ""},
		{Error(ErrGeneric, "x"), "(error)"},
		{FromString("hi"), "hi"},
		{FromInt(42), "42"},
		{FromBool(true), "true"},
		{FromBool(false), "false"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Errorf("String(): got %q, want %q", got, c.want)
		}
	}
}

func TestKeyStringDistinguishesTagsForEqualText(t *testing.T) {
	a := FromString("3")
	b := FromInt(3)
	if a.KeyString() == b.KeyString() {
		t.Errorf("KeyString collision between string %q and int %q", a.KeyString(), b.KeyString())
	}
}

func TestInferFromStringModes(t *testing.T) {
	if v := InferFromString("7", 0); v.Tag() != StringTag {
		t.Errorf("mode 0 (pass-through): got tag %s, want string", v.Tag())
	}
	if v := InferFromString("7", 1); v.Tag() != IntTag {
		t.Errorf("mode 1 (infer int): got tag %s, want int", v.Tag())
	}
	if v := InferFromString("7.5", 1); v.Tag() != StringTag {
		t.Errorf("mode 1 on a float-looking string: got tag %s, want string (no float fallback)", v.Tag())
	}
	if v := InferFromString("7.5", 2); v.Tag() != FloatTag {
		t.Errorf("mode 2 (infer int-or-float): got tag %s, want float", v.Tag())
	}
}
