package types

import "testing"

func TestSizeOf(t *testing.T) {
	cases := map[string]int{
		"num24":  3,
		"f24":    3,
		"num16":  2,
		"f16":    2,
		"char":   1,
		"num24*": 3,
		"char*":  3,
		"void":   0,
	}
	for name, want := range cases {
		if got := SizeOf(name); got != want {
			t.Errorf("SizeOf(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestIsPointer(t *testing.T) {
	if !IsPointer("num24*") {
		t.Fatal("expected num24* to be a pointer type")
	}
	if IsPointer("num24") {
		t.Fatal("did not expect num24 to be a pointer type")
	}
}

func TestPointeeAndPointerToRoundTrip(t *testing.T) {
	if got := Pointee(PointerTo("char")); got != "char" {
		t.Fatalf("expected round trip to yield char, got %q", got)
	}
}

func TestIsInteger(t *testing.T) {
	for _, name := range []string{"num16", "num24", "f16", "f24"} {
		if !IsInteger(name) {
			t.Errorf("expected %q to be an integer type", name)
		}
	}
	if IsInteger("char") {
		t.Fatal("did not expect char to be an integer type")
	}
}

func TestIsVoidRejectsVoidPointer(t *testing.T) {
	if !IsVoid("void") {
		t.Fatal("expected void to be void")
	}
	if IsVoid("void*") {
		t.Fatal("did not expect void* to be void")
	}
}

func TestWidthOf(t *testing.T) {
	cases := map[string]LoadStoreWidth{
		"num16":  WidthWord,
		"f16":    WidthWord,
		"num24":  WidthHalf,
		"f24":    WidthHalf,
		"num24*": WidthHalf,
		"char":   WidthByte,
	}
	for name, want := range cases {
		if got := WidthOf(name); got != want {
			t.Errorf("WidthOf(%q) = %v, want %v", name, got, want)
		}
	}
}
