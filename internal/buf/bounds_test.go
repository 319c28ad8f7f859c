package buf

import (
	"math"
	"testing"
)

func TestAddOverflowSafe(t *testing.T) {
	if v, ok := AddOverflowSafe(3, 4); !ok || v != 7 {
		t.Fatalf("AddOverflowSafe(3, 4) = %d, %v", v, ok)
	}
	if _, ok := AddOverflowSafe(math.MaxInt, 1); ok {
		t.Fatalf("expected overflow")
	}
	if _, ok := AddOverflowSafe(math.MinInt, -1); ok {
		t.Fatalf("expected underflow")
	}
}

func TestMulOverflowSafe(t *testing.T) {
	if v, ok := MulOverflowSafe(6, 7); !ok || v != 42 {
		t.Fatalf("MulOverflowSafe(6, 7) = %d, %v", v, ok)
	}
	if v, ok := MulOverflowSafe(0, math.MaxInt); !ok || v != 0 {
		t.Fatalf("MulOverflowSafe(0, MaxInt) = %d, %v", v, ok)
	}
	if _, ok := MulOverflowSafe(math.MaxInt/2, 3); ok {
		t.Fatalf("expected overflow")
	}
}

func TestCheckArrayBounds(t *testing.T) {
	end, err := CheckArrayBounds(100, 10, 4, 8)
	if err != nil || end != 42 {
		t.Fatalf("CheckArrayBounds: end=%d err=%v", end, err)
	}
	if _, err := CheckArrayBounds(100, 10, 12, 8); err == nil {
		t.Fatalf("expected out-of-bounds error")
	}
	if _, err := CheckArrayBounds(100, -1, 1, 1); err == nil {
		t.Fatalf("expected negative-offset error")
	}
	// An attacker-controlled count must not wrap to a small end offset.
	if _, err := CheckArrayBounds(100, 0, math.MaxInt, 4); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestSlice(t *testing.T) {
	b := []byte{0, 1, 2, 3, 4}
	if v, ok := Slice(b, 1, 3); !ok || len(v) != 3 || v[0] != 1 {
		t.Fatalf("Slice(b, 1, 3) = %v, %v", v, ok)
	}
	if v, ok := Slice(b, 5, 0); !ok || len(v) != 0 {
		t.Fatalf("Slice at end = %v, %v", v, ok)
	}
	if _, ok := Slice(b, 3, 3); ok {
		t.Fatalf("expected out of bounds")
	}
	if _, ok := Slice(b, -1, 1); ok {
		t.Fatalf("expected out of bounds for negative offset")
	}
	if _, ok := Slice(b, 1, math.MaxInt); ok {
		t.Fatalf("expected overflow rejection")
	}
	if !Has(b, 0, 5) || Has(b, 0, 6) {
		t.Fatalf("Has bounds wrong")
	}
}
