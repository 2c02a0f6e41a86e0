package rating

import (
	"math"
	"testing"
)

func TestUpdateEqualRatings(t *testing.T) {
	w, l := Update(1000, 1000, 32)
	if w != 1016 || l != 984 {
		t.Fatalf("expected 1016/984, got %d/%d", w, l)
	}
}

func TestExpectedIsSymmetric(t *testing.T) {
	a := Expected(1200, 1000)
	b := Expected(1000, 1200)
	if math.Abs(a+b-1) > 1e-9 {
		t.Fatalf("expected sum 1, got %v + %v", a, b)
	}
	if a <= 0.5 {
		t.Fatalf("higher rated player should be favoured, got %v", a)
	}
}

func TestUpdateUpsetMovesMore(t *testing.T) {
	w, l := Update(1000, 1400, 32)
	if w-1000 <= 16 {
		t.Fatalf("underdog gain should exceed 16, got %d", w-1000)
	}
	if 1400-l <= 16 {
		t.Fatalf("favourite loss should exceed 16, got %d", 1400-l)
	}
}

func TestUpdateFloorsAtZero(t *testing.T) {
	_, l := Update(10, 5, 32)
	if l != 0 {
		t.Fatalf("expected loser floored at 0, got %d", l)
	}
}

func TestFuncDefaultsK(t *testing.T) {
	w, l := Func(0)(1000, 1000)
	if w != 1016 || l != 984 {
		t.Fatalf("expected default K=32, got %d/%d", w, l)
	}
}
