package sim

import "testing"

func TestToleranceIsClose(t *testing.T) {
	tol := DefaultTolerance()
	cases := []struct {
		a, b float64
		want bool
	}{
		{1.0, 1.0 + 1e-13, true},
		{1.0, 1.0001, false},
		{0, 1e-13, true},
		{100000, 100000.00001, true},
	}
	for _, c := range cases {
		if got := tol.IsClose(c.a, c.b); got != c.want {
			t.Errorf("IsClose(%v,%v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestToleranceAddSnapsNearZero(t *testing.T) {
	tol := DefaultTolerance()
	got := tol.Add(100.0, -100.0+1e-13)
	if got != 0 {
		t.Errorf("Add snapped sum = %v, want exact 0", got)
	}
}

func TestToleranceIsLess(t *testing.T) {
	tol := DefaultTolerance()
	if tol.IsLess(1.0, 1.0+1e-13) {
		t.Error("near-equal values should not compare less")
	}
	if !tol.IsLess(1.0, 2.0) {
		t.Error("1.0 < 2.0 should hold")
	}
}
