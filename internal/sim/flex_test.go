package sim

import "testing"

func TestFlexArraySelect(t *testing.T) {
	scalar := NewScalarFlex(5)
	if got := scalar.Select(3, 7); got != 5 {
		t.Errorf("scalar.Select = %v, want 5", got)
	}

	perRow := NewPerRowFlex([]float64{1, 2, 3})
	if got := perRow.Select(1, 99); got != 2 {
		t.Errorf("perRow.Select(1,*) = %v, want 2", got)
	}

	perCol := NewPerColFlex([]float64{10, 20})
	if got := perCol.Select(99, 1); got != 20 {
		t.Errorf("perCol.Select(*,1) = %v, want 20", got)
	}

	full := NewFullFlex([][]float64{{1, 2}, {3, 4}})
	if got := full.Select(1, 0); got != 3 {
		t.Errorf("full.Select(1,0) = %v, want 3", got)
	}
}

func TestFlexArrayZeroValueIsScalarZero(t *testing.T) {
	var f FlexArray
	if got := f.Select(0, 0); got != 0 {
		t.Errorf("zero-value FlexArray.Select = %v, want 0", got)
	}
}
