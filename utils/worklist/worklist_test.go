package worklist

import "testing"

func TestWorklistOrder(t *testing.T) {
	var seen []int
	Start(1, func(next int, add func(int)) {
		seen = append(seen, next)
		if next < 3 {
			add(next + 1)
		}
	})
	for i, want := range []int{1, 2, 3} {
		if seen[i] != want {
			t.Errorf("Expected %d at position %d, got %d", want, i, seen[i])
		}
	}
}

func TestWorklistEmpty(t *testing.T) {
	w := Empty[int]()
	if !w.IsEmpty() || w.Size() != 0 {
		t.Error("A fresh worklist must be empty")
	}
	w.Add(7)
	if w.IsEmpty() || w.GetNext() != 7 {
		t.Error("Added elements must come back out")
	}
}
