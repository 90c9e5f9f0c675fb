package hash

import "testing"

func TestSum128Deterministic(t *testing.T) {
	a1, a2 := Sum128([]byte("clsm"))
	b1, b2 := Sum128([]byte("clsm"))
	if a1 != b1 || a2 != b2 {
		t.Fatalf("Sum128 not deterministic for equal input")
	}

	c1, c2 := Sum128([]byte("clsm!"))
	if a1 == c1 && a2 == c2 {
		t.Fatalf("Sum128 collided on distinct input")
	}
}
