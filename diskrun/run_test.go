package diskrun

import (
	"testing"

	"github.com/abcdlsj/clsm/scalar"
)

func sorted(n int) []scalar.Pair[int64, int64] {
	out := make([]scalar.Pair[int64, int64], n)
	for i := 0; i < n; i++ {
		out[i] = scalar.Pair[int64, int64]{Key: int64(i), Value: int64(i * 10)}
	}
	return out
}

func TestBulkWriteAndSearch(t *testing.T) {
	dir := t.TempDir()
	r, err := New[int64, int64](dir, 1, 0, 8, 2, 0.01)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Destroy()

	r.BulkWrite(sorted(8))

	for i := int64(0); i < 8; i++ {
		v, ok := r.Search(i)
		if !ok || v != i*10 {
			t.Fatalf("Search(%d): got (%v,%v)", i, v, ok)
		}
	}

	if _, ok := r.Search(100); ok {
		t.Fatalf("expected key 100 absent")
	}
}

func TestMinMaxBounds(t *testing.T) {
	dir := t.TempDir()
	r, err := New[int64, int64](dir, 1, 0, 8, 2, 0.01)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Destroy()

	r.BulkWrite(sorted(8))

	min, ok := r.MinKey()
	if !ok || min != 0 {
		t.Fatalf("expected min 0, got (%v,%v)", min, ok)
	}
	max, ok := r.MaxKey()
	if !ok || max != 7 {
		t.Fatalf("expected max 7, got (%v,%v)", max, ok)
	}
}

func TestGetRangeIndex(t *testing.T) {
	dir := t.TempDir()
	r, err := New[int64, int64](dir, 1, 0, 8, 2, 0.01)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Destroy()

	r.BulkWrite(sorted(8))

	idx1, idx2 := r.GetRangeIndex(2, 5)
	if idx1 != 2 || idx2 != 5 {
		t.Fatalf("GetRangeIndex(2,5): got (%d,%d)", idx1, idx2)
	}

	idx1, idx2 = r.GetRangeIndex(-10, 100)
	if idx1 != 0 || idx2 != 8 {
		t.Fatalf("GetRangeIndex(-10,100): got (%d,%d)", idx1, idx2)
	}

	idx1, idx2 = r.GetRangeIndex(100, 200)
	if idx2-idx1 != 0 {
		t.Fatalf("disjoint range should yield empty span, got (%d,%d)", idx1, idx2)
	}
}

func TestRenamePreservesData(t *testing.T) {
	dir := t.TempDir()
	r, err := New[int64, int64](dir, 1, 0, 4, 2, 0.01)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Destroy()

	r.BulkWrite(sorted(4))

	if err := r.Rename(3); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if r.RunID() != 3 {
		t.Fatalf("expected RunID 3, got %d", r.RunID())
	}

	v, ok := r.Search(2)
	if !ok || v != 20 {
		t.Fatalf("expected data to survive rename, got (%v,%v)", v, ok)
	}
}
