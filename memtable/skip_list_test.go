package memtable

import (
	"math"
	"math/rand"
	"testing"
)

func newTestSkipList[K Scalar, V comparable]() *SkipList[K, V] {
	return New[K, V](32, rand.New(rand.NewSource(1)))
}

func TestEmptySkipList(t *testing.T) {
	sl := newTestSkipList[int64, string]()

	if sl.EltsNums() != 0 {
		t.Fatalf("expected size 0, got %d", sl.EltsNums())
	}
	if _, ok := sl.Search(1); ok {
		t.Fatalf("expected not found in empty skiplist")
	}
	if _, ok := sl.Min(); ok {
		t.Fatalf("expected no bounds on empty skiplist")
	}
}

func TestInsertAndSearchSingle(t *testing.T) {
	sl := newTestSkipList[int64, string]()
	sl.InsertKey(10, "ten")

	val, ok := sl.Search(10)
	if !ok || val != "ten" {
		t.Fatalf("expected (ten,true), got (%v,%v)", val, ok)
	}
}

func TestInsertOverwritesExistingKey(t *testing.T) {
	sl := newTestSkipList[int64, string]()
	sl.InsertKey(1, "one")
	sl.InsertKey(1, "uno")

	val, ok := sl.Search(1)
	if !ok || val != "uno" {
		t.Fatalf("overwrite failed, got (%v,%v)", val, ok)
	}
	if sl.EltsNums() != 1 {
		t.Fatalf("expected size 1, got %d", sl.EltsNums())
	}
}

func TestSequentialInsertAndSearch(t *testing.T) {
	sl := newTestSkipList[int64, int64]()

	for i := int64(1); i <= 1000; i++ {
		sl.InsertKey(i, i*i)
	}
	for i := int64(1); i <= 1000; i++ {
		v, ok := sl.Search(i)
		if !ok || v != i*i {
			t.Fatalf("bad value for key %d", i)
		}
	}
	if sl.EltsNums() != 1000 {
		t.Fatalf("expected size 1000, got %d", sl.EltsNums())
	}
}

func TestRandomInsertAndSearch(t *testing.T) {
	sl := newTestSkipList[int64, int64]()
	m := map[int64]int64{}
	r := rand.New(rand.NewSource(2))

	for i := 0; i < 1000; i++ {
		k := r.Int63n(5000)
		v := r.Int63n(99999)
		sl.InsertKey(k, v)
		m[k] = v
	}

	for k, v := range m {
		got, ok := sl.Search(k)
		if !ok || got != v {
			t.Fatalf("bad value for key %d: got %d want %d", k, got, v)
		}
	}
}

func TestDeleteKeyRemovesOnlyMatchingKeys(t *testing.T) {
	sl := newTestSkipList[int64, int64]()

	for i := int64(0); i < 100; i++ {
		sl.InsertKey(i, i)
	}
	for i := int64(0); i < 100; i += 2 {
		sl.DeleteKey(i)
	}

	for i := int64(0); i < 100; i++ {
		_, ok := sl.Search(i)
		if i%2 == 0 && ok {
			t.Fatalf("key %d should be deleted", i)
		}
		if i%2 == 1 && !ok {
			t.Fatalf("key %d should exist", i)
		}
	}
}

func TestDeleteAllDecrementsSizeToZero(t *testing.T) {
	sl := newTestSkipList[int64, int64]()

	for i := int64(0); i < 100; i++ {
		sl.InsertKey(i, i)
	}
	for i := int64(0); i < 100; i++ {
		sl.DeleteKey(i)
	}

	if sl.EltsNums() != 0 {
		t.Fatalf("expected size 0 after deleting everything, got %d", sl.EltsNums())
	}
	for i := int64(0); i < 100; i++ {
		if _, ok := sl.Search(i); ok {
			t.Fatalf("key %d still exists", i)
		}
	}
}

func TestDeleteMissingKeyDoesNotDecrementSize(t *testing.T) {
	sl := newTestSkipList[int64, int64]()
	sl.InsertKey(1, 1)
	sl.InsertKey(2, 2)

	sl.DeleteKey(999)

	if sl.EltsNums() != 2 {
		t.Fatalf("expected size unchanged at 2, got %d", sl.EltsNums())
	}
}

func TestOrderedStructure(t *testing.T) {
	sl := newTestSkipList[int64, int64]()
	r := rand.New(rand.NewSource(3))

	for i := int64(0); i < 200; i++ {
		sl.InsertKey(r.Int63n(10000), i)
	}

	prev := int64(math.MinInt64)
	for x := sl.head.forward[0]; x != nil; x = x.forward[0] {
		if x.record.Key < prev {
			t.Fatalf("skiplist out of order")
		}
		prev = x.record.Key
	}
}

func TestGetAllOrderedAndComplete(t *testing.T) {
	sl := newTestSkipList[int64, int64]()
	for i := int64(1); i <= 1000; i++ {
		sl.InsertKey(i, i*10)
	}

	all := sl.GetAll()
	if len(all) != 1000 {
		t.Fatalf("expected 1000 entries, got %d", len(all))
	}
	for i, rec := range all {
		want := int64(i + 1)
		if rec.Key != want || rec.Value != want*10 {
			t.Fatalf("bad entry at %d: got (%d,%d)", i, rec.Key, rec.Value)
		}
	}
}

func TestGetAllInRangeHalfOpen(t *testing.T) {
	sl := newTestSkipList[int64, int64]()
	for i := int64(0); i < 100; i++ {
		sl.InsertKey(i, i)
	}

	got := sl.GetAllInRange(10, 20)
	if len(got) != 10 {
		t.Fatalf("expected 10 entries in [10,20), got %d", len(got))
	}
	if got[0].Key != 10 || got[len(got)-1].Key != 19 {
		t.Fatalf("unexpected range bounds: first=%d last=%d", got[0].Key, got[len(got)-1].Key)
	}
}

func TestGetAllInRangeDisjointReturnsNil(t *testing.T) {
	sl := newTestSkipList[int64, int64]()
	for i := int64(100); i < 200; i++ {
		sl.InsertKey(i, i)
	}

	if got := sl.GetAllInRange(0, 50); got != nil {
		t.Fatalf("expected nil for disjoint range, got %v", got)
	}
}

func TestGetAllAfterDelete(t *testing.T) {
	sl := newTestSkipList[int64, int64]()
	for i := int64(0); i < 200; i++ {
		sl.InsertKey(i, i)
	}
	for i := int64(0); i < 200; i += 3 {
		sl.DeleteKey(i)
	}

	expected := int64(0)
	for _, rec := range sl.GetAll() {
		if expected%3 == 0 {
			expected++
		}
		if rec.Key != expected {
			t.Fatalf("bad entry after delete: got %d want %d", rec.Key, expected)
		}
		expected++
	}
}
