package main

import (
	"testing"
)

func openTestCache(t *testing.T) *processCache {
	t.Helper()
	c, err := openProcessCache("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestProcessCacheGetPut(t *testing.T) {
	c := openTestCache(t)
	if _, ok, err := c.Get(1, "entity=Country"); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	if err := c.Put(1, "entity=Country", []byte(`{"a":"b"}`)); err != nil {
		t.Fatal(err)
	}
	body, ok, err := c.Get(1, "entity=Country")
	if err != nil || !ok || string(body) != `{"a":"b"}` {
		t.Fatalf("got %q ok=%v err=%v", body, ok, err)
	}
	if _, ok, _ := c.Get(2, "entity=Country"); ok {
		t.Fatal("entries must not leak across versions")
	}
}

func TestProcessCacheEvict(t *testing.T) {
	c := openTestCache(t)
	for v := uint64(1); v <= 3; v++ {
		if err := c.Put(v, "q", []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	if n, err := c.Len(); err != nil || n != 3 {
		t.Fatalf("len = %d, %v", n, err)
	}
	if err := c.Evict(3); err != nil {
		t.Fatal(err)
	}
	if n, err := c.Len(); err != nil || n != 1 {
		t.Fatalf("len after evict = %d, %v", n, err)
	}
	if _, ok, _ := c.Get(3, "q"); !ok {
		t.Fatal("current version was evicted")
	}
}

func TestCacheKeyOrdersByVersion(t *testing.T) {
	if string(cacheKey(9, "z")) >= string(cacheKey(10, "a")) {
		t.Fatal("version prefix must sort numerically")
	}
}
