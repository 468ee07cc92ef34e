package cache

import (
	"bytes"
	"sync"
	"testing"
)

func TestPutGet(t *testing.T) {
	c := NewPageCache()

	if _, ok := c.Get("/sites/abc"); ok {
		t.Error("Get() on an empty cache reported a hit")
	}

	c.Put("/sites/abc", []byte("rendered page"))
	body, ok := c.Get("/sites/abc")
	if !ok || !bytes.Equal(body, []byte("rendered page")) {
		t.Errorf("Get() = %q, %v — want the stored payload", body, ok)
	}
}

func TestPut_StoresACopy(t *testing.T) {
	c := NewPageCache()

	original := []byte("immutable")
	c.Put("/p", original)
	original[0] = 'X'

	body, _ := c.Get("/p")
	if !bytes.Equal(body, []byte("immutable")) {
		t.Errorf("cached bytes = %q — caller mutation leaked into the cache", body)
	}
}

func TestInvalidate(t *testing.T) {
	c := NewPageCache()
	c.Put("/sites/abc", []byte("stale"))

	c.Invalidate("/sites/abc")
	if _, ok := c.Get("/sites/abc"); ok {
		t.Error("Get() hit after Invalidate()")
	}

	// Invalidating a missing path is a no-op, not an error — mutations
	// invalidate unconditionally.
	c.Invalidate("/never-cached")
}

func TestConcurrentAccess(t *testing.T) {
	c := NewPageCache()
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Put("/p", []byte("x"))
				c.Get("/p")
				c.Invalidate("/p")
			}
		}()
	}
	wg.Wait()
}
