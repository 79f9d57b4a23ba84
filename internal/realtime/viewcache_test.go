package realtime

import "testing"

func TestViewCachePutGetInvalidate(t *testing.T) {
	cache := NewViewCache()

	if _, ok := cache.Get(ViewMetrics); ok {
		t.Fatalf("empty cache reported a hit")
	}

	cache.Put(ViewMetrics, map[string]int64{"submitted": 2})
	if v, ok := cache.Get(ViewMetrics); !ok || v == nil {
		t.Fatalf("expected hit after Put")
	}

	cache.Invalidate(ViewMetrics)
	if _, ok := cache.Get(ViewMetrics); ok {
		t.Fatalf("expected miss after Invalidate")
	}
}

func TestViewCacheInvalidateIsIdempotent(t *testing.T) {
	cache := NewViewCache()
	cache.Put(ViewPipeline, "cached")

	// Duplicate and unknown-view invalidations are no-ops, so
	// at-least-once delivery upstream is safe.
	cache.Invalidate(ViewPipeline)
	cache.Invalidate(ViewPipeline)
	cache.Invalidate("no_such_view")

	if _, ok := cache.Get(ViewPipeline); ok {
		t.Fatalf("expected miss after repeated invalidation")
	}
}

func TestViewCacheInvalidateAll(t *testing.T) {
	cache := NewViewCache()
	for _, view := range IdeaViews {
		cache.Put(view, view)
	}
	cache.InvalidateAll()
	for _, view := range IdeaViews {
		if _, ok := cache.Get(view); ok {
			t.Fatalf("view %q survived InvalidateAll", view)
		}
	}
}
