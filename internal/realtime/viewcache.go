package realtime

import "sync"

// Names of the derived views recomputed from the idea table.
const (
	ViewMetrics           = "metrics"
	ViewRecentSubmissions = "recent_submissions"
	ViewIdeaList          = "idea_list"
	ViewPipeline          = "pipeline"
)

// IdeaViews are every view the bridge drops when the idea table
// changes.
var IdeaViews = []string{ViewMetrics, ViewRecentSubmissions, ViewIdeaList, ViewPipeline}

// ViewCache memoizes derived read models until an invalidation drops
// them. Invalidating an absent or already-invalid view is a no-op, so
// duplicate deliveries are harmless.
type ViewCache struct {
	mu      sync.Mutex
	entries map[string]any
}

func NewViewCache() *ViewCache {
	return &ViewCache{entries: make(map[string]any)}
}

func (c *ViewCache) Get(view string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[view]
	return v, ok
}

func (c *ViewCache) Put(view string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[view] = value
}

func (c *ViewCache) Invalidate(views ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range views {
		delete(c.entries, v)
	}
}

func (c *ViewCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
}
