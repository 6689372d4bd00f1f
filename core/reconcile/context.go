package reconcile

import (
	"strings"
	"sync"

	"sheet-reconciler/core/store"
)

// Context threads the results of already reconciled sheets through a run.
// Relation fields are validated against the results registered here, so a sheet
// must be registered before any sheet referencing its entity is compared.
type Context struct {
	mu       sync.RWMutex
	results  []*DatasetResult
	byEntity map[string]*DatasetResult
	bySheet  map[string]*DatasetResult

	// rows memoizes store rows fetched while chasing references, keyed by entity and identity.
	rows map[string]store.Row
	// naturalKeys memoizes rendered natural keys, keyed by entity, reference paths and identity.
	naturalKeys map[string]string
}

// NewContext creates an empty run context.
func NewContext() *Context {
	return &Context{
		byEntity:    make(map[string]*DatasetResult),
		bySheet:     make(map[string]*DatasetResult),
		rows:        make(map[string]store.Row),
		naturalKeys: make(map[string]string),
	}
}

// Register adds a sheet result. The first sheet registered for an entity answers
// reference lookups into that entity.
func (c *Context) Register(r *DatasetResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results = append(c.results, r)
	c.bySheet[strings.ToLower(r.Sheet)] = r
	if k := strings.ToLower(r.Entity); c.byEntity[k] == nil {
		c.byEntity[k] = r
	}
}

// ForEntity returns the result that answers lookups into entity.
func (c *Context) ForEntity(entity string) (*DatasetResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byEntity[strings.ToLower(entity)]
	return r, ok
}

// ForSheet returns the result of a sheet.
func (c *Context) ForSheet(sheet string) (*DatasetResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.bySheet[strings.ToLower(sheet)]
	return r, ok
}

// Results returns every registered result in processing order.
func (c *Context) Results() []*DatasetResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*DatasetResult(nil), c.results...)
}

func (c *Context) cachedRow(key string) (store.Row, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rows[key]
	return r, ok
}

func (c *Context) storeRow(key string, row store.Row) {
	c.mu.Lock()
	c.rows[key] = row
	c.mu.Unlock()
}

// forgetRow drops a memoized row after a commit changed it.
func (c *Context) forgetRow(key string) {
	c.mu.Lock()
	delete(c.rows, key)
	for k := range c.naturalKeys {
		if strings.HasSuffix(k, indexSeparator+key) {
			delete(c.naturalKeys, k)
		}
	}
	c.mu.Unlock()
}

func (c *Context) cachedKey(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.naturalKeys[key]
	return v, ok
}

func (c *Context) storeKey(key, value string) {
	c.mu.Lock()
	c.naturalKeys[key] = value
	c.mu.Unlock()
}
