package permission

import (
	"container/list"
	"sync"
)

// resolveCache memoizes resolved user permission sets for the current
// snapshot version. The whole cache is invalidated when the version
// changes; entries are never patched incrementally. Within a version the
// least recently used entry is evicted at capacity.
type resolveCache struct {
	mu       sync.Mutex
	capacity int
	version  uint64
	items    map[string]*list.Element
	eviction *list.List
}

type resolveEntry struct {
	userID string
	perms  *EffectiveUserPermissions
}

func newResolveCache(capacity int) *resolveCache {
	if capacity <= 0 {
		panic("permission: resolver cache capacity must be positive")
	}
	return &resolveCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

func (c *resolveCache) get(version uint64, userID string) (*EffectiveUserPermissions, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.syncVersion(version)

	elem, ok := c.items[userID]
	if !ok {
		return nil, false
	}
	c.eviction.MoveToFront(elem)
	return elem.Value.(*resolveEntry).perms, true
}

func (c *resolveCache) put(version uint64, userID string, perms *EffectiveUserPermissions) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.syncVersion(version)

	if elem, ok := c.items[userID]; ok {
		c.eviction.MoveToFront(elem)
		elem.Value.(*resolveEntry).perms = perms
		return
	}

	elem := c.eviction.PushFront(&resolveEntry{userID: userID, perms: perms})
	c.items[userID] = elem

	if c.eviction.Len() > c.capacity {
		oldest := c.eviction.Back()
		if oldest != nil {
			c.eviction.Remove(oldest)
			delete(c.items, oldest.Value.(*resolveEntry).userID)
		}
	}
}

// syncVersion clears everything when the snapshot version moves. Caller
// must hold the lock.
func (c *resolveCache) syncVersion(version uint64) {
	if version == c.version {
		return
	}
	c.version = version
	c.items = make(map[string]*list.Element)
	c.eviction.Init()
}

func (c *resolveCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}
