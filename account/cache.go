package account

import "sync"

// Cache holds the current Record and tells subscribers when it changes.
type Cache struct {
	mu      sync.Mutex
	record  *Record
	version uint64

	pubMu     sync.Mutex
	published uint64

	subsMu  sync.Mutex
	subs    map[int]func(*Record)
	nextSub int
}

func NewCache() *Cache {
	return &Cache{subs: make(map[int]func(*Record))}
}

// Get returns a copy of the cached Record, or false before anything was loaded.
func (c *Cache) Get() (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record == nil {
		return Record{}, false
	}
	return c.record.clone(), true
}

func (c *Cache) Set(rec Record) {
	rec = rec.clone()
	c.mu.Lock()
	c.record = &rec
	v, snap := c.changed()
	c.mu.Unlock()
	c.publish(v, snap)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	if c.record == nil {
		c.mu.Unlock()
		return
	}
	c.record = nil
	v, snap := c.changed()
	c.mu.Unlock()
	c.publish(v, snap)
}

// SetTwoFactorEnabled updates the two-factor flag of a loaded Record.
func (c *Cache) SetTwoFactorEnabled(enabled bool) {
	c.update(func(r *Record) { r.TwoFactorEnabled = enabled })
}

// SetUsername updates the username of a loaded Record.
func (c *Cache) SetUsername(username string) {
	c.update(func(r *Record) { r.Username = username })
}

// swapFlag sets flag to value and returns the previous value. ok is false when
// nothing is loaded, in which case nothing changes.
func (c *Cache) swapFlag(flag Flag, value bool) (prev bool, ok bool) {
	c.mu.Lock()
	if c.record == nil {
		c.mu.Unlock()
		return false, false
	}
	prev = c.record.Flag(flag)
	if prev == value {
		c.mu.Unlock()
		return prev, true
	}
	c.record.setFlag(flag, value)
	v, snap := c.changed()
	c.mu.Unlock()
	c.publish(v, snap)
	return prev, true
}

func (c *Cache) update(fn func(*Record)) bool {
	c.mu.Lock()
	if c.record == nil {
		c.mu.Unlock()
		return false
	}
	fn(c.record)
	v, snap := c.changed()
	c.mu.Unlock()
	c.publish(v, snap)
	return true
}

// changed bumps the version and copies the record. c.mu must be held.
func (c *Cache) changed() (uint64, *Record) {
	c.version++
	if c.record == nil {
		return c.version, nil
	}
	snap := c.record.clone()
	return c.version, &snap
}

// Subscribe registers fn to be called with the Record after every change (nil after
// Clear). Calls are made one at a time and never go back to an older Record; fn must
// not modify the Cache. The returned function removes the subscription.
func (c *Cache) Subscribe(fn func(*Record)) func() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		delete(c.subs, id)
	}
}

// publish delivers snapshot v unless a newer version already went out.
func (c *Cache) publish(v uint64, snapshot *Record) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if v <= c.published {
		return
	}
	c.published = v

	c.subsMu.Lock()
	fns := make([]func(*Record), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subsMu.Unlock()
	for _, fn := range fns {
		if snapshot == nil {
			fn(nil)
			continue
		}
		rec := snapshot.clone()
		fn(&rec)
	}
}
