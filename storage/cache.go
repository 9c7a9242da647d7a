package storage

import (
	"sort"
	"sync"
)

// CacheDB buffers writes on top of a parent database. Nothing reaches the
// parent until Commit; Discard drops every buffered write.
type CacheDB struct {
	mu     sync.RWMutex
	parent Database
	dirty  map[string][]byte
	delete map[string]struct{}
}

// NewCacheDB wraps parent.
func NewCacheDB(parent Database) *CacheDB {
	c := &CacheDB{parent: parent}
	c.reset()
	return c
}

func (c *CacheDB) reset() {
	c.dirty = make(map[string][]byte)
	c.delete = make(map[string]struct{})
}

func (c *CacheDB) Put(key []byte, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := string(key)
	delete(c.delete, k)
	c.dirty[k] = append([]byte(nil), value...)
	return nil
}

func (c *CacheDB) Get(key []byte) ([]byte, error) {
	c.mu.RLock()
	k := string(key)
	if _, gone := c.delete[k]; gone {
		c.mu.RUnlock()
		return nil, ErrNotFound
	}
	if value, ok := c.dirty[k]; ok {
		c.mu.RUnlock()
		return append([]byte(nil), value...), nil
	}
	c.mu.RUnlock()
	return c.parent.Get(key)
}

func (c *CacheDB) Delete(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := string(key)
	delete(c.dirty, k)
	c.delete[k] = struct{}{}
	return nil
}

// Write buffers ops like individual Put/Delete calls.
func (c *CacheDB) Write(ops []Op) error {
	for _, op := range ops {
		var err error
		if op.Value == nil {
			err = c.Delete(op.Key)
		} else {
			err = c.Put(op.Key, op.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Pending returns the buffered operations in key order.
func (c *CacheDB) Pending() []Op {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ops := make([]Op, 0, len(c.dirty)+len(c.delete))
	for k, v := range c.dirty {
		ops = append(ops, Op{Key: []byte(k), Value: append([]byte(nil), v...)})
	}
	for k := range c.delete {
		ops = append(ops, Op{Key: []byte(k)})
	}
	sort.Slice(ops, func(i, j int) bool { return string(ops[i].Key) < string(ops[j].Key) })
	return ops
}

// Commit flushes buffered writes to the parent atomically.
func (c *CacheDB) Commit() error {
	ops := c.Pending()
	if len(ops) == 0 {
		return nil
	}
	if err := c.parent.Write(ops); err != nil {
		return err
	}
	c.mu.Lock()
	c.reset()
	c.mu.Unlock()
	return nil
}

// Discard drops every buffered write.
func (c *CacheDB) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Close is a no-op; the parent owns the underlying handle.
func (c *CacheDB) Close() {}
