package cache

import "time"

// Element is one TTL-bearing entry. A zero validUntil never expires, used
// for entries whose lifetime is managed some other way (e.g. an explicit
// Delete on completion rather than a timeout).
type Element[T any] struct {
	validUntil time.Time
	data       T
	onExpire   func(d T)
}

func newElement[T any](data T, validUntil time.Time, onExpire func(d T)) *Element[T] {
	if onExpire == nil {
		onExpire = func(T) {}
	}
	return &Element[T]{data: data, validUntil: validUntil, onExpire: onExpire}
}

func (e *Element[T]) IsExpired(now time.Time) bool {
	if e.validUntil.IsZero() {
		return false
	}
	return now.After(e.validUntil)
}

func (e *Element[T]) Data() T { return e.data }

// Cache is a concurrency-safe map of keys to TTL-bearing elements, grounded
// on the teacher's pkg/cache/cache.go. Used by exchange.Store for the
// byID/byToken indices.
type Cache[K comparable, V any] struct {
	data *syncMap[K, *Element[V]]
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{data: newSyncMap[K, *Element[V]]()}
}

// NewElement creates an element with the given expiry and onExpire
// callback, ready to be stored.
func (c *Cache[K, V]) NewElement(data V, validUntil time.Time, onExpire func(d V)) *Element[V] {
	return newElement(data, validUntil, onExpire)
}

// LoadOrStore loads the existing unexpired element for key, or stores e if
// none exists or the existing one has expired.
func (c *Cache[K, V]) LoadOrStore(key K, e *Element[V]) (actual *Element[V], loaded bool) {
	now := time.Now()
	c.data.ReplaceWithFunc(key, func(oldValue *Element[V], oldLoaded bool) (*Element[V], bool) {
		if oldLoaded && !oldValue.IsExpired(now) {
			actual = oldValue
			return oldValue, false
		}
		actual = e
		return e, false
	})
	return actual, actual != e
}

// Load returns the unexpired element for key. (nil, false) means absent;
// (nil, true) means present but expired.
func (c *Cache[K, V]) Load(key K) (element *Element[V], loaded bool) {
	e, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}
	if e.IsExpired(time.Now()) {
		return nil, true
	}
	return e, true
}

func (c *Cache[K, V]) Delete(key K) bool {
	return c.data.Delete(key)
}

func (c *Cache[K, V]) Len() int {
	return c.data.Len()
}

// Range calls f for every stored element, expired or not, stopping early
// if f returns false. It iterates over a snapshot of the entries.
func (c *Cache[K, V]) Range(f func(key K, e *Element[V]) bool) {
	c.data.Range(f)
}

// CheckExpirations sweeps every entry, deleting and firing onExpire for
// anything expired as of now. The exchange store's Sweep calls this on
// every tick of the endpoint's MarkAndSweepInterval ticker.
func (c *Cache[K, V]) CheckExpirations(now time.Time) {
	var expired []struct {
		key K
		e   *Element[V]
	}
	c.data.Range(func(key K, e *Element[V]) bool {
		if e.IsExpired(now) {
			expired = append(expired, struct {
				key K
				e   *Element[V]
			}{key, e})
		}
		return true
	})
	for _, x := range expired {
		c.data.Delete(x.key)
		x.e.onExpire(x.e.data)
	}
}
