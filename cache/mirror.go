package cache

// Mirror is a durable key/value store behind the in-memory LRU. Values are
// opaque encoded entries; keys are fingerprint keys.
type Mirror interface {
	Name() string
	// Load returns the entry for key; ok is false when absent
	Load(key string) (value []byte, ok bool, err error)
	Store(key string, value []byte) error
	Delete(key string) error
	Clear() error
	// Range calls fn for every stored entry until fn returns false
	Range(fn func(key string, value []byte) bool) error
	Close() error
}
