package storage

// CacheEntry is a row of cache_entries.
type CacheEntry struct {
	Generation string
	Url        string
	Status     int64
	Headers    string
	Body       []byte
	StoredAt   int64
}
