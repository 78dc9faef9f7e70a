// Package ttlcache implements a thread-safe, in-process key-value cache in
// which every entry carries its own time to live.
//
// Expired entries are removed lazily when they are read and proactively by a
// background sweeper that runs on a fixed interval until Shutdown is called.
// Hit and miss counters are kept for diagnostics and are reset only by Clear.
//
// Size and Keys report the raw table, so they may include entries that have
// expired but have not been swept or read yet.
//
// Values are returned as stored. Callers must not mutate reference values
// (slices, maps, pointers) obtained from the cache.
package ttlcache
