package utils

import (
	"hash/fnv"
	"time"
)

// ShardIndex 計算分片索引
func ShardIndex(totalShards uint64, key string) uint64 {
	if totalShards <= 1 {
		return 0
	}
	h := fnv.New64a()
	if _, err := h.Write([]byte(key)); err != nil {
		return 0
	}
	return h.Sum64() % totalShards
}

// GetExpirationTime returns ttl[0] when it is positive, otherwise defaultTime.
func GetExpirationTime(defaultTime time.Duration, ttl ...time.Duration) time.Duration {
	if len(ttl) > 0 && ttl[0] > 0 {
		return ttl[0]
	}
	return defaultTime
}
