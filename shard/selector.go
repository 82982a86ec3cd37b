package shard

import "hash/fnv"

/*
This file decides which shard owns a key. Spreading keys evenly keeps any single
shard lock from becoming the bottleneck.
*/

// Selector maps a key to a shard index in [0, n).
type Selector func(key string, n int) int

// FNV hashes the key with 32-bit FNV-1a, a fast non-cryptographic hash.
func FNV(key string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
