package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// RandomSeed returns a positive seed from crypto/rand, falling back to the
// clock if the system source fails. It never returns 0.
func RandomSeed() int64 {
	var buf [8]byte
	seed := time.Now().UnixNano()
	if _, err := rand.Read(buf[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	}
	if seed <= 0 {
		seed = 1
	}
	return seed
}

// TaskSeed derives the seed of the i-th texture in a batch. A zero base
// seed yields independent random seeds.
//
// A derived seed of 0 would mean "random" to Render, so it becomes 1. No
// other seed of the batch can be 1, since they all differ from 0 by a
// multiple of 1000.
func TaskSeed(base int64, i int) int64 {
	if base == 0 {
		return RandomSeed()
	}
	seed := base + int64(i)*1000
	if seed == 0 {
		return 1
	}
	return seed
}
