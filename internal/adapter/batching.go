package adapter

import (
	"time"

	"golang.org/x/time/rate"
)

// batchProfile controls chunked enhanced-transaction fetches: batch size and
// the fixed pacing between consecutive batches. At most one batch is in
// flight at a time.
type batchProfile struct {
	size  int
	delay time.Duration
}

var batchProfiles = map[FetchMode]batchProfile{
	FetchModeInteractive: {size: 25, delay: 500 * time.Millisecond},
	FetchModeBackground:  {size: 100, delay: 200 * time.Millisecond},
}

// profileFor returns the batch profile for a fetch mode, defaulting to the
// background profile for unknown modes.
func profileFor(mode FetchMode) batchProfile {
	p, ok := batchProfiles[mode]
	if !ok {
		return batchProfiles[FetchModeBackground]
	}
	return p
}

// newBatchLimiter builds a rate limiter enforcing the profile's inter-batch
// delay. The first Wait passes immediately.
func newBatchLimiter(p batchProfile) *rate.Limiter {
	return rate.NewLimiter(rate.Every(p.delay), 1)
}

// chunkSignatures splits a signature list into provider-sized batches
func chunkSignatures(signatures []string, size int) [][]string {
	if size <= 0 {
		size = 100
	}
	var chunks [][]string
	for start := 0; start < len(signatures); start += size {
		end := start + size
		if end > len(signatures) {
			end = len(signatures)
		}
		chunks = append(chunks, signatures[start:end])
	}
	return chunks
}
