// Package ring provides a bounded lock-free multi-producer multi-consumer queue.
//
// A [Ring] holds a power-of-two number of slots fixed at construction. Each slot
// carries a sequence number that tells producers and consumers whether it is
// free to write or ready to read, so neither side ever takes a lock or blocks:
// TryEnqueue fails when the ring is full and TryDequeue fails when it is empty.
//
// # Usage
//
//	r, err := ring.New[*Record](10) // 1024 slots
//	if err != nil {
//	    return err
//	}
//
//	if !r.TryEnqueue(rec) {
//	    // full, caller decides whether to drop or retry
//	}
//
//	for {
//	    rec, ok := r.TryDequeue()
//	    if !ok {
//	        break
//	    }
//	    process(rec)
//	}
//
// Items dequeued by a single consumer come out in the order their enqueues
// completed. Multiple consumers are safe but share that order between them.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package ring
