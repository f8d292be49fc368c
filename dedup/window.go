package dedup

import (
	"container/heap"
	"sync"
	"time"

	lerrors "github.com/mezonai/tokenledger/errors"
	"github.com/mezonai/tokenledger/types"
)

const (
	DefaultTransactionWindow = 24 * time.Hour
	DefaultPermittedDrift    = 2 * time.Minute

	// entries are grouped by created_at_time into buckets of this width and evicted a bucket at a time
	bucketWidth = uint64(time.Second)
)

type entryKey struct {
	submitter     string
	memo          string
	createdAtTime uint64
}

// Window remembers recently committed requests that carried a created_at_time, so a
// retried request is answered with the index of the original instead of executing twice.
type Window struct {
	mu                sync.RWMutex
	transactionWindow uint64
	permittedDrift    uint64

	entries map[entryKey]uint64
	buckets map[uint64][]entryKey
	order   bucketHeap
}

func NewWindow(transactionWindow, permittedDrift time.Duration) *Window {
	if transactionWindow <= 0 {
		transactionWindow = DefaultTransactionWindow
	}
	if permittedDrift < 0 {
		permittedDrift = DefaultPermittedDrift
	}
	return &Window{
		transactionWindow: uint64(transactionWindow),
		permittedDrift:    uint64(permittedDrift),
		entries:           make(map[entryKey]uint64),
		buckets:           make(map[uint64][]entryKey),
	}
}

func (w *Window) TransactionWindow() time.Duration {
	return time.Duration(w.transactionWindow)
}

func (w *Window) PermittedDrift() time.Duration {
	return time.Duration(w.permittedDrift)
}

// lowerBound is the oldest created_at_time still accepted at ledger time now
func (w *Window) lowerBound(now uint64) uint64 {
	span := w.transactionWindow + w.permittedDrift
	if now < span {
		return 0
	}
	return now - span
}

// Check applies the window rules without recording anything. A nil createdAtTime
// opts out of deduplication.
func (w *Window) Check(submitter types.Account, memo []byte, createdAtTime *uint64, now uint64) error {
	if createdAtTime == nil {
		return nil
	}
	created := *createdAtTime

	if created < w.lowerBound(now) {
		return lerrors.NewTooOld()
	}
	if created > now+w.permittedDrift {
		return lerrors.NewCreatedInFuture(now)
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if index, ok := w.entries[newEntryKey(submitter, memo, created)]; ok {
		return lerrors.NewDuplicate(index)
	}
	return nil
}

// Record remembers the request as committed at index and evicts entries that aged out
func (w *Window) Record(submitter types.Account, memo []byte, createdAtTime *uint64, index uint64, now uint64) {
	if createdAtTime == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.add(newEntryKey(submitter, memo, *createdAtTime), index)
	w.evictLocked(now)
}

// CheckAndRecord is Check followed by Record at newIndex when the check passes
func (w *Window) CheckAndRecord(submitter types.Account, memo []byte, createdAtTime *uint64, now, newIndex uint64) error {
	if err := w.Check(submitter, memo, createdAtTime, now); err != nil {
		return err
	}
	w.Record(submitter, memo, createdAtTime, newIndex, now)
	return nil
}

// Evict drops every bucket whose newest possible entry is older than the window at now
func (w *Window) Evict(now uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evictLocked(now)
}

// Len returns the number of remembered requests
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}

// Reset forgets everything, used before rebuilding from the log
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = make(map[entryKey]uint64)
	w.buckets = make(map[uint64][]entryKey)
	w.order = w.order[:0]
}

func (w *Window) add(key entryKey, index uint64) {
	if _, exists := w.entries[key]; exists {
		return
	}
	w.entries[key] = index

	bucket := key.createdAtTime / bucketWidth
	if _, exists := w.buckets[bucket]; !exists {
		heap.Push(&w.order, bucket)
	}
	w.buckets[bucket] = append(w.buckets[bucket], key)
}

func (w *Window) evictLocked(now uint64) {
	lower := w.lowerBound(now)
	for w.order.Len() > 0 {
		oldest := w.order[0]
		// the bucket still holds an entry at or after lower
		if (oldest+1)*bucketWidth > lower {
			return
		}
		heap.Pop(&w.order)
		for _, key := range w.buckets[oldest] {
			delete(w.entries, key)
		}
		delete(w.buckets, oldest)
	}
}

func newEntryKey(submitter types.Account, memo []byte, createdAtTime uint64) entryKey {
	return entryKey{
		submitter:     submitter.Key(),
		memo:          string(memo),
		createdAtTime: createdAtTime,
	}
}

// bucketHeap is a min-heap of bucket ids
type bucketHeap []uint64

func (h bucketHeap) Len() int            { return len(h) }
func (h bucketHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h bucketHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *bucketHeap) Push(x interface{}) { *h = append(*h, x.(uint64)) }
func (h *bucketHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
