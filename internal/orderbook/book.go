// Package orderbook tracks live resting orders keyed by order
// reference, resolving later Execute/Cancel/Delete records against the
// Add that created them.
package orderbook

import "sync"

// Entry is a resting order. Created on Add, mutated only by Execute
// (decrementing Size) and partial Cancel, and destroyed when Size
// reaches 0 or on Delete.
type Entry struct {
	Price       int64  // cents
	Size        uint32 // remaining shares
	Side        byte   // 'B' or 'S'
	TimestampNs uint64 // time of the Add
	Symbol      uint32 // interned symbol id
}

// Book is a mutex-protected mapping from order_reference to Entry.
// Single-writer-per-entry is not guaranteed across workers, so every
// operation takes the same lock; the map operations are O(1) and the
// depth-index update is a binary search plus a slice shift over one
// side's price levels, so contention stays cheap.
type Book struct {
	mu      sync.Mutex
	entries map[uint64]Entry
	depth   *depthIndex
}

// New returns an empty order book with depth tracking enabled.
func New() *Book {
	return &Book{
		entries: make(map[uint64]Entry),
		depth:   newDepthIndex(),
	}
}

// Insert records a new resting order. An existing entry for the same
// reference is overwritten and its depth contribution removed first, so
// a replayed Add for a reference still live in the book is not counted
// twice.
func (b *Book) Insert(ref uint64, e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.entries[ref]; ok {
		b.depth.remove(old.Symbol, old.Side, old.Price, int64(old.Size))
	}
	b.entries[ref] = e
	b.depth.add(e.Symbol, e.Side, e.Price, int64(e.Size))
}

// Lookup returns the entry for ref without modifying the book.
func (b *Book) Lookup(ref uint64) (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[ref]
	return e, ok
}

// Decrement reduces the resting size of ref by n, erasing the entry if
// the result reaches zero. If n exceeds the current size, it clamps to
// zero and erases — tolerating out-of-order or partial-loss input
// without halting the pipeline. It returns the entry as it stood
// immediately before this decrement (so callers can report the prior
// symbol/side/price), and whether a live entry was found at all.
func (b *Book) Decrement(ref uint64, n uint32) (before Entry, found bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[ref]
	if !ok {
		return Entry{}, false
	}
	before = e

	if n >= e.Size {
		b.depth.remove(e.Symbol, e.Side, e.Price, int64(e.Size))
		delete(b.entries, ref)
		return before, true
	}

	b.depth.remove(e.Symbol, e.Side, e.Price, int64(n))
	e.Size -= n
	b.entries[ref] = e
	return before, true
}

// Erase removes ref unconditionally (Delete semantics), returning the
// entry as it stood immediately before removal.
func (b *Book) Erase(ref uint64) (before Entry, found bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[ref]
	if !ok {
		return Entry{}, false
	}
	b.depth.remove(e.Symbol, e.Side, e.Price, int64(e.Size))
	delete(b.entries, ref)
	return e, true
}

// Size returns the number of live entries.
func (b *Book) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// DepthLevel is one price level in a DepthSnapshot.
type DepthLevel struct {
	Price    int64
	TotalQty int64
	Orders   int
}

// DepthSnapshot returns the top n bid and ask price levels for symbol.
// n <= 0 returns every level. This is an enrichment beyond bare
// reference-keyed bookkeeping: it gives the operator console something
// to show for "book <symbol>".
func (b *Book) DepthSnapshot(symbol uint32, n int) (bids, asks []DepthLevel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.depth.snapshot(symbol, n)
}
