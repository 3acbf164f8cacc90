package orderbook

import "sort"

// depthIndex maintains a price-sorted view per (symbol, side) so the
// book can answer depth queries without scanning every entry. The
// teacher's matching engine backs this kind of index with a red-black
// tree because it stores a FIFO queue of live orders per level and
// needs O(log n) insert/delete under continuous order churn. This
// index only tracks an aggregate qty/order-count per price — a read-
// mostly summary queried by the operator console, not the matching
// engine's hot path — so a sorted slice with binary search is simpler
// and sufficient: the number of distinct price levels per side stays
// small, and there is no FIFO ordering to maintain within a level.
type depthIndex struct {
	books map[uint32]*symbolBooks
}

type symbolBooks struct {
	bids *levelSet // highest price first
	asks *levelSet // lowest price first
}

func newDepthIndex() *depthIndex {
	return &depthIndex{books: make(map[uint32]*symbolBooks)}
}

func (d *depthIndex) sideTree(symbol uint32, side byte) *levelSet {
	sb, ok := d.books[symbol]
	if !ok {
		sb = &symbolBooks{bids: newLevelSet(true), asks: newLevelSet(false)}
		d.books[symbol] = sb
	}
	if side == 'B' {
		return sb.bids
	}
	return sb.asks
}

func (d *depthIndex) add(symbol uint32, side byte, price, qty int64) {
	if side != 'B' && side != 'S' {
		return
	}
	d.sideTree(symbol, side).increment(price, qty, 1)
}

func (d *depthIndex) remove(symbol uint32, side byte, price, qty int64) {
	if side != 'B' && side != 'S' {
		return
	}
	d.sideTree(symbol, side).increment(price, -qty, -1)
}

func (d *depthIndex) snapshot(symbol uint32, n int) (bids, asks []DepthLevel) {
	sb, ok := d.books[symbol]
	if !ok {
		return nil, nil
	}
	return sb.bids.levels(n), sb.asks.levels(n)
}

// --- sorted-slice level set, keyed by price, aggregating qty/count ---

// priceLevel is one price point's running total.
type priceLevel struct {
	price    int64
	totalQty int64
	orders   int
}

// levelSet keeps priceLevel entries sorted ascending by price.
// descending controls the order levels() walks them in, not the
// storage order: storing ascending always keeps search() a single
// binary-search shape regardless of which side this is.
type levelSet struct {
	entries    []priceLevel
	descending bool
}

func newLevelSet(descending bool) *levelSet {
	return &levelSet{descending: descending}
}

// search returns the index of price if present, and the index it
// would need to be inserted at to keep entries sorted if not.
func (s *levelSet) search(price int64) (idx int, found bool) {
	idx = sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].price >= price
	})
	if idx < len(s.entries) && s.entries[idx].price == price {
		return idx, true
	}
	return idx, false
}

// increment adjusts the qty/order-count aggregate at price, creating
// the level if needed and removing it if it drains to zero orders.
func (s *levelSet) increment(price, deltaQty int64, deltaOrders int) {
	idx, found := s.search(price)
	if !found {
		if deltaOrders <= 0 {
			return
		}
		s.insertAt(idx, priceLevel{price: price})
	}

	lvl := &s.entries[idx]
	lvl.totalQty += deltaQty
	lvl.orders += deltaOrders
	if lvl.orders <= 0 {
		s.removeAt(idx)
	}
}

func (s *levelSet) insertAt(idx int, lvl priceLevel) {
	s.entries = append(s.entries, priceLevel{})
	copy(s.entries[idx+1:], s.entries[idx:])
	s.entries[idx] = lvl
}

func (s *levelSet) removeAt(idx int) {
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
}

// levels returns up to n levels in best-first order (n <= 0 means all).
func (s *levelSet) levels(n int) []DepthLevel {
	out := make([]DepthLevel, 0, len(s.entries))
	if s.descending {
		for i := len(s.entries) - 1; i >= 0; i-- {
			out = append(out, toDepthLevel(s.entries[i]))
			if n > 0 && len(out) >= n {
				break
			}
		}
		return out
	}
	for i := 0; i < len(s.entries); i++ {
		out = append(out, toDepthLevel(s.entries[i]))
		if n > 0 && len(out) >= n {
			break
		}
	}
	return out
}

func toDepthLevel(l priceLevel) DepthLevel {
	return DepthLevel{Price: l.price, TotalQty: l.totalQty, Orders: l.orders}
}
