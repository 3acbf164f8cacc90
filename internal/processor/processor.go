// Package processor interprets decoded ITCH records against the order
// book and symbol table, producing the normalized Tick that flows to
// the rest of the pipeline.
package processor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/siri1404/ITCHFlow/internal/itch"
	"github.com/siri1404/ITCHFlow/internal/orderbook"
	"github.com/siri1404/ITCHFlow/internal/symboltable"
	"github.com/siri1404/ITCHFlow/internal/tick"
)

// ErrMalformedRecord is returned when a recognized message type's
// payload is shorter than its required minimum length.
var ErrMalformedRecord = errors.New("processor: malformed record")

// minPayloadLen holds the per-type minimum payload length from the
// wire-format table; anything shorter is rejected rather than parsed.
var minPayloadLen = map[byte]int{
	'A': 36, 'F': 36,
	'E': 30,
	'P': 43, 'Q': 43,
	'X': 22,
	'D': 18,
}

// Counters tracks per-type accepted-message counts for observability.
// Delete shares the Cancel counter, matching the four-counter original.
type Counters struct {
	Add    atomic.Uint64
	Exec   atomic.Uint64
	Trade  atomic.Uint64
	Cancel atomic.Uint64
}

// Processor interprets RawRecords against a shared OrderBook and
// SymbolTable, dispatching on message_type through process().
type Processor struct {
	book     *orderbook.Book
	symbols  *symboltable.Table
	counters Counters
}

// New returns a Processor sharing book and symbols with the rest of the
// runtime.
func New(book *orderbook.Book, symbols *symboltable.Table) *Processor {
	return &Processor{book: book, symbols: symbols}
}

// Counters exposes the processor's atomic per-type counters.
func (p *Processor) Counters() *Counters {
	return &p.counters
}

// Reset zeroes all four per-type counters.
func (c *Counters) Reset() {
	c.Add.Store(0)
	c.Exec.Store(0)
	c.Trade.Store(0)
	c.Cancel.Store(0)
}

// Process dispatches rec by message type, returning the normalized
// Tick or ErrMalformedRecord if the payload is too short for its type.
func (p *Processor) Process(rec itch.RawRecord) (tick.Tick, error) {
	switch rec.MessageType {
	case 'A', 'F':
		return p.processAdd(rec)
	case 'E':
		return p.processExecuted(rec)
	case 'P', 'Q':
		return p.processTrade(rec)
	case 'X':
		return p.processCancel(rec)
	case 'D':
		return p.processDelete(rec)
	default:
		return tick.Tick{
			TimestampNs: rec.TimestampNs,
			MessageType: rec.MessageType,
			Side:        'U',
		}, nil
	}
}

func (p *Processor) checkLen(rec itch.RawRecord, label string) error {
	need := minPayloadLen[rec.MessageType]
	if len(rec.Payload) < need {
		return fmt.Errorf("%w: %s payload is %d bytes, need >= %d", ErrMalformedRecord, label, len(rec.Payload), need)
	}
	return nil
}

func (p *Processor) processAdd(rec itch.RawRecord) (tick.Tick, error) {
	if err := p.checkLen(rec, "add order"); err != nil {
		return tick.Tick{}, err
	}
	payload := rec.Payload

	ref := be64(payload[10:18])
	side := payload[18]
	shares := be32(payload[19:23])
	ticker := trimTicker(payload[23:31])
	price := priceToCents(be32(payload[31:35]))

	symID := p.symbols.Intern(ticker)
	p.book.Insert(ref, orderbook.Entry{
		Price:       price,
		Size:        shares,
		Side:        side,
		TimestampNs: rec.TimestampNs,
		Symbol:      symID,
	})
	p.counters.Add.Add(1)

	return tick.Tick{
		TimestampNs: rec.TimestampNs,
		SymbolID:    symID,
		Price:       price,
		Size:        shares,
		Side:        side,
		MessageType: rec.MessageType,
	}, nil
}

func (p *Processor) processExecuted(rec itch.RawRecord) (tick.Tick, error) {
	if err := p.checkLen(rec, "order executed"); err != nil {
		return tick.Tick{}, err
	}
	payload := rec.Payload

	ref := be64(payload[10:18])
	execShares := be32(payload[18:22])
	// match number at offset 22 (8 bytes) is not consumed downstream.

	before, found := p.book.Decrement(ref, execShares)
	p.counters.Exec.Add(1)

	t := tick.Tick{TimestampNs: rec.TimestampNs, Size: execShares, MessageType: rec.MessageType, Side: 'U'}
	if found {
		t.SymbolID = before.Symbol
		t.Side = before.Side
		t.Price = before.Price
	}
	return t, nil
}

func (p *Processor) processTrade(rec itch.RawRecord) (tick.Tick, error) {
	if err := p.checkLen(rec, "trade"); err != nil {
		return tick.Tick{}, err
	}
	payload := rec.Payload

	side := payload[18]
	shares := be32(payload[19:23])
	ticker := trimTicker(payload[23:31])
	price := priceToCents(be32(payload[31:35]))
	// match number at offset 35 (8 bytes) is not consumed downstream.

	symID := p.symbols.Intern(ticker)
	p.counters.Trade.Add(1)

	return tick.Tick{
		TimestampNs: rec.TimestampNs,
		SymbolID:    symID,
		Price:       price,
		Size:        shares,
		Side:        side,
		MessageType: rec.MessageType,
	}, nil
}

func (p *Processor) processCancel(rec itch.RawRecord) (tick.Tick, error) {
	if err := p.checkLen(rec, "cancel"); err != nil {
		return tick.Tick{}, err
	}
	payload := rec.Payload

	ref := be64(payload[10:18])
	cancelShares := be32(payload[18:22])

	before, found := p.book.Decrement(ref, cancelShares)
	p.counters.Cancel.Add(1)

	t := tick.Tick{TimestampNs: rec.TimestampNs, Size: cancelShares, MessageType: rec.MessageType, Side: 'U'}
	if found {
		t.SymbolID = before.Symbol
		t.Side = before.Side
		t.Price = before.Price
	}
	return t, nil
}

func (p *Processor) processDelete(rec itch.RawRecord) (tick.Tick, error) {
	if err := p.checkLen(rec, "delete"); err != nil {
		return tick.Tick{}, err
	}
	ref := be64(rec.Payload[10:18])

	before, found := p.book.Erase(ref)
	p.counters.Cancel.Add(1)

	t := tick.Tick{TimestampNs: rec.TimestampNs, MessageType: rec.MessageType, Side: 'U'}
	if found {
		t.SymbolID = before.Symbol
		t.Side = before.Side
		t.Price = before.Price
		t.Size = before.Size
	}
	return t, nil
}

// priceToCents converts an ITCH price (1/10000 of a dollar) to cents.
func priceToCents(itchPrice uint32) int64 {
	return int64(itchPrice) / 100
}

func trimTicker(b []byte) string {
	return strings.TrimRight(string(b), " ")
}

func be64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }
func be32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
