// Package tick defines the normalized Tick emitted by the message
// processor and carried, unchanged, all the way to the bus.
package tick

import "github.com/bytedance/sonic"

// Tick is immutable once constructed. Its shape is fixed regardless of
// the source record that produced it.
type Tick struct {
	TimestampNs uint64
	SymbolID    uint32
	Price       int64 // cents
	Size        uint32
	Side        byte // 'B', 'S', or 'U'
	MessageType byte
}

// wireTick mirrors Tick but pins the exact JSON key order and renders
// Side/MessageType as single-character strings, matching the bus wire
// contract byte for byte.
type wireTick struct {
	Timestamp   uint64 `json:"timestamp"`
	SymbolID    uint32 `json:"symbol_id"`
	Price       int64  `json:"price"`
	Size        uint32 `json:"size"`
	Side        string `json:"side"`
	MessageType string `json:"message_type"`
}

// Serialize renders t as the JSON object the bus transmits.
func (t Tick) Serialize() ([]byte, error) {
	w := wireTick{
		Timestamp:   t.TimestampNs,
		SymbolID:    t.SymbolID,
		Price:       t.Price,
		Size:        t.Size,
		Side:        string(t.Side),
		MessageType: string(t.MessageType),
	}
	return sonic.Marshal(w)
}

// Deserialize parses the wire form back into a Tick. Present primarily
// to satisfy the round-trip property and for test/subscriber tooling.
func Deserialize(data []byte) (Tick, error) {
	var w wireTick
	if err := sonic.Unmarshal(data, &w); err != nil {
		return Tick{}, err
	}
	t := Tick{
		TimestampNs: w.Timestamp,
		SymbolID:    w.SymbolID,
		Price:       w.Price,
		Size:        w.Size,
	}
	if len(w.Side) > 0 {
		t.Side = w.Side[0]
	}
	if len(w.MessageType) > 0 {
		t.MessageType = w.MessageType[0]
	}
	return t, nil
}
