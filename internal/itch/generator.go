package itch

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// SymbolSpec describes one entry of the synthetic generator's universe:
// a ticker and the price/size ranges it draws from.
type SymbolSpec struct {
	Ticker   string
	MinPrice uint32 // ITCH units, 1/10000 dollar
	MaxPrice uint32
	MinSize  uint32
	MaxSize  uint32
}

// defaultSymbols mirrors the 8-ticker default universe used when no
// symbols CSV is configured.
var defaultSymbols = []SymbolSpec{
	{"AAPL", 1400000, 1600000, 100, 1000},
	{"MSFT", 3000000, 3400000, 100, 1000},
	{"GOOGL", 1200000, 1500000, 50, 500},
	{"AMZN", 1300000, 1700000, 50, 500},
	{"TSLA", 2000000, 2800000, 50, 1000},
	{"META", 2800000, 3200000, 50, 500},
	{"NVDA", 4000000, 5000000, 50, 500},
	{"AMD", 900000, 1200000, 100, 1000},
}

// Generator fabricates Add-Order-shaped RawRecords when no capture file
// is present. Emitted payloads use the exact offsets, endianness and
// sizes of a genuine Add Order so MessageProcessor cannot tell the
// difference.
type Generator struct {
	rng     *rand.Rand
	symbols []SymbolSpec

	sampleTimestampNs uint64
	sampleOrderRef    uint64
	messageIntervalNs uint64
}

// NewGenerator builds a generator over the given symbols (or the
// default 8-ticker universe if empty).
func NewGenerator(symbols []SymbolSpec, seed int64) *Generator {
	if len(symbols) == 0 {
		symbols = defaultSymbols
	}
	return &Generator{
		rng:               rand.New(rand.NewSource(seed)),
		symbols:           symbols,
		sampleOrderRef:    1,
		messageIntervalNs: 1_000_000, // 1ms base interval
	}
}

// LoadSymbolsCSV reads "TICKER,min_price,max_price,min_size,max_size"
// lines, skipping blanks and '#' comments.
func LoadSymbolsCSV(path string) ([]SymbolSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("itch: symbols csv: %w", err)
	}
	defer f.Close()

	var specs []SymbolSpec
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 5 {
			return nil, fmt.Errorf("itch: symbols csv: malformed line %q", line)
		}
		minP, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("itch: symbols csv: %w", err)
		}
		maxP, err := strconv.ParseUint(strings.TrimSpace(fields[2]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("itch: symbols csv: %w", err)
		}
		minS, err := strconv.ParseUint(strings.TrimSpace(fields[3]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("itch: symbols csv: %w", err)
		}
		maxS, err := strconv.ParseUint(strings.TrimSpace(fields[4]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("itch: symbols csv: %w", err)
		}
		specs = append(specs, SymbolSpec{
			Ticker:   strings.TrimSpace(fields[0]),
			MinPrice: uint32(minP),
			MaxPrice: uint32(maxP),
			MinSize:  uint32(minS),
			MaxSize:  uint32(maxS),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return specs, nil
}

// next fabricates one Add Order record.
func (g *Generator) next() RawRecord {
	sym := g.symbols[g.rng.Intn(len(g.symbols))]

	price := sym.MinPrice
	if sym.MaxPrice > sym.MinPrice {
		price += uint32(g.rng.Intn(int(sym.MaxPrice - sym.MinPrice + 1)))
	}
	shares := sym.MinSize
	if sym.MaxSize > sym.MinSize {
		shares += uint32(g.rng.Intn(int(sym.MaxSize - sym.MinSize + 1)))
	}
	side := byte('B')
	if g.rng.Intn(2) == 1 {
		side = 'S'
	}

	jitterNs := uint64(g.rng.Intn(9_000_001)) // 0..9ms, giving a 1..10ms span together with the base
	g.sampleTimestampNs += g.messageIntervalNs + jitterNs

	payload := make([]byte, 36)
	// offsets 0..3 (stock_locate, tracking_number) unused, left zero
	putTimestamp48(payload[4:10], g.sampleTimestampNs%(24*3600*1_000_000_000))
	binary.BigEndian.PutUint64(payload[10:18], g.sampleOrderRef)
	payload[18] = side
	binary.BigEndian.PutUint32(payload[19:23], shares)
	copy(payload[23:31], padTicker(sym.Ticker))
	binary.BigEndian.PutUint32(payload[31:35], price)
	// offset 35: pad byte, left zero

	g.sampleOrderRef++

	return RawRecord{
		MessageType: 'A',
		TimestampNs: g.sampleTimestampNs,
		Payload:     payload,
	}
}

func (g *Generator) reset() {
	g.sampleTimestampNs = 0
	g.sampleOrderRef = 1
}

func putTimestamp48(dst []byte, ns uint64) {
	dst[0] = byte(ns >> 40)
	dst[1] = byte(ns >> 32)
	dst[2] = byte(ns >> 24)
	dst[3] = byte(ns >> 16)
	dst[4] = byte(ns >> 8)
	dst[5] = byte(ns)
}

func padTicker(ticker string) []byte {
	b := make([]byte, 8)
	for i := range b {
		b[i] = ' '
	}
	copy(b, ticker)
	return b
}
