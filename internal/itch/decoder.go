package itch

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Decoder reads sequential variable-length records from a capture file.
// Each record on the wire is a 2-byte big-endian length L followed by L
// bytes, the first of which is the message type.
//
// Next is safe for concurrent callers; progress through the file is
// serialized by decMu, matching the spec's "callers may invoke it from
// multiple workers but progress is serialized" contract.
type Decoder struct {
	decMu sync.Mutex

	file *os.File
	r    *bufio.Reader

	fileSize   int64
	estRecords int64

	gen *Generator // non-nil once switched to synthetic mode
}

// Open prepares path for sequential reads. On failure it returns
// ErrNotFound so the caller can substitute a Generator instead.
func Open(path string) (*Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return &Decoder{
		file:       f,
		r:          bufio.NewReaderSize(f, 64*1024),
		fileSize:   info.Size(),
		estRecords: info.Size() / 50,
	}, nil
}

// UseGenerator switches the decoder into synthetic mode. Subsequent
// calls to Next fabricate records instead of reading the file.
func (d *Decoder) UseGenerator(gen *Generator) {
	d.decMu.Lock()
	d.gen = gen
	d.decMu.Unlock()
}

// NewSynthetic returns a Decoder already in generator mode, for callers
// that hit ErrNotFound on Open and never had a real file to begin with.
func NewSynthetic(gen *Generator) *Decoder {
	return &Decoder{gen: gen}
}

// EstimatedRecords returns filesize/50, a rough progress denominator.
func (d *Decoder) EstimatedRecords() int64 {
	return d.estRecords
}

// Next returns the next RawRecord. At end-of-file the decoder rewinds
// and continues: callers see continuous replay, and observe io.EOF only
// when the capture holds no complete record at all.
// A framing error yields ErrCorrupt for that one record; the stream
// position has already advanced past it by the time the caller sees it.
func (d *Decoder) Next() (RawRecord, error) {
	d.decMu.Lock()
	defer d.decMu.Unlock()

	if d.gen != nil {
		return d.gen.next(), nil
	}

	rec, err := d.readOne()
	if err == io.EOF {
		if rerr := d.rewindLocked(); rerr != nil {
			return RawRecord{}, rerr
		}
		rec, err = d.readOne()
	}
	return rec, err
}

func (d *Decoder) readOne() (RawRecord, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(d.r, lenBuf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return RawRecord{}, io.EOF
		}
		return RawRecord{}, fmt.Errorf("%w: length prefix: %v", ErrCorrupt, err)
	}

	length := binary.BigEndian.Uint16(lenBuf[:])
	if length == 0 {
		return RawRecord{}, fmt.Errorf("%w: zero-length record", ErrCorrupt)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return RawRecord{}, fmt.Errorf("%w: truncated payload: %v", ErrCorrupt, err)
	}

	msgType := body[0]
	payload := body[1:]

	var ts uint64
	if messageTypesWithTimestamp[msgType] && len(payload) >= 10 {
		ts = extractTimestamp48(payload)
	} else {
		ts = uint64(time.Now().UnixNano())
	}

	return RawRecord{MessageType: msgType, TimestampNs: ts, Payload: payload}, nil
}

func (d *Decoder) rewindLocked() error {
	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("itch: rewind: %w", err)
	}
	d.r.Reset(d.file)
	return nil
}

// Reset seeks to the start of the capture, or resets the generator's
// internal sequence counters in synthetic mode.
func (d *Decoder) Reset() error {
	d.decMu.Lock()
	defer d.decMu.Unlock()
	if d.gen != nil {
		d.gen.reset()
		return nil
	}
	return d.rewindLocked()
}

// Close releases the underlying file handle. A no-op in synthetic mode.
func (d *Decoder) Close() error {
	d.decMu.Lock()
	defer d.decMu.Unlock()
	if d.file == nil {
		return nil
	}
	return d.file.Close()
}
