// Package ring implements the bounded shared-memory byte ring used as
// an alternate hand-off surface between this process and an external
// reader mapped to the same segment. The header layout (atomic
// indices, cache-line alignment) follows the same unsafe.Sizeof
// offset-calculation idiom as a shared-memory bridge header; the ring
// discipline itself (length-prefixed records, reject-on-wrap) is
// spec-mandated.
package ring

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	// MaxMessageSize is the largest single record write accepts.
	MaxMessageSize = 1024

	cacheLineSize = 64
	lengthPrefix  = 4
)

var (
	// ErrTooLarge is returned by Write when the payload exceeds MaxMessageSize.
	ErrTooLarge = errors.New("ring: record exceeds MaxMessageSize")
	// ErrBufferFull is returned by Write when there isn't enough free space.
	ErrBufferFull = errors.New("ring: insufficient free space")
	// ErrWouldWrap is returned by Write when the record would have to
	// split across the end of the buffer. The design note in spec.md §9
	// adopts reject-on-wrap rather than defragmenting. The write index
	// is not advanced past the unused tail, so the same record keeps
	// failing at that position; the producer drops it (or writes a
	// record small enough to fit the tail).
	ErrWouldWrap = errors.New("ring: record would wrap past buffer end")
	// ErrEmpty is returned by Read when there is nothing to consume.
	ErrEmpty = errors.New("ring: empty")
	// ErrShortBuffer is returned by Read when the caller's buffer is
	// smaller than the pending record; nothing is consumed.
	ErrShortBuffer = errors.New("ring: caller buffer too small")
)

// header is the fixed region at the start of the shared-memory segment.
// It is exactly one cache line; the payload area begins immediately
// after it, so that boundary is itself cache-line aligned.
type header struct {
	writeIndex uint64
	readIndex  uint64
	bufferSize uint64
	maxRecord  uint64
	ready      uint32
	_          [cacheLineSize - 4*8 - 4]byte
}

func headerSize() uintptr { return unsafe.Sizeof(header{}) }

// Buffer is a fixed-size byte ring backed by a POSIX shared-memory
// segment. Producer and consumer sides are serialized by independent
// mutexes; the indices themselves are atomic so either side can
// observe fill level lock-free.
type Buffer struct {
	name  string
	owner bool // true if this Buffer created (and should unlink) the segment

	file *os.File
	data []byte // mmap of headerSize()+capacity bytes
	hdr  *header
	body []byte // data[headerSize():], length == capacity

	capacity uint64

	writeMu sync.Mutex
	readMu  sync.Mutex
}

// Create allocates a new segment named name under dir (conventionally
// /dev/shm), sized capacity bytes of payload plus the header. The
// segment is truncated and mapped MAP_SHARED so an external reader
// opening the same path observes the same memory.
func Create(dir, name string, capacity uint64) (*Buffer, error) {
	path := dir + "/" + name
	total := headerSize() + uintptr(capacity)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("ring: create %s: %w", path, err)
	}
	if err := f.Truncate(int64(total)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("ring: truncate %s: %w", path, err)
	}

	b, err := mapFile(f, int(total))
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}

	buf := &Buffer{name: path, owner: true, file: f, data: b, capacity: capacity}
	buf.hdr = (*header)(unsafe.Pointer(&b[0]))
	buf.body = b[headerSize():]

	buf.hdr.writeIndex = 0
	buf.hdr.readIndex = 0
	buf.hdr.bufferSize = capacity
	buf.hdr.maxRecord = MaxMessageSize
	atomic.StoreUint32(&buf.hdr.ready, 1)

	return buf, nil
}

// Open maps an existing segment previously created by Create, for a
// consumer in another process (or another goroutine in this one).
func Open(dir, name string) (*Buffer, error) {
	path := dir + "/" + name
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("ring: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ring: stat %s: %w", path, err)
	}

	b, err := mapFile(f, int(info.Size()))
	if err != nil {
		f.Close()
		return nil, err
	}

	buf := &Buffer{name: path, owner: false, file: f, data: b}
	buf.hdr = (*header)(unsafe.Pointer(&b[0]))
	if atomic.LoadUint32(&buf.hdr.ready) == 0 {
		buf.Close()
		return nil, fmt.Errorf("ring: %s not ready", path)
	}
	buf.capacity = buf.hdr.bufferSize
	buf.body = b[headerSize():]
	return buf, nil
}

func mapFile(f *os.File, length int) ([]byte, error) {
	b, err := unix.Mmap(int(f.Fd()), 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("ring: mmap: %w", err)
	}
	return b, nil
}

// Write appends payload to the ring. It never wraps a single record
// across the end of the buffer: if the remaining linear space is too
// small it fails with ErrWouldWrap. Reads do not change the write
// position, so retrying the same record there fails the same way.
func (b *Buffer) Write(payload []byte) error {
	if len(payload) > MaxMessageSize {
		return ErrTooLarge
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	need := uint64(lengthPrefix + len(payload))
	wi := atomic.LoadUint64(&b.hdr.writeIndex)
	ri := atomic.LoadUint64(&b.hdr.readIndex)
	used := wi - ri
	if need > b.capacity-used {
		return ErrBufferFull
	}

	pos := wi % b.capacity
	if need > b.capacity-pos {
		return ErrWouldWrap
	}

	binary.BigEndian.PutUint32(b.body[pos:pos+lengthPrefix], uint32(len(payload)))
	copy(b.body[pos+lengthPrefix:pos+need], payload)

	atomic.StoreUint64(&b.hdr.writeIndex, wi+need)
	return nil
}

// Read consumes the oldest pending record into buf, returning its
// length. If buf is smaller than the pending record, Read returns the
// required length and ErrShortBuffer without consuming anything.
func (b *Buffer) Read(buf []byte) (int, error) {
	b.readMu.Lock()
	defer b.readMu.Unlock()

	wi := atomic.LoadUint64(&b.hdr.writeIndex)
	ri := atomic.LoadUint64(&b.hdr.readIndex)
	if wi == ri {
		return 0, ErrEmpty
	}

	pos := ri % b.capacity
	length := binary.BigEndian.Uint32(b.body[pos : pos+lengthPrefix])
	if len(buf) < int(length) {
		return int(length), ErrShortBuffer
	}

	copy(buf, b.body[pos+lengthPrefix:pos+lengthPrefix+uint64(length)])
	atomic.StoreUint64(&b.hdr.readIndex, ri+lengthPrefix+uint64(length))
	return int(length), nil
}

// Len returns the number of bytes currently occupied (header-relative,
// i.e. write_index - read_index), observable lock-free.
func (b *Buffer) Len() uint64 {
	return atomic.LoadUint64(&b.hdr.writeIndex) - atomic.LoadUint64(&b.hdr.readIndex)
}

// Capacity returns the payload capacity in bytes.
func (b *Buffer) Capacity() uint64 { return b.capacity }

// Close unmaps the segment. An owning Buffer (one created with Create)
// also unlinks the backing file, matching the spec's "unmapped and
// unlinked on destruction".
func (b *Buffer) Close() error {
	if b.data != nil {
		if err := unix.Munmap(b.data); err != nil {
			return fmt.Errorf("ring: munmap: %w", err)
		}
		b.data = nil
	}
	if b.file != nil {
		b.file.Close()
	}
	if b.owner {
		os.Remove(b.name)
	}
	return nil
}
