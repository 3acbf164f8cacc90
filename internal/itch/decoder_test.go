package itch

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeCapture writes a sequence of raw ITCH-shaped records (each
// preceded by its own 2-byte length prefix) to a temp file and returns
// its path.
func writeCapture(t *testing.T, records [][]byte) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "capture-*.itch")
	require.NoError(t, err)
	defer f.Close()

	for _, rec := range records {
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(rec)))
		_, err := f.Write(lenBuf[:])
		require.NoError(t, err)
		_, err = f.Write(rec)
		require.NoError(t, err)
	}
	return f.Name()
}

func addOrderRecord(ref uint64, side byte, shares uint32, ticker string, price uint32, ts uint64) []byte {
	body := make([]byte, 37) // message type + 36-byte payload
	body[0] = 'A'
	putTimestamp48(body[5:11], ts)
	binary.BigEndian.PutUint64(body[11:19], ref)
	body[19] = side
	binary.BigEndian.PutUint32(body[20:24], shares)
	copy(body[24:32], padTicker(ticker))
	binary.BigEndian.PutUint32(body[32:36], price)
	return body
}

func TestDecoder_OpenMissing(t *testing.T) {
	_, err := Open("/nonexistent/path/to/nothing.itch")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDecoder_NextDecodesTimestampAndType(t *testing.T) {
	path := writeCapture(t, [][]byte{addOrderRecord(1000000, 'B', 500, "AAPL", 1500000, 123456789)})
	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()

	rec, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, byte('A'), rec.MessageType)
	assert.Equal(t, uint64(123456789), rec.TimestampNs)
	assert.Len(t, rec.Payload, 36)
}

func TestDecoder_ContinuousReplayWrapsWithoutCorrupt(t *testing.T) {
	records := [][]byte{
		addOrderRecord(1, 'B', 10, "AAPL", 1500000, 1),
		addOrderRecord(2, 'S', 20, "MSFT", 3000000, 2),
	}
	path := writeCapture(t, records)
	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()

	var types []byte
	for i := 0; i < 7; i++ {
		rec, err := d.Next()
		require.NoError(t, err)
		types = append(types, rec.MessageType)
	}
	assert.Len(t, types, 7)
	for _, ty := range types {
		assert.Equal(t, byte('A'), ty)
	}
}

func TestDecoder_CorruptTruncatedPayload(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "capture-*.itch")
	require.NoError(t, err)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], 50)
	_, _ = f.Write(lenBuf[:])
	_, _ = f.Write([]byte{'A', 1, 2, 3}) // far short of the declared 50 bytes
	f.Close()

	d, err := Open(f.Name())
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Next()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestGenerator_ProducesBitCompatibleAddOrder(t *testing.T) {
	gen := NewGenerator(nil, 1)
	d := &Decoder{}
	d.UseGenerator(gen)

	rec, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, byte('A'), rec.MessageType)
	require.Len(t, rec.Payload, 36)

	ref := binary.BigEndian.Uint64(rec.Payload[10:18])
	assert.Equal(t, uint64(1), ref)
	side := rec.Payload[18]
	assert.True(t, side == 'B' || side == 'S')
}
