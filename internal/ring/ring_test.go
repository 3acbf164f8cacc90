package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_WriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b, err := Create(dir, "tickshaper_shm_test", 256)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Write([]byte("hello")))
	require.NoError(t, b.Write([]byte("world!")))

	buf := make([]byte, 32)
	n, err := b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	n, err = b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "world!", string(buf[:n]))

	_, err = b.Read(buf)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestBuffer_ConcatenationPreservesOrderAcrossInterleaving(t *testing.T) {
	dir := t.TempDir()
	b, err := Create(dir, "tickshaper_shm_interleave", 64)
	require.NoError(t, err)
	defer b.Close()

	var written, read []byte
	payloads := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc"), []byte("d")}

	for _, p := range payloads {
		for {
			if err := b.Write(p); err == nil {
				written = append(written, p...)
				break
			}
			buf := make([]byte, MaxMessageSize)
			n, rerr := b.Read(buf)
			require.NoError(t, rerr)
			read = append(read, buf[:n]...)
		}
	}
	for {
		buf := make([]byte, MaxMessageSize)
		n, rerr := b.Read(buf)
		if rerr != nil {
			break
		}
		read = append(read, buf[:n]...)
	}

	assert.Equal(t, written, read)
}

func TestBuffer_RejectsOversizedRecord(t *testing.T) {
	dir := t.TempDir()
	b, err := Create(dir, "tickshaper_shm_oversize", 4096)
	require.NoError(t, err)
	defer b.Close()

	err = b.Write(make([]byte, MaxMessageSize+1))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestBuffer_FailsWhenFull(t *testing.T) {
	dir := t.TempDir()
	b, err := Create(dir, "tickshaper_shm_full", 16)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Write([]byte("12345")))
	err = b.Write([]byte("1234567890"))
	assert.ErrorIs(t, err, ErrBufferFull)
}

func TestBuffer_ShortReadBufferDoesNotConsume(t *testing.T) {
	dir := t.TempDir()
	b, err := Create(dir, "tickshaper_shm_short", 64)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Write([]byte("0123456789")))

	small := make([]byte, 4)
	n, err := b.Read(small)
	assert.ErrorIs(t, err, ErrShortBuffer)
	assert.Equal(t, 10, n)

	big := make([]byte, 16)
	n, err = b.Read(big)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(big[:n]))
}

func TestBuffer_OpenExistingSegment(t *testing.T) {
	dir := t.TempDir()
	producer, err := Create(dir, "tickshaper_shm_shared", 64)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, producer.Write([]byte("shared")))

	consumer, err := Open(dir, "tickshaper_shm_shared")
	require.NoError(t, err)
	defer consumer.Close()

	buf := make([]byte, 16)
	n, err := consumer.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "shared", string(buf[:n]))
}
