package tick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTick_RoundTrip(t *testing.T) {
	orig := Tick{
		TimestampNs: 123456789,
		SymbolID:    7,
		Price:       15000,
		Size:        500,
		Side:        'B',
		MessageType: 'A',
	}

	data, err := orig.Serialize()
	require.NoError(t, err)

	got, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestTick_SerializeKeyOrder(t *testing.T) {
	tk := Tick{TimestampNs: 1, SymbolID: 2, Price: 3, Size: 4, Side: 'S', MessageType: 'E'}
	data, err := tk.Serialize()
	require.NoError(t, err)

	s := string(data)
	order := []string{`"timestamp"`, `"symbol_id"`, `"price"`, `"size"`, `"side"`, `"message_type"`}
	last := -1
	for _, key := range order {
		idx := indexOf(s, key)
		require.Greaterf(t, idx, last, "key %s out of order in %s", key, s)
		last = idx
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestTick_UnknownSideSerializesAsU(t *testing.T) {
	tk := Tick{Side: 'U', MessageType: 'Z'}
	data, err := tk.Serialize()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"side":"U"`)
}
