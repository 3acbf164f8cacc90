package symboltable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_InternIsStableAndMonotonic(t *testing.T) {
	tbl := New()

	id1 := tbl.Intern("AAPL")
	id2 := tbl.Intern("MSFT")
	id1Again := tbl.Intern("AAPL")

	assert.Equal(t, uint32(1), id1)
	assert.Equal(t, uint32(2), id2)
	assert.Equal(t, id1, id1Again)
}

func TestTable_ZeroIsUnknown(t *testing.T) {
	tbl := New()
	_, ok := tbl.Lookup(0)
	assert.False(t, ok)
}

func TestTable_LookupRoundTrips(t *testing.T) {
	tbl := New()
	id := tbl.Intern("GOOGL")

	ticker, ok := tbl.Lookup(id)
	assert.True(t, ok)
	assert.Equal(t, "GOOGL", ticker)
}

func TestTable_UnassignedIDNotFound(t *testing.T) {
	tbl := New()
	tbl.Intern("AAPL")
	_, ok := tbl.Lookup(999)
	assert.False(t, ok)
}

func TestTable_FindDoesNotIntern(t *testing.T) {
	tbl := New()
	_, ok := tbl.Find("TSLA")
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.Count())

	id := tbl.Intern("TSLA")
	found, ok := tbl.Find("TSLA")
	assert.True(t, ok)
	assert.Equal(t, id, found)
}
