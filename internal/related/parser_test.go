package related

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRaw(t *testing.T) {
	raw := "12345 bk:500/12\n67890 bk:501 /  13\n12345 bk:500/12"
	refs := ParseRaw(raw)

	assert.Equal(t, []Ref{
		{Instrument: 12345, Book: 500, Page: 12},
		{Instrument: 67890, Book: 501, Page: 13},
	}, refs)
}

func TestParseRawMultipleRefsPerLine(t *testing.T) {
	// DuProcess sometimes runs several references together on one line.
	refs := ParseRaw("12345 bk:500/12 67890 bk:501/13")

	assert.Equal(t, []Ref{
		{Instrument: 12345, Book: 500, Page: 12},
		{Instrument: 67890, Book: 501, Page: 13},
	}, refs)
}

func TestParseRawIgnoresNoise(t *testing.T) {
	raw := "SEE ALSO PLAT CABINET B\n\n200400123 bk:1200/455\nslide 77"
	refs := ParseRaw(raw)

	assert.Equal(t, []Ref{{Instrument: 200400123, Book: 1200, Page: 455}}, refs)
}

func TestParseRawEmpty(t *testing.T) {
	assert.Empty(t, ParseRaw(""))
	assert.Empty(t, ParseRaw("nothing to see here"))
}

func TestParseRawKeepsDistinctRefsToSameInstrument(t *testing.T) {
	// Same instrument recorded in two books stays as two references.
	refs := ParseRaw("555 bk:10/1\n555 bk:11/2")
	assert.Len(t, refs, 2)
}
