package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strp(s string) *string { return &s }

func TestParseInstrumentType(t *testing.T) {
	parsed, dt := ParseInstrumentType("Deed of Trust - 2007")
	assert.Equal(t, "DEED OF TRUST", parsed)
	assert.Equal(t, TypeDeedOfTrust, dt)

	parsed, dt = ParseInstrumentType("deed")
	assert.Equal(t, "DEED", parsed)
	assert.Equal(t, TypeDeed, dt)

	// Unmapped text keeps the parsed form but classifies as UNKNOWN.
	parsed, dt = ParseInstrumentType("Ancient Scroll")
	assert.Equal(t, "ANCIENT SCROLL", parsed)
	assert.Equal(t, TypeUnknown, dt)

	parsed, dt = ParseInstrumentType("")
	assert.Equal(t, "", parsed)
	assert.Equal(t, TypeUnknown, dt)
}

func TestParseInstrumentTypeTruncatedSource(t *testing.T) {
	// DuProcess truncates type text at 20 characters.
	_, dt := ParseInstrumentType("MODIFICATION AGREEME")
	assert.Equal(t, TypeModificationAgreement, dt)

	_, dt = ParseInstrumentType("OIL GAS MINERAL LEAS")
	assert.Equal(t, TypeOilGasLease, dt)
}

func TestIsWill(t *testing.T) {
	will := TypeLastWillAndTestament
	deed := TypeDeed

	assert.True(t, (&Document{DocumentType: &will}).IsWill())
	assert.True(t, (&Document{InstrumentTypeParsed: strp("LAST WILL")}).IsWill())
	assert.True(t, (&Document{InstrumentTypeParsed: strp("testament of x")}).IsWill())
	assert.False(t, (&Document{DocumentType: &deed}).IsWill())
	assert.False(t, (&Document{}).IsWill())
}

func TestDocType(t *testing.T) {
	dt := TypeEasement
	assert.Equal(t, TypeEasement, (&Document{DocumentType: &dt}).DocType())
	assert.Equal(t, TypeUnknown, (&Document{}).DocType())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 500))
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, Truncate(string(long), 500), 500)

	// Multi-byte runes are never split.
	s := "aé" // 'é' is two bytes starting at index 1
	assert.Equal(t, "a", Truncate(s, 2))
}

func TestStageTable(t *testing.T) {
	assert.Len(t, Stages, 6)
	assert.Equal(t, 20, Stages["test"].Limit)
	assert.Equal(t, 2000, Stages["small"].Limit)
	assert.Equal(t, 50000, Stages["medium"].Limit)
	assert.Zero(t, Stages["historical-all"].Limit)
	assert.True(t, Stages["retry-failed"].RetryFailed)
	assert.Equal(t, []bookRange{{238, 3972}}, Stages["large"].BookRanges)
}
