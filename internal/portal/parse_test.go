package portal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singleImagePage = `<html><body>
<h2>Grantor: SMITH JOHN</h2>
<h2>Grantee: DOE JANE</h2>
<h2>Nature: <em>WARRANTY DEED</em></h2>
<table><tr>
  <td>Book: 150</td>
  <td>Page: 42</td>
  <td><a href="pdf-records.php?image=998877">View Image</a></td>
</tr></table>
</body></html>`

const multiImagePage = `<html><body>
<h2>Grantor: ACME LAND CO</h2>
<h2>Grantee: PUBLIC</h2>
<h2>Nature: <em>DEED OF TRUST</em></h2>
<table><tr><td>Book: 500</td><td>Page: 12</td></tr></table>
<a href="pdf-records.php?image=30">Download Image 3</a>
<a href="pdf-records.php?image=10">Download Image 1</a>
<a href="pdf-records.php?image=20">Download Image 2</a>
</body></html>`

func TestParseResultPageSingleImage(t *testing.T) {
	page, err := parseResultPage([]byte(singleImagePage))
	require.NoError(t, err)

	assert.Equal(t, "SMITH JOHN", page.Meta.Grantor)
	assert.Equal(t, "DOE JANE", page.Meta.Grantee)
	assert.Equal(t, "WARRANTY DEED", page.Meta.Nature)
	require.NotNil(t, page.Meta.Book)
	require.NotNil(t, page.Meta.Page)
	assert.Equal(t, 150, *page.Meta.Book)
	assert.Equal(t, 42, *page.Meta.Page)
	assert.Equal(t, []string{"998877"}, page.ImageIDs)
}

func TestParseResultPageKeepsImageDocumentOrder(t *testing.T) {
	// The portal renders its image anchors in sheet order; the stitched
	// PDF follows the page, not the anchor labels.
	page, err := parseResultPage([]byte(multiImagePage))
	require.NoError(t, err)
	assert.Equal(t, []string{"30", "10", "20"}, page.ImageIDs)
}

func TestParseResultPageNoRecords(t *testing.T) {
	_, err := parseResultPage([]byte(`<html><body><p>No records found.</p></body></html>`))
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindNotFound, fe.Kind)
}

func TestParseResultPageEmptyBody(t *testing.T) {
	_, err := parseResultPage([]byte(`<html><body></body></html>`))
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestParseResultPageMetadataWithoutImage(t *testing.T) {
	page, err := parseResultPage([]byte(`<html><body>
		<h2>Grantor: SOMEONE</h2>
		<table><tr><td>Book: 9</td><td>Page: 264</td></tr></table>
	</body></html>`))
	require.NoError(t, err)
	assert.Empty(t, page.ImageIDs)
}
