package portal

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

var (
	bookRe          = regexp.MustCompile(`Book:\s*(\d+)`)
	pageRe          = regexp.MustCompile(`Page:\s*(\d+)`)
	imageHrefRe     = regexp.MustCompile(`pdf-records\.php\?image=(\d+)`)
	downloadImageRe = regexp.MustCompile(`^Download Image\s+(\d+)`)
)

// resultPage is the parsed portal search-result page.
type resultPage struct {
	Meta     Metadata
	ImageIDs []string
}

// parseResultPage extracts document metadata and image references from a
// portal result page. Both portal eras render the same header block; only
// the image links differ: the historical layout has a single image anchor,
// the mid layout numbers its "Download Image N" anchors, one per scanned
// sheet, which the caller merges in order.
func parseResultPage(body []byte) (*resultPage, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fetchErr(KindParseError, "parse result page", err)
	}

	text := htmlquery.InnerText(doc)
	if strings.Contains(strings.ToLower(text), "no records found") {
		return nil, fetchErrf(KindNotFound, "portal reported no records")
	}

	page := &resultPage{}
	for _, h2 := range htmlquery.Find(doc, "//h2") {
		t := strings.TrimSpace(htmlquery.InnerText(h2))
		switch {
		case strings.HasPrefix(t, "Grantor:"):
			page.Meta.Grantor = strings.TrimSpace(strings.TrimPrefix(t, "Grantor:"))
		case strings.HasPrefix(t, "Grantee:"):
			page.Meta.Grantee = strings.TrimSpace(strings.TrimPrefix(t, "Grantee:"))
		case strings.HasPrefix(t, "Nature:"):
			if em := htmlquery.FindOne(h2, ".//em"); em != nil {
				page.Meta.Nature = strings.TrimSpace(htmlquery.InnerText(em))
			} else {
				page.Meta.Nature = strings.TrimSpace(strings.TrimPrefix(t, "Nature:"))
			}
		}
	}

	for _, td := range htmlquery.Find(doc, "//td") {
		t := htmlquery.InnerText(td)
		if page.Meta.Book == nil {
			if m := bookRe.FindStringSubmatch(t); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					page.Meta.Book = &n
				}
			}
		}
		if page.Meta.Page == nil {
			if m := pageRe.FindStringSubmatch(t); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					page.Meta.Page = &n
				}
			}
		}
	}

	page.ImageIDs = imageIDs(doc)
	empty := page.Meta.Grantor == "" && page.Meta.Grantee == "" && page.Meta.Nature == "" &&
		page.Meta.Book == nil && page.Meta.Page == nil
	if empty && len(page.ImageIDs) == 0 {
		return nil, fetchErrf(KindNotFound, "result page carried no document")
	}
	return page, nil
}

// imageIDs collects the portal image identifiers from anchor hrefs, kept
// in document order; the portal lays its "Download Image N" anchors out in
// sheet order, one per scanned sheet, and all of them are taken. A page
// with only unlabeled anchors yields a single image, the first.
func imageIDs(doc *html.Node) []string {
	var labeled, plain []string
	seen := map[string]bool{}

	for _, a := range htmlquery.Find(doc, "//a[@href]") {
		href := htmlquery.SelectAttr(a, "href")
		m := imageHrefRe.FindStringSubmatch(href)
		if m == nil || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		label := strings.TrimSpace(htmlquery.InnerText(a))
		if downloadImageRe.MatchString(label) {
			labeled = append(labeled, m[1])
		} else {
			plain = append(plain, m[1])
		}
	}

	if len(labeled) > 0 {
		return labeled
	}
	if len(plain) > 0 {
		return plain[:1]
	}
	return nil
}
