package portal

// Portal identifies which county lookup system serves a book range. The
// split mirrors the county's own digitization eras.
type Portal string

const (
	// Historical serves deed books below 238.
	Historical Portal = "historical"
	// Mid serves books 238 through 3971.
	Mid Portal = "mid"
	// New serves books 3972 and up. It requires a browser session and is
	// excluded from the current phase; cleaning skips its rows before
	// they ever reach a worker.
	New Portal = "new"
)

const (
	midPortalFirstBook = 238
	newPortalFirstBook = 3972
)

// Route maps a book number to the portal that serves it.
func Route(book int) Portal {
	switch {
	case book < midPortalFirstBook:
		return Historical
	case book < newPortalFirstBook:
		return Mid
	default:
		return New
	}
}
