package wiki

// Event payloads for the host extension points the core reacts to. The
// host owns the event bus; the core only consumes these as pure
// (payload) -> (store side-effect) functions.

// PageSaveEvent fires after the host persisted a content revision.
type PageSaveEvent struct {
	Page     string
	Revision int64
	Editor   string
	Summary  string
	Title    string
}

// PageDeleteEvent fires after the host deleted a page. Stored data is
// tombstoned, never physically removed.
type PageDeleteEvent struct {
	Page   string
	Editor string
}

// PageMoveEvent fires after a page rename; stored Page and Lookup
// references to the old id must be rewritten.
type PageMoveEvent struct {
	From string
	To   string
}
