package model

// ScanResult holds everything learned about a single user during one probe:
// profile basics, bio text, extracted contact links, and the gift ledger.
// It is assembled once by the probe and treated as read-only afterwards.
type ScanResult struct {
	// UserID is the probed user's numeric id.
	UserID int64

	// Username is the public handle, empty if none.
	Username string

	// FirstName is the display name, sanitized.
	FirstName string

	// Bio is the sanitized profile text the links were extracted from.
	Bio string

	// Links are the deduplicated contact identifiers found in the bio,
	// plus the user's personal channel alias when one is declared.
	// The user's own username is never included.
	Links []string

	// Gifts is the user's gift ledger, possibly empty.
	Gifts []Gift

	// RelatedUsers maps gift sender ids to identity stubs, letting the
	// traversal derive better peer references and origin labels.
	RelatedUsers map[int64]UserStub
}
