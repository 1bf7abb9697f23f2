package model

// ScanEvent is one entry in the live event sequence produced by a traversal
// run. The concrete type is one of UserFound, UserDetail, UserGifts, or
// ErrorEvent; EventType returns the wire-level discriminator.
//
// Events are immutable once emitted. Events produced before a failure remain
// valid; a terminal ErrorEvent never retracts them.
type ScanEvent interface {
	// EventType returns the stable type tag used on the wire.
	EventType() string
}

// UserFound announces a user whose bio yielded at least one contact link.
// Users without links are never announced, even though their gift edges may
// still be traversed.
type UserFound struct {
	// ID is the user's numeric id.
	ID int64 `json:"id"`

	// Username is the public handle, empty if none.
	Username string `json:"username,omitempty"`

	// FirstName is the display name.
	FirstName string `json:"first_name"`

	// Depth is the BFS depth the user was enqueued at. Never exceeds the
	// run's configured maximum depth.
	Depth int `json:"depth"`

	// DiscoveredFrom labels the user that led here: "@username", a first
	// name, or a numeric id as a string. Empty for seed users.
	DiscoveredFrom string `json:"discovered_from,omitempty"`
}

// EventType implements ScanEvent.
func (UserFound) EventType() string { return "user_found" }

// UserDetail carries the bio and extracted links for an announced user.
type UserDetail struct {
	// ID is the user's numeric id.
	ID int64 `json:"id"`

	// Bio is the sanitized profile text.
	Bio string `json:"bio"`

	// ChannelLinks are the extracted contact identifiers.
	ChannelLinks []string `json:"channel_links"`

	// Username is the public handle, empty if none.
	Username string `json:"username,omitempty"`
}

// EventType implements ScanEvent.
func (UserDetail) EventType() string { return "user_detail" }

// UserGifts carries a user's gift ledger. It is emitted whenever gifts
// exist, regardless of whether the user produced UserFound, because gift
// edges are needed for graph connectivity on their own.
type UserGifts struct {
	// UserID is the gift receiver's numeric id.
	UserID int64 `json:"user_id"`

	// Gifts is the received gift list.
	Gifts []Gift `json:"gifts"`

	// ResolvedUsers maps sender ids to identity stubs for display.
	ResolvedUsers map[int64]UserStub `json:"resolved_users"`
}

// EventType implements ScanEvent.
func (UserGifts) EventType() string { return "user_gifts" }

// ErrorEvent is the single terminal event produced when seeding or the
// traversal driver itself fails. Per-user probe failures never produce one.
type ErrorEvent struct {
	// Message describes the failure.
	Message string `json:"message"`
}

// EventType implements ScanEvent.
func (ErrorEvent) EventType() string { return "error" }
