package model

import "time"

// Gift is one record from a user's gift ledger. Gifts are used purely as
// graph edges: the sender id, when present, points at another user worth
// probing.
type Gift struct {
	// ID is the platform-assigned gift identifier.
	ID int64 `json:"id"`

	// SenderID identifies the user who sent the gift. Zero means the
	// sender chose to stay anonymous; such gifts contribute no edge.
	SenderID int64 `json:"sender_id,omitempty"`

	// Date is when the gift was sent.
	Date time.Time `json:"date"`

	// Message is the free-text note attached to the gift, sanitized.
	Message string `json:"message"`

	// Stars is the gift's star value.
	Stars int `json:"stars"`
}

// HasSender reports whether the gift attributes a sender.
func (g Gift) HasSender() bool {
	return g.SenderID != 0
}

// UserStub is the minimal identity carried alongside gift ledgers so
// consumers can resolve sender ids to display names without extra calls.
type UserStub struct {
	// Username is the public handle, empty if the user has none.
	Username string `json:"username,omitempty"`

	// FirstName is the display name, sanitized.
	FirstName string `json:"first_name"`
}
