package platform

import (
	"context"
	"iter"

	"github.com/telephasma/telephasma/internal/model"
)

// Credentials identifies an account and the API application used to access it.
type Credentials struct {
	// APIID is the numeric API application id.
	APIID int

	// APIHash is the API application secret.
	APIHash string

	// Phone is the account's phone number in international format.
	Phone string

	// Session is a previously exported session blob, nil for a fresh login.
	Session []byte
}

// EntityKind classifies resolved entities.
type EntityKind string

// Entity kinds as exposed to transport clients.
const (
	EntityUser      EntityKind = "user"
	EntityGroup     EntityKind = "group"
	EntityChannel   EntityKind = "channel"
	EntityMegagroup EntityKind = "megagroup"
)

// Entity is a resolved platform entity: a user, group, or channel.
// Holding an Entity is strictly better than holding a bare id; the platform
// can address it without a further lookup.
type Entity struct {
	// ID is the entity's numeric id, always positive.
	ID int64

	// Username is the public handle, empty if none.
	Username string

	// Title is the display title (chat title or user display name).
	Title string

	// Kind classifies the entity.
	Kind EntityKind
}

// User is one member record from a participant enumeration.
type User struct {
	// ID is the user's numeric id.
	ID int64

	// Username is the public handle, empty if none.
	Username string

	// FirstName is the display name.
	FirstName string

	// Bot marks bot accounts, which the traversal never probes.
	Bot bool

	// Deleted marks deleted accounts, which are skipped everywhere.
	Deleted bool
}

// Entity converts the user record into a resolved entity handle.
func (u User) Entity() *Entity {
	return &Entity{ID: u.ID, Username: u.Username, Title: u.FirstName, Kind: EntityUser}
}

// FullProfile is the complete profile of a single user.
type FullProfile struct {
	// User is the profile owner.
	User User

	// Bio is the raw profile text.
	Bio string

	// PersonalChannelID is the id of the channel the user pinned to their
	// profile, 0 if none.
	PersonalChannelID int64
}

// GiftLedger is a user's received-gift list plus identity stubs for the
// senders that appear in it.
type GiftLedger struct {
	// Gifts is the received gift list, newest first.
	Gifts []model.Gift

	// Users maps sender ids to identity stubs.
	Users map[int64]model.UserStub
}

// Dialog is one entry of the account's recent-conversation list. The dialog
// id may differ from the entity id (channel dialogs use a marked negative
// form); both are matched during cache lookups.
type Dialog struct {
	// ID is the dialog-level id as the transport exposes it.
	ID int64

	// Name is the dialog's display name.
	Name string

	// Entity is the resolved entity behind the dialog.
	Entity *Entity
}

// Chat is a group or channel summary, as returned by common-chat lookups.
type Chat struct {
	// ID is the chat's numeric id.
	ID int64

	// Title is the chat's display title.
	Title string

	// Kind classifies the chat.
	Kind EntityKind
}

// Client is the remote platform collaborator. Every method honors context
// cancellation; failures are reported through the structured classes in this
// package. One Client serves one account session.
//
// Methods are issued one at a time by the scan engine; implementations need
// to tolerate concurrent calls only from the transport surface (dialog and
// member listings may race a running scan).
type Client interface {
	// Connect establishes the session. Reuses Credentials.Session when
	// provided, otherwise prepares a fresh login.
	Connect(ctx context.Context, creds Credentials) error

	// Connected reports whether a session is established.
	Connected() bool

	// SendCode requests a login code for the connected phone. It returns
	// false when the session is already authorized and no code was sent.
	SendCode(ctx context.Context) (bool, error)

	// SignIn completes authentication. When the account has 2FA enabled
	// and password is empty, it fails with ErrTwoFactorRequired.
	SignIn(ctx context.Context, phone, code, password string) error

	// ExportSession serializes the authorized session for encrypted
	// at-rest storage. Fails with ErrNotConnected before sign-in.
	ExportSession(ctx context.Context) ([]byte, error)

	// RecentDialogs returns up to limit dialogs, most recent first.
	RecentDialogs(ctx context.Context, limit int) ([]Dialog, error)

	// GetEntity resolves a peer reference to an entity.
	GetEntity(ctx context.Context, peer PeerRef) (*Entity, error)

	// Participants enumerates members of a chat entity, up to limit.
	// Exhaustive mode trades extra requests for better coverage of large
	// chats. The sequence may yield a non-nil error as its final element.
	Participants(ctx context.Context, entity *Entity, limit int, exhaustive bool) iter.Seq2[User, error]

	// GetFullProfile fetches a user's full profile.
	GetFullProfile(ctx context.Context, peer PeerRef) (*FullProfile, error)

	// GetGiftLedger fetches up to limit received gifts for a user.
	GetGiftLedger(ctx context.Context, peer PeerRef, limit int) (*GiftLedger, error)

	// GetCommonChats lists chats shared with the target user, up to limit.
	GetCommonChats(ctx context.Context, peer PeerRef, limit int) ([]Chat, error)
}
