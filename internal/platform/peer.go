package platform

import "strconv"

// PeerKind discriminates the PeerRef variants.
type PeerKind int

const (
	// PeerNone is the zero PeerRef; it addresses nothing.
	PeerNone PeerKind = iota

	// PeerID addresses an entity by bare numeric id.
	PeerID

	// PeerUsername addresses an entity by public handle.
	PeerUsername

	// PeerEntity addresses an already-resolved entity.
	PeerEntity
)

// PeerRef is a canonical reference to a remote entity: a numeric id, a
// username, or a resolved entity handle. Exactly one variant is set; the
// resolver is the only producer of non-zero values outside this package.
type PeerRef struct {
	kind     PeerKind
	id       int64
	username string
	entity   *Entity
}

// NumericPeer returns a PeerRef addressing an entity by numeric id.
func NumericPeer(id int64) PeerRef {
	return PeerRef{kind: PeerID, id: id}
}

// UsernamePeer returns a PeerRef addressing an entity by username.
// The name is stored without any "@" prefix.
func UsernamePeer(name string) PeerRef {
	return PeerRef{kind: PeerUsername, username: name}
}

// EntityPeer returns a PeerRef wrapping an already-resolved entity.
func EntityPeer(e *Entity) PeerRef {
	if e == nil {
		return PeerRef{}
	}
	return PeerRef{kind: PeerEntity, id: e.ID, entity: e}
}

// Kind returns the variant tag.
func (p PeerRef) Kind() PeerKind { return p.kind }

// IsZero reports whether the reference addresses nothing.
func (p PeerRef) IsZero() bool { return p.kind == PeerNone }

// ID returns the numeric id for PeerID and PeerEntity references, 0 otherwise.
func (p PeerRef) ID() int64 { return p.id }

// Username returns the handle for PeerUsername references, "" otherwise.
func (p PeerRef) Username() string { return p.username }

// Entity returns the resolved entity for PeerEntity references, nil otherwise.
func (p PeerRef) Entity() *Entity { return p.entity }

// String renders the reference for logs and origin labels.
func (p PeerRef) String() string {
	switch p.kind {
	case PeerID:
		return strconv.FormatInt(p.id, 10)
	case PeerUsername:
		return "@" + p.username
	case PeerEntity:
		if p.entity.Username != "" {
			return "@" + p.entity.Username
		}
		return strconv.FormatInt(p.id, 10)
	default:
		return "<none>"
	}
}
