package memory

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/telephasma/telephasma/internal/model"
	"github.com/telephasma/telephasma/internal/platform"
)

// Client is a fixture-backed platform.Client. The fixture graph is
// immutable after construction; session state and injected failures are
// guarded by a mutex so transport handlers can race a running scan.
type Client struct {
	users      map[int64]*FixtureUser
	byUsername map[string]*FixtureUser
	chats      map[int64]*FixtureChat
	dialogs    []int64

	authorizedByDefault bool
	twoFactorPassword   string

	mu         sync.Mutex
	connected  bool
	authorized bool
	phone      string
	failures   map[string][]error
	calls      map[string]int
}

// New builds a Client over the given fixture.
func New(f *Fixture) *Client {
	c := &Client{
		users:               make(map[int64]*FixtureUser, len(f.Users)),
		byUsername:          make(map[string]*FixtureUser, len(f.Users)),
		chats:               make(map[int64]*FixtureChat, len(f.Chats)),
		dialogs:             f.Dialogs,
		authorizedByDefault: f.Authorized,
		twoFactorPassword:   f.TwoFactorPassword,
		failures:            make(map[string][]error),
		calls:               make(map[string]int),
	}
	for i := range f.Users {
		u := &f.Users[i]
		c.users[u.ID] = u
		if u.Username != "" {
			c.byUsername[strings.ToLower(u.Username)] = u
		}
	}
	for i := range f.Chats {
		ch := &f.Chats[i]
		c.chats[ch.ID] = ch
	}
	return c
}

// Load builds a Client from a fixture file.
func Load(path string) (*Client, error) {
	f, err := LoadFixture(path)
	if err != nil {
		return nil, err
	}
	return New(f), nil
}

// FailNext queues errors to be returned by upcoming calls of the named
// method, in order, before the fixture answer. Call names match the
// platform.Client method names in snake case ("get_full_profile",
// "get_gift_ledger", "recent_dialogs", "participants", "get_entity",
// "get_common_chats").
func (c *Client) FailNext(call string, errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[call] = append(c.failures[call], errs...)
}

// CallCount reports how many times the named method was invoked, counting
// invocations that returned injected failures.
func (c *Client) CallCount(call string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[call]
}

// begin records the call and pops an injected failure, if any.
func (c *Client) begin(call string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[call]++
	if q := c.failures[call]; len(q) > 0 {
		err := q[0]
		c.failures[call] = q[1:]
		return err
	}
	return nil
}

// Connect implements platform.Client.
func (c *Client) Connect(_ context.Context, creds platform.Credentials) error {
	if err := c.begin("connect"); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	c.phone = creds.Phone
	c.authorized = c.authorizedByDefault || len(creds.Session) > 0
	return nil
}

// Connected implements platform.Client.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SendCode implements platform.Client.
func (c *Client) SendCode(_ context.Context) (bool, error) {
	if err := c.begin("send_code"); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return false, platform.ErrNotConnected
	}
	return !c.authorized, nil
}

// SignIn implements platform.Client.
func (c *Client) SignIn(_ context.Context, _, code, password string) error {
	if err := c.begin("sign_in"); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return platform.ErrNotConnected
	}
	if code == "" {
		return errors.New("empty login code")
	}
	if c.twoFactorPassword != "" {
		if password == "" {
			return platform.ErrTwoFactorRequired
		}
		if password != c.twoFactorPassword {
			return errors.New("invalid two-factor password")
		}
	}
	c.authorized = true
	return nil
}

// ExportSession implements platform.Client.
func (c *Client) ExportSession(_ context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || !c.authorized {
		return nil, platform.ErrNotConnected
	}
	return []byte("memory-session:" + c.phone), nil
}

// RecentDialogs implements platform.Client.
func (c *Client) RecentDialogs(_ context.Context, limit int) ([]platform.Dialog, error) {
	if err := c.begin("recent_dialogs"); err != nil {
		return nil, err
	}
	dialogs := make([]platform.Dialog, 0, len(c.dialogs))
	for _, id := range c.dialogs {
		if limit > 0 && len(dialogs) >= limit {
			break
		}
		ch, ok := c.chats[id]
		if !ok {
			continue
		}
		dialogs = append(dialogs, platform.Dialog{
			ID:     dialogID(ch),
			Name:   ch.Title,
			Entity: chatEntity(ch),
		})
	}
	return dialogs, nil
}

// GetEntity implements platform.Client.
func (c *Client) GetEntity(_ context.Context, peer platform.PeerRef) (*platform.Entity, error) {
	if err := c.begin("get_entity"); err != nil {
		return nil, err
	}
	switch peer.Kind() {
	case platform.PeerEntity:
		return peer.Entity(), nil
	case platform.PeerID:
		id := peer.ID()
		if u, ok := c.users[id]; ok {
			return userEntity(u), nil
		}
		abs := id
		if abs < 0 {
			abs = -abs
		}
		if ch, ok := c.chats[abs]; ok {
			return chatEntity(ch), nil
		}
		for _, ch := range c.chats {
			if dialogID(ch) == id {
				return chatEntity(ch), nil
			}
		}
		return nil, fmt.Errorf("id %d: %w", id, platform.ErrPeerNotFound)
	case platform.PeerUsername:
		name := strings.ToLower(peer.Username())
		if u, ok := c.byUsername[name]; ok {
			return userEntity(u), nil
		}
		for _, ch := range c.chats {
			if strings.EqualFold(ch.Username, name) {
				return chatEntity(ch), nil
			}
		}
		return nil, fmt.Errorf("username %q: %w", peer.Username(), platform.ErrPeerNotFound)
	default:
		return nil, platform.ErrPeerNotFound
	}
}

// Participants implements platform.Client.
func (c *Client) Participants(ctx context.Context, entity *platform.Entity, limit int, _ bool) iter.Seq2[platform.User, error] {
	return func(yield func(platform.User, error) bool) {
		if err := c.begin("participants"); err != nil {
			yield(platform.User{}, err)
			return
		}
		ch, ok := c.chats[entity.ID]
		if !ok {
			yield(platform.User{}, fmt.Errorf("chat %d: %w", entity.ID, platform.ErrPeerNotFound))
			return
		}
		count := 0
		for _, id := range ch.Members {
			if ctx.Err() != nil {
				return
			}
			if limit > 0 && count >= limit {
				return
			}
			u, ok := c.users[id]
			if !ok {
				continue
			}
			count++
			if !yield(fixtureToUser(u), nil) {
				return
			}
		}
	}
}

// GetFullProfile implements platform.Client.
func (c *Client) GetFullProfile(_ context.Context, peer platform.PeerRef) (*platform.FullProfile, error) {
	if err := c.begin("get_full_profile"); err != nil {
		return nil, err
	}
	u, err := c.lookupUser(peer)
	if err != nil {
		return nil, err
	}
	if u.Restricted {
		return nil, platform.ErrPrivacyRestricted
	}
	return &platform.FullProfile{
		User:              fixtureToUser(u),
		Bio:               u.Bio,
		PersonalChannelID: u.PersonalChannelID,
	}, nil
}

// GetGiftLedger implements platform.Client.
func (c *Client) GetGiftLedger(_ context.Context, peer platform.PeerRef, limit int) (*platform.GiftLedger, error) {
	if err := c.begin("get_gift_ledger"); err != nil {
		return nil, err
	}
	u, err := c.lookupUser(peer)
	if err != nil {
		return nil, err
	}
	ledger := &platform.GiftLedger{
		Users: make(map[int64]model.UserStub),
	}
	for _, g := range u.Gifts {
		if limit > 0 && len(ledger.Gifts) >= limit {
			break
		}
		ledger.Gifts = append(ledger.Gifts, model.Gift{
			ID:       g.ID,
			SenderID: g.SenderID,
			Date:     g.Date,
			Message:  g.Message,
			Stars:    g.Stars,
		})
		if sender, ok := c.users[g.SenderID]; ok {
			ledger.Users[sender.ID] = model.UserStub{
				Username:  sender.Username,
				FirstName: sender.FirstName,
			}
		}
	}
	return ledger, nil
}

// GetCommonChats implements platform.Client.
func (c *Client) GetCommonChats(_ context.Context, peer platform.PeerRef, limit int) ([]platform.Chat, error) {
	if err := c.begin("get_common_chats"); err != nil {
		return nil, err
	}
	u, err := c.lookupUser(peer)
	if err != nil {
		return nil, err
	}
	var chats []platform.Chat
	for _, id := range c.dialogs {
		if limit > 0 && len(chats) >= limit {
			break
		}
		ch, ok := c.chats[id]
		if !ok {
			continue
		}
		for _, member := range ch.Members {
			if member == u.ID {
				chats = append(chats, platform.Chat{
					ID:    ch.ID,
					Title: ch.Title,
					Kind:  chatKind(ch),
				})
				break
			}
		}
	}
	return chats, nil
}

// lookupUser resolves a peer reference to a fixture user.
func (c *Client) lookupUser(peer platform.PeerRef) (*FixtureUser, error) {
	switch peer.Kind() {
	case platform.PeerID, platform.PeerEntity:
		if u, ok := c.users[peer.ID()]; ok {
			return u, nil
		}
	case platform.PeerUsername:
		if u, ok := c.byUsername[strings.ToLower(peer.Username())]; ok {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", peer, platform.ErrPeerNotFound)
}

func fixtureToUser(u *FixtureUser) platform.User {
	return platform.User{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		Bot:       u.Bot,
		Deleted:   u.Deleted,
	}
}

func userEntity(u *FixtureUser) *platform.Entity {
	return &platform.Entity{ID: u.ID, Username: u.Username, Title: u.FirstName, Kind: platform.EntityUser}
}

func chatEntity(ch *FixtureChat) *platform.Entity {
	return &platform.Entity{ID: ch.ID, Username: ch.Username, Title: ch.Title, Kind: chatKind(ch)}
}

func chatKind(ch *FixtureChat) platform.EntityKind {
	switch ch.Kind {
	case "channel":
		return platform.EntityChannel
	case "megagroup":
		return platform.EntityMegagroup
	default:
		return platform.EntityGroup
	}
}

// dialogID returns the dialog-level id for a chat: the explicit fixture
// value when set, else the conventional negated entity id.
func dialogID(ch *FixtureChat) int64 {
	if ch.DialogID != 0 {
		return ch.DialogID
	}
	return -ch.ID
}
