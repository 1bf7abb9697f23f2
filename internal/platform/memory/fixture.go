package memory

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Fixture is the YAML-loadable description of the simulated platform state.
type Fixture struct {
	// Authorized marks the session as already signed in, skipping the
	// code/sign-in flow.
	Authorized bool `yaml:"authorized"`

	// TwoFactorPassword, when set, makes SignIn demand this password.
	TwoFactorPassword string `yaml:"two_factor_password"`

	// Users are the simulated accounts.
	Users []FixtureUser `yaml:"users"`

	// Chats are the simulated groups and channels.
	Chats []FixtureChat `yaml:"chats"`

	// Dialogs lists chat ids in recency order, most recent first.
	Dialogs []int64 `yaml:"dialogs"`
}

// FixtureUser is one simulated account.
type FixtureUser struct {
	ID                int64         `yaml:"id"`
	Username          string        `yaml:"username"`
	FirstName         string        `yaml:"first_name"`
	Bot               bool          `yaml:"bot"`
	Deleted           bool          `yaml:"deleted"`
	Restricted        bool          `yaml:"restricted"`
	Bio               string        `yaml:"bio"`
	PersonalChannelID int64         `yaml:"personal_channel_id"`
	Gifts             []FixtureGift `yaml:"gifts"`
}

// FixtureGift is one entry of a simulated gift ledger.
type FixtureGift struct {
	ID       int64     `yaml:"id"`
	SenderID int64     `yaml:"sender_id"`
	Date     time.Time `yaml:"date"`
	Message  string    `yaml:"message"`
	Stars    int       `yaml:"stars"`
}

// FixtureChat is one simulated group or channel.
type FixtureChat struct {
	ID       int64  `yaml:"id"`
	DialogID int64  `yaml:"dialog_id"`
	Username string `yaml:"username"`
	Title    string `yaml:"title"`
	Kind     string `yaml:"kind"`
	Members  []int64 `yaml:"members"`
}

// LoadFixture reads and parses a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided fixture path is intentional
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}
