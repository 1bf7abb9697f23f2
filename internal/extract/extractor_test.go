package extract

import (
	"slices"
	"testing"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "no identifiers",
			text: "just a normal bio without anything useful",
			want: nil,
		},
		{
			name: "handle and blacklisted domain",
			text: "check out @validuser123 and nohello.org",
			want: []string{"validuser123"},
		},
		{
			name: "handle below minimum length",
			text: "ping @abcd for details",
			want: nil,
		},
		{
			name: "handle at minimum length",
			text: "ping @abcde for details",
			want: []string{"abcde"},
		},
		{
			name: "handle must start with a letter",
			text: "ping @1abcde",
			want: nil,
		},
		{
			name: "tme path",
			text: "join https://t.me/mychannel now",
			want: []string{"mychannel", "t.me"},
		},
		{
			name: "tme invite link keeps plus",
			text: "invite: t.me/+AbCd_123",
			want: []string{"+AbCd_123", "t.me"},
		},
		{
			name: "allowed domain",
			text: "see mysite.dev for more",
			want: []string{"mysite.dev"},
		},
		{
			name: "disallowed tld",
			text: "see mysite.biz for more",
			want: nil,
		},
		{
			name: "blacklist is case-insensitive",
			text: "say Hello to @TestUser99",
			want: []string{"TestUser99"},
		},
		{
			name: "deduplicates case-insensitively",
			text: "@SameUser and @sameuser and @SAMEUSER",
			want: []string{"SameUser"},
		},
		{
			name: "mixed sources",
			text: "bio: @handle_one https://t.me/chan_two backup example.com",
			want: []string{"handle_one", "chan_two", "t.me", "example.com"},
		},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := e.Extract(tt.text)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Extract(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
