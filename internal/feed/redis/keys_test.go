package redis

import (
	"testing"

	"github.com/MrSnakeDoc/shelf/internal/changefeed"
)

func TestChannelKeyRoundTrip(t *testing.T) {
	key := ChannelKey(changefeed.Bookmarks, "user-1")
	if key != "shelf:changes:bookmarks:user-1" {
		t.Fatalf("unexpected key %q", key)
	}

	table, user, err := ParseChannelKey(key)
	if err != nil {
		t.Fatalf("ParseChannelKey() error = %v", err)
	}
	if table != changefeed.Bookmarks || user != "user-1" {
		t.Errorf("got (%s, %s)", table, user)
	}
}

func TestParseChannelKeyRejects(t *testing.T) {
	tests := []string{
		"",
		"shelf:changes:",
		"jump:service:abc",
		"shelf:changes:tags:user-1",
		"shelf:changes:bookmarks",
		"shelf:changes:bookmarks:",
	}
	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			if _, _, err := ParseChannelKey(key); err == nil {
				t.Errorf("ParseChannelKey(%q) expected error", key)
			}
		})
	}
}
