package redis

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/changefeed"
)

const (
	// KeyPrefixChanges is the prefix for change-feed channels
	KeyPrefixChanges = "shelf:changes:"
)

// ChannelKey returns the pub/sub channel for an owner's table
func ChannelKey(table changefeed.Table, userID string) string {
	return changefeed.Channel(table, userID)
}

// ParseChannelKey extracts the table and owner from a channel name
func ParseChannelKey(key string) (changefeed.Table, string, error) {
	if !strings.HasPrefix(key, KeyPrefixChanges) || len(key) <= len(KeyPrefixChanges) {
		return "", "", fmt.Errorf("invalid channel key: %s", key)
	}
	table, userID, ok := strings.Cut(key[len(KeyPrefixChanges):], ":")
	if !ok || userID == "" || !changefeed.Table(table).Valid() {
		return "", "", fmt.Errorf("invalid channel key: %s", key)
	}
	return changefeed.Table(table), userID, nil
}
