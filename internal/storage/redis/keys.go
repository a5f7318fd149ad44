package redis

import (
	"fmt"
	"time"
)

const (
	RateLimitWindowTTL = 1 * time.Minute
	ScanLockTTL        = 10 * time.Minute
)

const userChannelPrefix = "realtime:user:"

func RateLimitKey(userID string) string {
	return fmt.Sprintf("ratelimit:user:%s", userID)
}

func ScanLockKey() string {
	return "lock:deadline-scan"
}

// UserChannel is the pub/sub channel carrying realtime events for one user.
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

func UserChannelPattern() string {
	return userChannelPrefix + "*"
}

// UserFromChannel extracts the user id from a UserChannel name.
func UserFromChannel(channel string) (string, bool) {
	if len(channel) <= len(userChannelPrefix) || channel[:len(userChannelPrefix)] != userChannelPrefix {
		return "", false
	}
	return channel[len(userChannelPrefix):], true
}
