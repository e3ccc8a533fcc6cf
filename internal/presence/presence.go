// Package presence decides freshness of last-seen and typing timestamps and
// hosts the typing backends beyond the SQLite table.
package presence

import "time"

const (
	// OnlineWindow is how long after its last heartbeat a user counts as online.
	OnlineWindow = 30 * time.Second
	// TypingWindow is how long a typing record stays meaningful.
	TypingWindow = 3 * time.Second
	// HeartbeatInterval is how often clients refresh their last-seen time.
	HeartbeatInterval = 30 * time.Second
)

// IsOnline reports whether a user last seen at lastSeenAt (unix ms) is online at now.
func IsOnline(lastSeenAt int64, now time.Time) bool {
	return fresh(lastSeenAt, now, OnlineWindow)
}

// IsTyping reports whether a typing record updated at updatedAt (unix ms) is
// still current at now.
func IsTyping(updatedAt int64, now time.Time) bool {
	return fresh(updatedAt, now, TypingWindow)
}

func fresh(at int64, now time.Time, window time.Duration) bool {
	if at <= 0 {
		return false
	}
	return now.UnixMilli()-at < window.Milliseconds()
}
