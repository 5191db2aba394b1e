package redis

import "fmt"

const (
	// KeyPrefixSession is the prefix for session keys
	KeyPrefixSession = "marks:session:"
	// KeyPrefixUserSessions is the prefix for the set of a user's session IDs
	KeyPrefixUserSessions = "marks:sessions:user:"
	// KeyAllSessions is the key for the set of all session IDs
	KeyAllSessions = "marks:sessions:all"
)

// SessionKey returns the Redis key for a session by ID
func SessionKey(id string) string {
	return KeyPrefixSession + id
}

// UserSessionsKey returns the key for the set of a user's session IDs
func UserSessionsKey(userID string) string {
	return KeyPrefixUserSessions + userID
}

// AllSessionsKey returns the key for the set of all session IDs
func AllSessionsKey() string {
	return KeyAllSessions
}

// ExtractSessionID extracts the session ID from a Redis key
func ExtractSessionID(key string) (string, error) {
	if len(key) <= len(KeyPrefixSession) || key[:len(KeyPrefixSession)] != KeyPrefixSession {
		return "", fmt.Errorf("invalid session key: %s", key)
	}
	return key[len(KeyPrefixSession):], nil
}
