package redis

import "strings"

const (
	// DefaultKeyPrefix namespaces every key written by the updater
	DefaultKeyPrefix = "updater:"
	// segmentTransient is the prefix for expiring values (version cache, cycle state)
	segmentTransient = "transient:"
	// segmentOption is the prefix for persistent options (license key, status)
	segmentOption = "option:"
)

// TransientKey returns the Redis key for a transient
func (s *Store) TransientKey(name string) string {
	return s.prefix + segmentTransient + name
}

// OptionKey returns the Redis key for an option
func (s *Store) OptionKey(name string) string {
	return s.prefix + segmentOption + name
}

// ExtractTransientName extracts the transient name from a Redis key
func (s *Store) ExtractTransientName(key string) (string, bool) {
	p := s.prefix + segmentTransient
	if len(key) <= len(p) || !strings.HasPrefix(key, p) {
		return "", false
	}
	return key[len(p):], true
}
