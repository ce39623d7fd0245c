package cache

import (
	"fmt"
	"strings"
)

// KeySep separates the segments of a key.
const KeySep = ":"

// KeyFor builds a canonical key from an entity name and its parameters,
// e.g. KeyFor("posts", "user", 3) is "posts:user:3".
func KeyFor(entity string, parts ...any) string {
	if len(parts) == 0 {
		return entity
	}
	segs := make([]string, 0, len(parts)+1)
	segs = append(segs, entity)
	for _, p := range parts {
		segs = append(segs, fmt.Sprint(p))
	}
	return strings.Join(segs, KeySep)
}

// HasKeyPrefix reports whether key equals prefix or extends it by at least
// one whole segment. "posts:user" matches "posts:user:3" but not
// "posts:username".
func HasKeyPrefix(key, prefix string) bool {
	if key == prefix {
		return true
	}
	return strings.HasPrefix(key, prefix+KeySep)
}
