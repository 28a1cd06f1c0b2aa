package privacy

import (
	"fmt"
	"strings"
)

// Level is the tri-state visibility policy attached to a user or to a single
// field/record. The zero value is not valid; use DefaultLevel.
type Level string

const (
	// LevelPublic content is visible to anyone, including anonymous viewers.
	LevelPublic Level = "public"
	// LevelFriendsOnly content is visible to the owner and accepted friends.
	LevelFriendsOnly Level = "friends_only"
	// LevelOnlyMe content is visible to the owner exclusively.
	LevelOnlyMe Level = "only_me"
)

// DefaultLevel applies when a user never configured a visibility policy.
const DefaultLevel = LevelPublic

// Viewer captures the relationship facts between the requesting user and the
// owner of the content being resolved. An anonymous viewer is the zero value.
type Viewer struct {
	IsSelf   bool
	IsFriend bool
}

// Anonymous is the viewer used for unauthenticated requests.
var Anonymous = Viewer{}

// ParseLevel normalises and validates a privacy level string.
func ParseLevel(value string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(value))) {
	case LevelPublic:
		return LevelPublic, nil
	case LevelFriendsOnly:
		return LevelFriendsOnly, nil
	case LevelOnlyMe:
		return LevelOnlyMe, nil
	}
	return "", fmt.Errorf("privacy: unknown level %q", value)
}

// Valid reports whether the level is one of the three known states.
func (l Level) Valid() bool {
	switch l {
	case LevelPublic, LevelFriendsOnly, LevelOnlyMe:
		return true
	}
	return false
}

// Visible resolves the visibility truth table. The owner always sees their own
// content regardless of level. Unknown levels deny for non-owners so that a
// corrupted row fails closed.
func Visible(level Level, viewer Viewer) bool {
	if viewer.IsSelf {
		return true
	}
	switch level {
	case LevelPublic:
		return true
	case LevelFriendsOnly:
		return viewer.IsFriend
	case LevelOnlyMe:
		return false
	default:
		return false
	}
}

// Effective picks the per-field override when present, else the user default.
// An invalid default also falls back to DefaultLevel so that a blank column
// behaves like a freshly registered account.
func Effective(override *Level, fallback Level) Level {
	if override != nil && override.Valid() {
		return *override
	}
	if fallback.Valid() {
		return fallback
	}
	return DefaultLevel
}
