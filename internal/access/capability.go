package access

import "github.com/parley-forum/parley/internal/identity"

// LevelOf returns the caller's effective level for a category given
// the stored grant (LevelNone when no grant row exists). Admin role
// collapses to write regardless of grants; public categories default
// read open for everyone; write is never defaulted open.
func LevelOf(caller identity.Caller, category Category, grant Level) Level {
	switch c := caller.(type) {
	case identity.User:
		if c.IsAdmin {
			return LevelWrite
		}
		if !category.IsPrivate && grant < LevelRead {
			return LevelRead
		}
		return grant
	default:
		if category.IsPrivate {
			return LevelNone
		}
		return LevelRead
	}
}

// CanRead reports whether the caller may read the category.
func CanRead(caller identity.Caller, category Category, grant Level) bool {
	return LevelOf(caller, category, grant).AtLeast(LevelRead)
}

// CanWrite reports whether the caller may post into the category.
// Privacy does not enter into it: write always requires an explicit
// write grant or admin role.
func CanWrite(caller identity.Caller, category Category, grant Level) bool {
	return LevelOf(caller, category, grant).AtLeast(LevelWrite)
}

// CanModifyTopicLock reports whether the caller may lock or unlock
// topics. Admin only.
func CanModifyTopicLock(caller identity.Caller) bool {
	user, ok := caller.(identity.User)
	return ok && user.IsAdmin
}
