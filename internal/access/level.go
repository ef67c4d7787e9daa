// Package access answers capability questions for resolved callers and
// turns the answers into per-request allow/deny decisions. The
// capability functions are pure: they operate on snapshots supplied by
// the caller and perform no I/O.
package access

// Level is a caller's access tier for a category. Levels are totally
// ordered: None < Read < Write, and write access implies read access.
type Level int

const (
	LevelNone Level = iota
	LevelRead
	LevelWrite
)

func (l Level) String() string {
	switch l {
	case LevelRead:
		return "read"
	case LevelWrite:
		return "write"
	default:
		return "none"
	}
}

// AtLeast reports whether l grants everything other does.
func (l Level) AtLeast(other Level) bool {
	return l >= other
}

// ToggleLevel flips a granted level between read and write. It is a
// pure transition; the caller persists the returned level.
func ToggleLevel(l Level) Level {
	if l == LevelWrite {
		return LevelRead
	}
	return LevelWrite
}

// Category is the slice of category state relevant to authorization.
type Category struct {
	ID        int64
	IsPrivate bool
	IsLocked  bool
}

// Topic is the slice of topic state relevant to authorization.
type Topic struct {
	ID     int64
	Locked bool
}

// TogglePrivacy returns the category with its privacy flipped.
func TogglePrivacy(c Category) Category {
	c.IsPrivate = !c.IsPrivate
	return c
}

// ToggleCategoryLock returns the category with its lock flipped.
func ToggleCategoryLock(c Category) Category {
	c.IsLocked = !c.IsLocked
	return c
}

// ToggleTopicLock returns the topic with its lock flipped.
func ToggleTopicLock(t Topic) Topic {
	t.Locked = !t.Locked
	return t
}
