package access

import (
	"testing"

	"github.com/parley-forum/parley/internal/identity"
)

var (
	admin     = identity.User{ID: 1, Username: "root", IsAdmin: true}
	alice     = identity.User{ID: 2, Username: "alice"}
	anonymous = identity.Anonymous{}

	publicCategory  = Category{ID: 1}
	privateCategory = Category{ID: 5, IsPrivate: true}
)

func TestWriteImpliesRead(t *testing.T) {
	callers := []identity.Caller{admin, alice, anonymous}
	categories := []Category{publicCategory, privateCategory}
	grants := []Level{LevelNone, LevelRead, LevelWrite}

	for _, caller := range callers {
		for _, category := range categories {
			for _, grant := range grants {
				if CanWrite(caller, category, grant) && !CanRead(caller, category, grant) {
					t.Fatalf("write without read: caller=%#v category=%#v grant=%v", caller, category, grant)
				}
			}
		}
	}
}

func TestPublicCategoryReadableByEveryone(t *testing.T) {
	for _, caller := range []identity.Caller{admin, alice, anonymous} {
		if !CanRead(caller, publicCategory, LevelNone) {
			t.Fatalf("expected %#v to read a public category", caller)
		}
	}
}

func TestAdminAlwaysWrites(t *testing.T) {
	for _, category := range []Category{publicCategory, privateCategory} {
		for _, grant := range []Level{LevelNone, LevelRead, LevelWrite} {
			if !CanWrite(admin, category, grant) {
				t.Fatalf("expected admin write on %#v with grant %v", category, grant)
			}
		}
	}
}

func TestPrivateCategoryGrantLifecycle(t *testing.T) {
	// No grant: unreadable.
	if CanRead(alice, privateCategory, LevelNone) {
		t.Fatal("expected private category unreadable without a grant")
	}

	// Read grant: readable, not writable.
	if !CanRead(alice, privateCategory, LevelRead) {
		t.Fatal("expected read grant to open reading")
	}
	if CanWrite(alice, privateCategory, LevelRead) {
		t.Fatal("read grant must not open writing")
	}

	// Write grant: both.
	if !CanRead(alice, privateCategory, LevelWrite) || !CanWrite(alice, privateCategory, LevelWrite) {
		t.Fatal("expected write grant to open both")
	}

	// Revoked (back to no row): closed again.
	if CanRead(alice, privateCategory, LevelNone) || CanWrite(alice, privateCategory, LevelNone) {
		t.Fatal("expected revocation to close access")
	}
}

func TestPrivacyFlipClosesUngrantedReaders(t *testing.T) {
	category := publicCategory
	if !CanRead(alice, category, LevelNone) {
		t.Fatal("expected public category readable")
	}
	category = TogglePrivacy(category)
	if CanRead(alice, category, LevelNone) {
		t.Fatal("expected flipped-private category unreadable for ungranted user")
	}
}

func TestWriteNeverDefaultsOpen(t *testing.T) {
	if CanWrite(alice, publicCategory, LevelNone) {
		t.Fatal("public category must not be writable without a grant")
	}
	if CanWrite(anonymous, publicCategory, LevelNone) {
		t.Fatal("anonymous caller must never write")
	}
}

func TestLevelOf(t *testing.T) {
	cases := []struct {
		name     string
		caller   identity.Caller
		category Category
		grant    Level
		want     Level
	}{
		{"admin collapses to write", admin, privateCategory, LevelNone, LevelWrite},
		{"public defaults read", alice, publicCategory, LevelNone, LevelRead},
		{"grant beats public default", alice, publicCategory, LevelWrite, LevelWrite},
		{"private without grant", alice, privateCategory, LevelNone, LevelNone},
		{"private with read grant", alice, privateCategory, LevelRead, LevelRead},
		{"anonymous public", anonymous, publicCategory, LevelNone, LevelRead},
		{"anonymous private", anonymous, privateCategory, LevelNone, LevelNone},
	}
	for _, tc := range cases {
		if got := LevelOf(tc.caller, tc.category, tc.grant); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCanModifyTopicLock(t *testing.T) {
	if !CanModifyTopicLock(admin) {
		t.Fatal("expected admin to modify topic locks")
	}
	if CanModifyTopicLock(alice) || CanModifyTopicLock(anonymous) {
		t.Fatal("only admins modify topic locks")
	}
}

func TestToggles(t *testing.T) {
	if ToggleLevel(LevelWrite) != LevelRead || ToggleLevel(LevelRead) != LevelWrite {
		t.Fatal("level toggle must flip write and read")
	}
	if ToggleLevel(LevelNone) != LevelWrite {
		t.Fatal("toggling an unset level grants write")
	}

	topic := Topic{ID: 9}
	if !ToggleTopicLock(topic).Locked {
		t.Fatal("expected open topic to lock")
	}
	if ToggleTopicLock(Topic{ID: 9, Locked: true}).Locked {
		t.Fatal("expected locked topic to open")
	}

	if !ToggleCategoryLock(publicCategory).IsLocked {
		t.Fatal("expected category lock toggle")
	}
	if !TogglePrivacy(publicCategory).IsPrivate || TogglePrivacy(privateCategory).IsPrivate {
		t.Fatal("expected privacy toggle to flip")
	}
}

func TestLevelOrdering(t *testing.T) {
	if !(LevelNone < LevelRead && LevelRead < LevelWrite) {
		t.Fatal("levels must be totally ordered none < read < write")
	}
	if LevelWrite.String() != "write" || LevelRead.String() != "read" || LevelNone.String() != "none" {
		t.Fatal("unexpected level names")
	}
}
