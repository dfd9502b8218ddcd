package store

import (
	"testing"

	"github.com/fzheng/homepoints/internal/database"
	"github.com/fzheng/homepoints/internal/model"
)

func newTestDB(t *testing.T) *testStores {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &testStores{
		users:        NewUserStore(db),
		families:     NewFamilyStore(db),
		sessions:     NewSessionStore(db),
		choreTypes:   NewChoreTypeStore(db),
		choreRecords: NewChoreRecordStore(db),
		points:       NewPointsStore(db),
		savings:      NewSavingsStore(db),
		push:         NewPushStore(db),
		settings:     NewSettingsStore(db),
		backups:      NewBackupStore(db),
	}
}

type testStores struct {
	users        *UserStore
	families     *FamilyStore
	sessions     *SessionStore
	choreTypes   *ChoreTypeStore
	choreRecords *ChoreRecordStore
	points       *PointsStore
	savings      *SavingsStore
	push         *PushStore
	settings     *SettingsStore
	backups      *BackupStore
}

// seedFamily creates a user and a family the user created, returning both.
func (ts *testStores) seedFamily(t *testing.T, email, name string) (*model.User, *model.Family) {
	t.Helper()
	u, err := ts.users.Create(email, name, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	f, err := ts.families.Create(name+"'s family", u.ID)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	return u, f
}

// seedMember creates a user and adds them to the family with the role.
func (ts *testStores) seedMember(t *testing.T, familyID int64, email string, role model.Role) *model.User {
	t.Helper()
	u, err := ts.users.Create(email, email, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := ts.families.AddMember(familyID, u.ID, role); err != nil {
		t.Fatalf("add member: %v", err)
	}
	return u
}
