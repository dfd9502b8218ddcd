package store

import (
	"testing"
	"time"
)

func TestCreateAndGetUser(t *testing.T) {
	ts := newTestDB(t)

	u, err := ts.users.Create("frodo@shire.test", "Frodo", "hash123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero id")
	}
	if u.Email != "frodo@shire.test" {
		t.Errorf("email = %q, want frodo@shire.test", u.Email)
	}
	if u.PasswordHash != "hash123" {
		t.Errorf("password hash = %q, want hash123", u.PasswordHash)
	}

	got, err := ts.users.GetByID(u.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got == nil || got.Name != "Frodo" {
		t.Errorf("got %+v, want Frodo", got)
	}
}

func TestGetUserByEmail(t *testing.T) {
	ts := newTestDB(t)

	if _, err := ts.users.Create("sam@shire.test", "Sam", "h"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := ts.users.GetByEmail("sam@shire.test")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.Name != "Sam" {
		t.Errorf("got %+v, want Sam", got)
	}

	missing, err := ts.users.GetByEmail("nobody@shire.test")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown email, got %+v", missing)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	ts := newTestDB(t)

	if _, err := ts.users.Create("merry@shire.test", "Merry", "h"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := ts.users.Create("merry@shire.test", "Other", "h"); err == nil {
		t.Error("expected error for duplicate email")
	}
}

func TestUpdateUser(t *testing.T) {
	ts := newTestDB(t)

	u, err := ts.users.Create("pippin@shire.test", "Pippin", "h")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	updated, err := ts.users.Update(u.ID, "peregrin@shire.test", "Peregrin")
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.Email != "peregrin@shire.test" || updated.Name != "Peregrin" {
		t.Errorf("got %+v after update", updated)
	}
}

func TestUserNames(t *testing.T) {
	ts := newTestDB(t)

	a, _ := ts.users.Create("a@test", "Alice", "h")
	b, _ := ts.users.Create("b@test", "Bob", "h")

	names, err := ts.users.Names([]int64{a.ID, b.ID, 999})
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d", len(names))
	}
	if names[a.ID] != "Alice" || names[b.ID] != "Bob" {
		t.Errorf("names = %v", names)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestDB(t)
	u, _ := ts.seedFamily(t, "bilbo@shire.test", "Bilbo")

	sess, err := ts.sessions.Create(u.ID, 0, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(sess.Token))
	}

	got, err := ts.sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got == nil || got.UserID != u.ID {
		t.Fatalf("got %+v, want session for user %d", got, u.ID)
	}
	if got.FamilyID != 0 {
		t.Errorf("family id = %d, want 0 for fresh session", got.FamilyID)
	}

	if err := ts.sessions.Delete(sess.Token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	gone, err := ts.sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get deleted session: %v", err)
	}
	if gone != nil {
		t.Error("expected nil after delete")
	}
}

func TestExpiredSessionNotReturned(t *testing.T) {
	ts := newTestDB(t)
	u, _ := ts.seedFamily(t, "gandalf@test", "Gandalf")

	sess, err := ts.sessions.Create(u.ID, 0, -time.Minute)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := ts.sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got != nil {
		t.Error("expected nil for expired session")
	}

	n, err := ts.sessions.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d sessions, want 1", n)
	}
}

func TestSessionSetFamily(t *testing.T) {
	ts := newTestDB(t)
	u, f := ts.seedFamily(t, "aragorn@test", "Aragorn")

	sess, err := ts.sessions.Create(u.ID, 0, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := ts.sessions.SetFamily(sess.ID, f.ID); err != nil {
		t.Fatalf("set family: %v", err)
	}

	got, _ := ts.sessions.GetByToken(sess.Token)
	if got.FamilyID != f.ID {
		t.Errorf("family id = %d, want %d", got.FamilyID, f.ID)
	}
}
