package store

import (
	"testing"

	"github.com/fzheng/homepoints/internal/model"
	"github.com/shopspring/decimal"
)

func TestFamilyCreateIncludesCreator(t *testing.T) {
	ts := newTestDB(t)
	u, f := ts.seedFamily(t, "alice@example.com", "Alice")

	if len(f.InviteCode) != 8 {
		t.Errorf("invite code length = %d, want 8", len(f.InviteCode))
	}
	if !f.PointsValue.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("points value = %s, want 0.1", f.PointsValue)
	}

	m, err := ts.families.GetMember(f.ID, u.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if m == nil {
		t.Fatal("creator membership missing")
	}
	if m.Role != model.RoleCreator {
		t.Errorf("role = %q, want %q", m.Role, model.RoleCreator)
	}
}

func TestFamilyGetByInviteCode(t *testing.T) {
	ts := newTestDB(t)
	_, f := ts.seedFamily(t, "alice@example.com", "Alice")

	got, err := ts.families.GetByInviteCode(f.InviteCode)
	if err != nil {
		t.Fatalf("get by invite code: %v", err)
	}
	if got == nil || got.ID != f.ID {
		t.Fatalf("got %+v, want family %d", got, f.ID)
	}

	got, err = ts.families.GetByInviteCode("NOPENOPE")
	if err != nil {
		t.Fatalf("get by bad invite code: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown invite code")
	}
}

func TestFamilyUpdatePointsValue(t *testing.T) {
	ts := newTestDB(t)
	_, f := ts.seedFamily(t, "alice@example.com", "Alice")

	updated, err := ts.families.UpdatePointsValue(f.ID, decimal.RequireFromString("0.25"))
	if err != nil {
		t.Fatalf("update points value: %v", err)
	}
	if !updated.PointsValue.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("points value = %s, want 0.25", updated.PointsValue)
	}
}

func TestFamilyMemberRoles(t *testing.T) {
	ts := newTestDB(t)
	creator, f := ts.seedFamily(t, "alice@example.com", "Alice")
	kid := ts.seedMember(t, f.ID, "bob@example.com", model.RoleMember)

	// Promote the member to admin.
	m, err := ts.families.UpdateMemberRole(f.ID, kid.ID, model.RoleAdmin)
	if err != nil {
		t.Fatalf("promote member: %v", err)
	}
	if m.Role != model.RoleAdmin {
		t.Errorf("role = %q, want %q", m.Role, model.RoleAdmin)
	}

	// The creator's role row is immutable.
	if _, err := ts.families.UpdateMemberRole(f.ID, creator.ID, model.RoleMember); err != ErrConflict {
		t.Errorf("demote creator: err = %v, want ErrConflict", err)
	}

	// The creator cannot be removed either.
	if err := ts.families.RemoveMember(f.ID, creator.ID); err != ErrConflict {
		t.Errorf("remove creator: err = %v, want ErrConflict", err)
	}

	if err := ts.families.RemoveMember(f.ID, kid.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	m, err = ts.families.GetMember(f.ID, kid.ID)
	if err != nil {
		t.Fatalf("get removed member: %v", err)
	}
	if m != nil {
		t.Error("expected nil after removal")
	}
}

func TestFamilyListMembersOrder(t *testing.T) {
	ts := newTestDB(t)
	creator, f := ts.seedFamily(t, "alice@example.com", "Alice")
	ts.seedMember(t, f.ID, "bob@example.com", model.RoleMember)
	ts.seedMember(t, f.ID, "carol@example.com", model.RoleMember)

	members, err := ts.families.ListMembers(f.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("got %d members, want 3", len(members))
	}
	if members[0].UserID != creator.ID {
		t.Errorf("first member = %d, want creator %d", members[0].UserID, creator.ID)
	}
}

func TestListFamiliesForUser(t *testing.T) {
	ts := newTestDB(t)
	u, f1 := ts.seedFamily(t, "alice@example.com", "Alice")
	_, f2 := ts.seedFamily(t, "dave@example.com", "Dave")
	if _, err := ts.families.AddMember(f2.ID, u.ID, model.RoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}

	families, err := ts.families.ListFamiliesForUser(u.ID)
	if err != nil {
		t.Fatalf("list families: %v", err)
	}
	if len(families) != 2 {
		t.Fatalf("got %d families, want 2", len(families))
	}
	seen := map[int64]bool{families[0].ID: true, families[1].ID: true}
	if !seen[f1.ID] || !seen[f2.ID] {
		t.Errorf("families = %v, want %d and %d", seen, f1.ID, f2.ID)
	}
}

func TestChoreTypeActiveNameUnique(t *testing.T) {
	ts := newTestDB(t)
	_, f := ts.seedFamily(t, "alice@example.com", "Alice")

	ct, err := ts.choreTypes.Create(f.ID, "Dishes", 10)
	if err != nil {
		t.Fatalf("create chore type: %v", err)
	}

	exists, err := ts.choreTypes.ActiveNameExists(f.ID, "Dishes", 0)
	if err != nil {
		t.Fatalf("check name: %v", err)
	}
	if !exists {
		t.Error("expected name to exist")
	}

	// Excluding the owning id reports no conflict, so updates keep their own name.
	exists, err = ts.choreTypes.ActiveNameExists(f.ID, "Dishes", ct.ID)
	if err != nil {
		t.Fatalf("check name with exclude: %v", err)
	}
	if exists {
		t.Error("expected no conflict when excluding own id")
	}

	// Deactivating frees the name for reuse.
	if err := ts.choreTypes.Deactivate(ct.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	exists, err = ts.choreTypes.ActiveNameExists(f.ID, "Dishes", 0)
	if err != nil {
		t.Fatalf("check name after deactivate: %v", err)
	}
	if exists {
		t.Error("expected name to be free after deactivation")
	}
	if _, err := ts.choreTypes.Create(f.ID, "Dishes", 15); err != nil {
		t.Fatalf("recreate chore type: %v", err)
	}

	// The deactivated row still resolves for historical records.
	old, err := ts.choreTypes.GetByID(ct.ID)
	if err != nil {
		t.Fatalf("get deactivated type: %v", err)
	}
	if old == nil || old.Active {
		t.Errorf("deactivated type = %+v, want inactive row", old)
	}
}

func TestChoreTypeListActiveOnly(t *testing.T) {
	ts := newTestDB(t)
	_, f := ts.seedFamily(t, "alice@example.com", "Alice")

	ct1, _ := ts.choreTypes.Create(f.ID, "Dishes", 10)
	if _, err := ts.choreTypes.Create(f.ID, "Laundry", 20); err != nil {
		t.Fatalf("create chore type: %v", err)
	}
	if err := ts.choreTypes.Deactivate(ct1.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	active, err := ts.choreTypes.List(f.ID, true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Laundry" {
		t.Errorf("active = %+v, want only Laundry", active)
	}

	all, err := ts.choreTypes.List(f.ID, false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %d types, want 2", len(all))
	}
}
