package store

import "testing"

func TestCreateSubscription(t *testing.T) {
	ts := newTestDB(t)
	u, _ := ts.seedFamily(t, "frodo@test", "Frodo")

	sub, err := ts.push.CreateSubscription(u.ID, "https://push.example/ep1", "p256dh-key", "auth-key")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.ID == 0 {
		t.Error("expected non-zero id")
	}
	if sub.Endpoint != "https://push.example/ep1" {
		t.Errorf("endpoint = %q", sub.Endpoint)
	}
}

func TestSubscriptionUpsertByEndpoint(t *testing.T) {
	ts := newTestDB(t)
	u, f := ts.seedFamily(t, "sam@test", "Sam")
	other := ts.seedMember(t, f.ID, "rosie@test", "member")

	first, err := ts.push.CreateSubscription(u.ID, "https://push.example/shared", "k1", "a1")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	// Same endpoint re-registered by another user takes it over
	second, err := ts.push.CreateSubscription(other.ID, "https://push.example/shared", "k2", "a2")
	if err != nil {
		t.Fatalf("re-create subscription: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected same row, got ids %d and %d", first.ID, second.ID)
	}
	if second.UserID != other.ID {
		t.Errorf("user id = %d, want %d", second.UserID, other.ID)
	}
	if second.P256dhKey != "k2" {
		t.Errorf("p256dh = %q, want k2", second.P256dhKey)
	}
}

func TestListByUsers(t *testing.T) {
	ts := newTestDB(t)
	u, f := ts.seedFamily(t, "merry@test", "Merry")
	other := ts.seedMember(t, f.ID, "pippin@test", "member")
	third := ts.seedMember(t, f.ID, "fatty@test", "member")

	ts.push.CreateSubscription(u.ID, "https://push.example/a", "k", "a")
	ts.push.CreateSubscription(u.ID, "https://push.example/b", "k", "a")
	ts.push.CreateSubscription(other.ID, "https://push.example/c", "k", "a")
	ts.push.CreateSubscription(third.ID, "https://push.example/d", "k", "a")

	subs, err := ts.push.ListByUsers([]int64{u.ID, other.ID})
	if err != nil {
		t.Fatalf("list by users: %v", err)
	}
	if len(subs) != 3 {
		t.Errorf("expected 3 subscriptions, got %d", len(subs))
	}
}

func TestDeleteByEndpoint(t *testing.T) {
	ts := newTestDB(t)
	u, _ := ts.seedFamily(t, "bilbo@test", "Bilbo")

	ts.push.CreateSubscription(u.ID, "https://push.example/gone", "k", "a")
	if err := ts.push.DeleteByEndpoint("https://push.example/gone"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}

	subs, err := ts.push.ListByUser(u.ID)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("expected 0 subscriptions, got %d", len(subs))
	}

	// Deleting an unknown endpoint is a no-op
	if err := ts.push.DeleteByEndpoint("https://push.example/never"); err != nil {
		t.Fatalf("delete unknown endpoint: %v", err)
	}
}
