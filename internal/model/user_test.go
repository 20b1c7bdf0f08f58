package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestPublic_ClearsPasswordHash(t *testing.T) {
	u := &User{
		ID:           "u1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$04$abcdefghijklmnopqrstuv",
		CreatedAt:    time.Now(),
	}

	pub := u.Public()

	if pub.PasswordHash != "" {
		t.Errorf("Public().PasswordHash = %q, want empty", pub.PasswordHash)
	}
	if pub.ID != u.ID || pub.Email != u.Email || pub.Username != u.Username {
		t.Errorf("Public() changed identity fields: %+v", pub)
	}
	// The original must be untouched: the store still needs the hash.
	if u.PasswordHash == "" {
		t.Error("Public() mutated the receiver")
	}
}

func TestPublic_Nil(t *testing.T) {
	var u *User
	if u.Public() != nil {
		t.Error("Public() on nil user should return nil")
	}
}

func TestUser_JSONNeverContainsHash(t *testing.T) {
	u := &User{ID: "u1", Email: "a@b.co", PasswordHash: "super-secret-hash"}

	b, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if strings.Contains(string(b), "super-secret-hash") {
		t.Errorf("serialized user leaks the hash: %s", b)
	}
}
