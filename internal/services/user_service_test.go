package services

import (
	"testing"

	"valore/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewUserService(db)

	t.Run("creates a user with hashed password", func(t *testing.T) {
		user, err := service.CreateUser("alice@example.com", "password123", "Alice")
		testutil.AssertNoError(t, err)
		if user.PasswordHash == "password123" {
			t.Error("password stored in plaintext")
		}
		if user.Email != "alice@example.com" {
			t.Errorf("unexpected email %q", user.Email)
		}
	})

	t.Run("normalizes email case", func(t *testing.T) {
		user, err := service.CreateUser("  Bob@Example.COM ", "password123", "Bob")
		testutil.AssertNoError(t, err)
		if user.Email != "bob@example.com" {
			t.Errorf("expected lowercased email, got %q", user.Email)
		}
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		_, err := service.CreateUser("alice@example.com", "password123", "Alice Again")
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("rejects short password", func(t *testing.T) {
		_, err := service.CreateUser("carol@example.com", "short", "Carol")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestAttemptLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewUserService(db)

	created, err := service.CreateUser("dave@example.com", "password123", "Dave")
	testutil.AssertNoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		user, err := service.AttemptLogin("dave@example.com", "password123")
		testutil.AssertNoError(t, err)
		if user.ID != created.ID {
			t.Error("returned the wrong user")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := service.AttemptLogin("dave@example.com", "wrong-password")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("unknown email gets the same error", func(t *testing.T) {
		_, err := service.AttemptLogin("nobody@example.com", "password123")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})
}

func TestRefreshTokenHash(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewUserService(db)

	user := testutil.CreateTestUser(t, db)

	testutil.AssertNoError(t, service.StoreRefreshTokenHash(user.ID, "hash-value"))

	hash, err := service.GetRefreshTokenHash(user.ID)
	testutil.AssertNoError(t, err)
	if hash != "hash-value" {
		t.Errorf("expected stored hash, got %q", hash)
	}

	t.Run("unknown user", func(t *testing.T) {
		err := service.StoreRefreshTokenHash("00000000-0000-7000-8000-000000000000", "x")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}
