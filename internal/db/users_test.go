package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"seodesk/internal/models"
)

func TestUpsertUser_SignInTwice(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	first := &models.User{Sub: "oidc|42", Email: "ada@example.com", Name: "Ada"}
	if err := db.UpsertUser(ctx, first); err != nil {
		t.Fatalf("UpsertUser() first sign-in error = %v", err)
	}
	if first.ID == uuid.Nil {
		t.Fatal("UpsertUser() did not set ID")
	}

	// The provider reports new profile claims on the next sign-in.
	again := &models.User{Sub: "oidc|42", Email: "ada@work.example.com", Name: "Ada L.", Picture: "https://img.example.com/ada.png"}
	if err := db.UpsertUser(ctx, again); err != nil {
		t.Fatalf("UpsertUser() second sign-in error = %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("second sign-in ID = %v, want %v", again.ID, first.ID)
	}

	tests := []struct {
		name  string
		fetch func() (*models.User, error)
	}{
		{"by sub", func() (*models.User, error) { return db.GetUserBySub(ctx, "oidc|42") }},
		{"by id", func() (*models.User, error) { return db.GetUserByID(ctx, first.ID) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fetch()
			if err != nil {
				t.Fatalf("fetch error = %v", err)
			}
			if got.Email != again.Email || got.Name != again.Name || got.Picture != again.Picture {
				t.Errorf("user = %+v, want claims from the latest sign-in", got)
			}
			if got.DisplayName() != "Ada L." {
				t.Errorf("DisplayName() = %q, want %q", got.DisplayName(), "Ada L.")
			}
		})
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := db.GetUserBySub(ctx, "missing-sub"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUserBySub() error = %v, want ErrUserNotFound", err)
	}
	if _, err := db.GetUserByID(ctx, uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrUserNotFound", err)
	}
}

func TestDeleteUser_CascadesToProjects(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user, project := createTestProject(t, db, "leaving")

	kw := &models.Keyword{ProjectID: project.ID, Keyword: "seo audit"}
	if err := db.CreateKeyword(ctx, kw); err != nil {
		t.Fatalf("CreateKeyword() error = %v", err)
	}

	if _, err := db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID); err != nil {
		t.Fatalf("delete user error = %v", err)
	}

	if _, err := db.GetProjectByID(ctx, project.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("GetProjectByID() after user delete error = %v, want ErrProjectNotFound", err)
	}
	keywords, err := db.ListKeywords(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListKeywords() error = %v", err)
	}
	if len(keywords) != 0 {
		t.Errorf("ListKeywords() = %d rows, want 0 after cascade", len(keywords))
	}
}
