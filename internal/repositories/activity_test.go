package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestActivityRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewActivityRepository(db)
		activity := models.NewActivity(models.ActivityAddToPlaylist, "p1", 250, 250)

		if err := repo.Create(activity); err != nil {
			t.Fatalf("failed to create activity: %v", err)
		}

		if activity.ID() == "" {
			t.Error("activity ID should be set after creation")
		}
		if activity.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", activity.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewActivityRepository(db)
		activity := models.NewActivity(models.ActivityRemoveFromLiked, "", 120, 50)
		activity.SetErrorMessage("rate limited")

		if err := repo.Create(activity); err != nil {
			t.Fatalf("failed to create activity: %v", err)
		}

		retrieved, err := repo.Get(activity.ID())
		if err != nil {
			t.Fatalf("failed to get activity: %v", err)
		}

		if retrieved.Kind() != models.ActivityRemoveFromLiked {
			t.Errorf("expected kind %s, got %s", models.ActivityRemoveFromLiked, retrieved.Kind())
		}
		if retrieved.PlaylistID() != "" {
			t.Errorf("expected no playlist id, got %q", retrieved.PlaylistID())
		}
		if retrieved.Requested() != 120 || retrieved.Completed() != 50 {
			t.Errorf("expected 50 of 120, got %d of %d", retrieved.Completed(), retrieved.Requested())
		}
		if retrieved.ErrorMessage() != "rate limited" {
			t.Errorf("expected error message to round-trip, got %q", retrieved.ErrorMessage())
		}
		if retrieved.Succeeded() {
			t.Error("partial activity should not report success")
		}
		if !retrieved.CreatedAt().Equal(activity.CreatedAt()) {
			t.Errorf("expected created_at %v, got %v", activity.CreatedAt(), retrieved.CreatedAt())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewActivityRepository(db)
		activity := models.NewActivity(models.ActivityAddToPlaylist, "p1", 1, 1)
		if err := repo.Create(activity); err != nil {
			t.Fatalf("failed to create activity: %v", err)
		}

		if err := repo.Delete(activity.ID()); err != nil {
			t.Fatalf("failed to delete activity: %v", err)
		}

		if _, err := repo.Get(activity.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewActivityRepository(db)
		entries := []*models.Activity{
			models.NewActivity(models.ActivityAddToPlaylist, "p1", 10, 10),
			models.NewActivity(models.ActivityRemoveFromLiked, "", 5, 5),
			models.NewActivity(models.ActivityAddToPlaylist, "p2", 3, 3),
			models.NewActivity(models.ActivityAddToPlaylist, "p1", 7, 7),
		}
		for _, a := range entries {
			if err := repo.Create(a); err != nil {
				t.Fatalf("failed to create activity: %v", err)
			}
		}

		tests := []struct {
			name     string
			criteria map[string]any
			want     []string
		}{
			{"all newest first", nil, []string{entries[3].ID(), entries[2].ID(), entries[1].ID(), entries[0].ID()}},
			{"by kind", map[string]any{"kind": models.ActivityRemoveFromLiked}, []string{entries[1].ID()}},
			{"by kind string", map[string]any{"kind": "add_to_playlist", "limit": 2}, []string{entries[3].ID(), entries[2].ID()}},
			{"by playlist", map[string]any{"playlist_id": "p1"}, []string{entries[3].ID(), entries[0].ID()}},
			{"since the future", map[string]any{"since": time.Now().Add(time.Hour)}, nil},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list activity: %v", err)
				}

				if len(got) != len(tt.want) {
					t.Fatalf("expected %d entries, got %d", len(tt.want), len(got))
				}
				for i, a := range got {
					if a.ID() != tt.want[i] {
						t.Errorf("entry %d: expected %s, got %s", i, tt.want[i], a.ID())
					}
				}
			})
		}
	})
}

func TestActivityRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewActivityRepository(db)
			activity := models.NewActivity(models.ActivityAddToPlaylist, "", 1, 1)

			if err := repo.Create(activity); !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput for missing playlist id, got %v", err)
			}
			if activity.ID() != "" {
				t.Error("ID should not be set when validation fails")
			}
		})

		t.Run("ClosedDatabase", func(t *testing.T) {
			db := setupTestDB(t)
			db.Close()

			repo := NewActivityRepository(db)
			if err := repo.Create(models.NewActivity(models.ActivityRemoveFromLiked, "", 1, 1)); err == nil {
				t.Fatal("expected error on closed database")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewActivityRepository(db)
			if _, err := repo.Get("nonexistent-id"); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewActivityRepository(db)
			if err := repo.Delete("nonexistent-id"); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("List", func(t *testing.T) {
		t.Run("ClosedDatabase", func(t *testing.T) {
			db := setupTestDB(t)
			db.Close()

			repo := NewActivityRepository(db)
			if _, err := repo.List(nil); err == nil {
				t.Fatal("expected error on closed database")
			}
		})
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "activity")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for a table without a sequence")
	}
}
