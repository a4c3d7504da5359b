package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/shared"
)

// DefaultActivityLimit caps [ActivityRepository.List] when no limit is given.
const DefaultActivityLimit = 50

// ActivityRepository implements models.Repository[*models.Activity] for the mutation journal.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new ActivityRepository with the given database connection
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create inserts a journal entry with generated ID and sequence
func (r *ActivityRepository) Create(activity *models.Activity) error {
	if err := activity.Validate(); err != nil {
		return fmt.Errorf("%w: validation failed: %w", shared.ErrInvalidInput, err)
	}

	sequence, err := NextSequence(r.db, "activity")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO activity (id, sequence, kind, playlist_id, requested, completed, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		string(activity.Kind()),
		nullString(activity.PlaylistID()),
		activity.Requested(),
		activity.Completed(),
		nullString(activity.ErrorMessage()),
		activity.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	activity.SetID(id)
	activity.SetSequence(sequence)
	return nil
}

// Get retrieves a journal entry by ID
func (r *ActivityRepository) Get(id string) (*models.Activity, error) {
	query := `
		SELECT id, sequence, kind, playlist_id, requested, completed, error_message, created_at
		FROM activity
		WHERE id = ?
	`

	activity, err := scanActivity(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: activity %s", shared.ErrNotFound, id)
	}
	return activity, err
}

// Delete removes a journal entry by ID
func (r *ActivityRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM activity WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: activity %s", shared.ErrNotFound, id)
	}

	return nil
}

// List retrieves journal entries newest first.
//
// Supported criteria: "kind" (models.ActivityKind or string), "playlist_id" (string),
// "since" (time.Time) and "limit" (int, default [DefaultActivityLimit]).
func (r *ActivityRepository) List(criteria map[string]any) ([]*models.Activity, error) {
	query := `
		SELECT id, sequence, kind, playlist_id, requested, completed, error_message, created_at
		FROM activity
		WHERE 1 = 1
	`

	args := []any{}

	switch kind := criteria["kind"].(type) {
	case models.ActivityKind:
		query += " AND kind = ?"
		args = append(args, string(kind))
	case string:
		if kind != "" {
			query += " AND kind = ?"
			args = append(args, kind)
		}
	}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	if since, ok := criteria["since"].(time.Time); ok && !since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, since.UTC())
	}

	limit := DefaultActivityLimit
	if n, ok := criteria["limit"].(int); ok && n > 0 {
		limit = n
	}
	query += " ORDER BY sequence DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var entries []*models.Activity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanActivity scans a row from either [sql.Row] or [sql.Rows] into a [models.Activity]
func scanActivity(row scanner) (*models.Activity, error) {
	var (
		id         string
		sequence   int
		kind       string
		playlistID sql.NullString
		requested  int
		completed  int
		errMessage sql.NullString
		createdAt  time.Time
	)

	err := row.Scan(&id, &sequence, &kind, &playlistID, &requested, &completed, &errMessage, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan activity: %w", err)
	}

	activity := models.NewActivity(models.ActivityKind(kind), playlistID.String, requested, completed)
	activity.SetID(id)
	activity.SetSequence(sequence)
	activity.SetCreatedAt(createdAt)
	activity.SetErrorMessage(errMessage.String)

	return activity, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
