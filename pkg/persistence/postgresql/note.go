package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/bloomcart/marketing-core/pkg/models"
)

// NoteRepository handles internal-note database operations. Notes are
// append-only; there is no update path.
type NoteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *NoteRepository) Append(ctx context.Context, note *models.Note) error {
	query := `
		INSERT INTO contact_notes (id, contact_id, execution_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		note.ID, note.ContactID, note.ExecutionID, note.Body, note.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append note: %w", err)
	}

	return nil
}

func (r *NoteRepository) ListByContact(ctx context.Context, contactID string) ([]*models.Note, error) {
	query := `
		SELECT id, contact_id, execution_id, body, created_at
		FROM contact_notes
		WHERE contact_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	notes := make([]*models.Note, 0)

	for rows.Next() {
		var note models.Note

		err := rows.Scan(&note.ID, &note.ContactID, &note.ExecutionID, &note.Body, &note.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}

		notes = append(notes, &note)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}

	return notes, nil
}
