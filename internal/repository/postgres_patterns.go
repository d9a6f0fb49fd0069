package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"knit-tracker-backend/internal/apperr"
	"knit-tracker-backend/internal/models"
)

const patternColumns = `id, user_id, name, body, link, tags, notes, images, created_at`

func scanPattern(row rowScanner) (*models.Pattern, error) {
	var p models.Pattern
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Text, &p.Link, pq.Array(&p.Tags), &p.Notes, &p.Images, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Postgres) CreatePattern(ctx context.Context, p *models.Pattern) error {
	p.CreatedAt = r.now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO patterns (`+patternColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.UserID, p.Name, p.Text, p.Link, pq.Array(tagsArg(p.Tags)), p.Notes, p.Images, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create pattern: %w", err)
	}
	return nil
}

func (r *Postgres) GetPattern(ctx context.Context, userID, patternID uuid.UUID) (*models.Pattern, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+patternColumns+`
		FROM patterns
		WHERE id = $1 AND user_id = $2
	`, patternID, userID)

	p, err := scanPattern(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pattern %s: %w", patternID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}
	return p, nil
}

func (r *Postgres) ListPatterns(ctx context.Context, userID uuid.UUID) ([]models.Pattern, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+patternColumns+`
		FROM patterns
		WHERE user_id = $1
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	patterns := []models.Pattern{}
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		patterns = append(patterns, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}

	return patterns, nil
}

// DeletePattern removes the pattern and clears it from every project of the
// same user in one transaction. It returns how many projects were detached.
func (r *Postgres) DeletePattern(ctx context.Context, userID, patternID uuid.UUID) (int, error) {
	var detached int64
	err := WithTx(ctx, r.db, nil, func(ctx context.Context, tx DBTX) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE projects
			SET pattern_id = NULL, version = version + 1, updated_at = $3
			WHERE user_id = $1 AND pattern_id = $2
		`, userID, patternID, r.now().UTC())
		if err != nil {
			return fmt.Errorf("failed to detach projects: %w", err)
		}
		if detached, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}

		res, err = tx.ExecContext(ctx, `
			DELETE FROM patterns
			WHERE id = $1 AND user_id = $2
		`, patternID, userID)
		if err != nil {
			return fmt.Errorf("failed to delete pattern: %w", err)
		}
		return requireAffected(res, "pattern", patternID)
	})
	if err != nil {
		return 0, err
	}
	return int(detached), nil
}

// User back-references. Users are provisioned by the auth service, so a
// missing user row is not an error here.

func (r *Postgres) AddProjectRef(ctx context.Context, userID, projectID uuid.UUID) error {
	return r.execUser(ctx, "add project ref",
		`UPDATE users SET project_ids = array_append(project_ids, $2) WHERE id = $1`, userID, projectID)
}

func (r *Postgres) RemoveProjectRef(ctx context.Context, userID, projectID uuid.UUID) error {
	return r.execUser(ctx, "remove project ref",
		`UPDATE users SET project_ids = array_remove(project_ids, $2) WHERE id = $1`, userID, projectID)
}

func (r *Postgres) AddPatternRef(ctx context.Context, userID, patternID uuid.UUID) error {
	return r.execUser(ctx, "add pattern ref",
		`UPDATE users SET pattern_ids = array_append(pattern_ids, $2) WHERE id = $1`, userID, patternID)
}

func (r *Postgres) RemovePatternRef(ctx context.Context, userID, patternID uuid.UUID) error {
	return r.execUser(ctx, "remove pattern ref",
		`UPDATE users SET pattern_ids = array_remove(pattern_ids, $2) WHERE id = $1`, userID, patternID)
}

func (r *Postgres) AddUploadBytes(ctx context.Context, userID uuid.UUID, n int64) error {
	return r.execUser(ctx, "add upload bytes",
		`UPDATE users SET upload_bytes = upload_bytes + $2 WHERE id = $1`, userID, n)
}

func (r *Postgres) execUser(ctx context.Context, op, query string, args ...any) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}

func (r *Postgres) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var (
		u          models.User
		patternIDs []string
		projectIDs []string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, upload_bytes, pattern_ids, project_ids
		FROM users
		WHERE id = $1
	`, userID).Scan(&u.ID, &u.Username, &u.UploadBytes, pq.Array(&patternIDs), pq.Array(&projectIDs))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if u.PatternIDs, err = parseUUIDs(patternIDs); err != nil {
		return nil, err
	}
	if u.ProjectIDs, err = parseUUIDs(projectIDs); err != nil {
		return nil, err
	}
	return &u, nil
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid %q in user refs: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
