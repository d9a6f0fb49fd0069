package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"knit-tracker-backend/internal/apperr"
	"knit-tracker-backend/internal/models"
)

// Postgres stores users, patterns and projects. Trackers and images are
// JSONB columns on their owning row.
type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

func OpenPostgres(connectionString string) (*Postgres, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgres(db), nil
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

func (r *Postgres) DB() *sql.DB {
	return r.db
}

func (r *Postgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Postgres) Close() error {
	return r.db.Close()
}

const projectColumns = `id, user_id, pattern_id, name, notes, tags, images, row_trackers,
		started_at, finished_at, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var (
		p          models.Project
		patternID  uuid.NullUUID
		finishedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.UserID, &patternID, &p.Name, &p.Notes, pq.Array(&p.Tags), &p.Images, &p.RowTrackers,
		&p.StartedAt, &finishedAt, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if patternID.Valid {
		id := patternID.UUID
		p.PatternID = &id
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		p.FinishedAt = &t
	}
	return &p, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// tagsArg keeps text[] columns non-NULL.
func tagsArg(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r *Postgres) CreateProject(ctx context.Context, p *models.Project) error {
	now := r.now().UTC()
	p.CreatedAt, p.UpdatedAt, p.Version = now, now, 1

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, p.ID, p.UserID, nullUUID(p.PatternID), p.Name, p.Notes, pq.Array(tagsArg(p.Tags)), p.Images, p.RowTrackers,
		p.StartedAt, nullTime(p.FinishedAt), p.Version, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *Postgres) GetProject(ctx context.Context, userID, projectID uuid.UUID) (*models.Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE id = $1 AND user_id = $2
	`, projectID, userID)

	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", projectID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

func (r *Postgres) ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE user_id = $1
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

// UpdateProject writes the whole document. With expectedVersion > 0 the write
// only applies if the stored version still matches; otherwise it is
// last-write-wins.
func (r *Postgres) UpdateProject(ctx context.Context, p *models.Project, expectedVersion int) error {
	now := r.now().UTC()

	var version int
	err := r.db.QueryRowContext(ctx, `
		UPDATE projects
		SET pattern_id = $3, name = $4, notes = $5, tags = $6, images = $7, row_trackers = $8,
			started_at = $9, finished_at = $10, version = version + 1, updated_at = $11
		WHERE id = $1 AND user_id = $2 AND ($12 = 0 OR version = $12)
		RETURNING version
	`, p.ID, p.UserID, nullUUID(p.PatternID), p.Name, p.Notes, pq.Array(tagsArg(p.Tags)), p.Images, p.RowTrackers,
		p.StartedAt, nullTime(p.FinishedAt), now, expectedVersion).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return r.missingOrStale(ctx, p.UserID, p.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	p.Version, p.UpdatedAt = version, now
	return nil
}

func (r *Postgres) missingOrStale(ctx context.Context, userID, projectID uuid.UUID) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1 AND user_id = $2)
	`, projectID, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if !exists {
		return fmt.Errorf("project %s: %w", projectID, apperr.ErrNotFound)
	}
	return fmt.Errorf("project %s: %w", projectID, apperr.ErrConflict)
}

func (r *Postgres) DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM projects
		WHERE id = $1 AND user_id = $2
	`, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return requireAffected(res, "project", projectID)
}

func requireAffected(res sql.Result, kind string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, apperr.ErrNotFound)
	}
	return nil
}
