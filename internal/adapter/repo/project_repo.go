package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/infra"
	"github.com/kris790/Kaleidoscope/internal/sqlinline"
)

// ProjectRepositoryPG implements domain.ProjectRepository. The whole project
// is one JSONB document; id, account and status are columns for filtering.
type ProjectRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewProjectRepository(sql infra.SQLExecutor) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{sql: sql}
}

// Save inserts or replaces a project.
func (r *ProjectRepositoryPG) Save(ctx context.Context, p domain.Project) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode project %s: %w", p.ID, err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QUpsertProject, p.ID, p.AccountID, string(p.Status), payload, p.CreatedAt, p.UpdatedAt)
	return err
}

// ListByAccount returns an account's projects, newest first.
func (r *ProjectRepositoryPG) ListByAccount(ctx context.Context, accountID string) ([]domain.Project, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListProjectsByAccount, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Project
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var p domain.Project
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProjectRepositoryPG) Delete(ctx context.Context, projectID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteProject, projectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.ProjectRepository = (*ProjectRepositoryPG)(nil)
