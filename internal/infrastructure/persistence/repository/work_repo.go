package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/NaN-tic/trytond-project-expenses/internal/application/port"
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/entity"
	"github.com/NaN-tic/trytond-project-expenses/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const workColumns = `id, name, type, parent_id, sequence, company_id, party_id, created_at`

// WorkRepository implements port.WorkRepository
type WorkRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkRepository creates a new work repository
func NewWorkRepository(db *sql.DB, logger *zap.Logger) port.WorkRepository {
	return &WorkRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new work and sets its ID
func (r *WorkRepository) Create(ctx context.Context, work *entity.Work) error {
	query := `
		INSERT INTO works (name, type, parent_id, sequence, company_id, party_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		work.Name,
		work.Type,
		nullableID(work.ParentID),
		work.Sequence,
		work.CompanyID,
		nullableID(work.PartyID),
		work.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create work",
			zap.String("name", work.Name),
			zap.Error(err))
		return fmt.Errorf("failed to create work: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	work.ID = id
	return nil
}

// GetByID retrieves a work by its ID
func (r *WorkRepository) GetByID(ctx context.Context, id int64) (*entity.Work, error) {
	query := `SELECT ` + workColumns + ` FROM works WHERE id = ?`

	work, err := scanWork(sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("work %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get work by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get work: %w", err)
	}

	return work, nil
}

// GetChildren retrieves the direct children of a work
func (r *WorkRepository) GetChildren(ctx context.Context, parentID int64) ([]*entity.Work, error) {
	query := `SELECT ` + workColumns + ` FROM works WHERE parent_id = ? ORDER BY sequence, id`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, parentID)
	if err != nil {
		r.logger.Error("Failed to get work children",
			zap.Int64("parent_id", parentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get children: %w", err)
	}
	defer rows.Close()

	var works []*entity.Work
	for rows.Next() {
		work, err := scanWork(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work: %w", err)
		}
		works = append(works, work)
	}

	return works, rows.Err()
}

func scanWork(row rowScanner) (*entity.Work, error) {
	var work entity.Work
	var parentID, partyID sql.NullInt64

	err := row.Scan(
		&work.ID,
		&work.Name,
		&work.Type,
		&parentID,
		&work.Sequence,
		&work.CompanyID,
		&partyID,
		&work.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	work.ParentID = idPtr(parentID)
	work.PartyID = idPtr(partyID)
	return &work, nil
}

// Verify interface compliance
var _ port.WorkRepository = (*WorkRepository)(nil)
