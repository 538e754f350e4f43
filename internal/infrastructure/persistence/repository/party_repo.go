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

// PartyRepository implements port.PartyRepository
type PartyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPartyRepository creates a new party repository
func NewPartyRepository(db *sql.DB, logger *zap.Logger) port.PartyRepository {
	return &PartyRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a party with its customer tax rule
func (r *PartyRepository) GetByID(ctx context.Context, id int64) (*entity.Party, error) {
	exec := sqlite.Executor(ctx, r.db)

	var party entity.Party
	var langCode sql.NullString
	var ruleID sql.NullInt64

	err := exec.QueryRowContext(ctx,
		`SELECT id, name, lang_code, customer_tax_rule_id FROM parties WHERE id = ?`, id).Scan(
		&party.ID,
		&party.Name,
		&langCode,
		&ruleID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("party %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get party by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get party: %w", err)
	}

	if langCode.Valid {
		lang := langCode.String
		party.LangCode = &lang
	}

	if ruleID.Valid {
		rule, err := r.taxRule(ctx, exec, ruleID.Int64)
		if err != nil {
			r.logger.Error("Failed to get party tax rule",
				zap.Int64("party_id", id),
				zap.Int64("rule_id", ruleID.Int64),
				zap.Error(err))
			return nil, err
		}
		party.CustomerTaxRule = rule
	}

	return &party, nil
}

func (r *PartyRepository) taxRule(ctx context.Context, exec sqlite.Querier, id int64) (*entity.TaxRule, error) {
	rule := &entity.TaxRule{ID: id}
	err := exec.QueryRowContext(ctx, `SELECT name FROM tax_rules WHERE id = ?`, id).Scan(&rule.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tax rule %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tax rule: %w", err)
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT id, sequence, group_id, origin_tax_id, tax_id
		FROM tax_rule_lines
		WHERE rule_id = ?
		ORDER BY sequence, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tax rule lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line entity.TaxRuleLine
		var groupID, originTaxID, taxID sql.NullInt64
		if err := rows.Scan(&line.ID, &line.Sequence, &groupID, &originTaxID, &taxID); err != nil {
			return nil, fmt.Errorf("failed to scan tax rule line: %w", err)
		}
		line.GroupID = idPtr(groupID)
		line.OriginTaxID = idPtr(originTaxID)
		line.TaxID = idPtr(taxID)
		rule.Lines = append(rule.Lines, line)
	}

	return rule, rows.Err()
}

// Verify interface compliance
var _ port.PartyRepository = (*PartyRepository)(nil)
