package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/repositories"
	"go.uber.org/zap"
)

// ContractRepository implements the repositories.ContractRepository interface
type ContractRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *DB, logger *zap.Logger) repositories.ContractRepository {
	return &ContractRepository{
		db:     db,
		logger: logger,
	}
}

const contractColumns = `
	c.id, c.reg_num, c.subject, c.signed_on, c.valid_from, c.value, c.term,
	c.guarantee, c.ways_of_collection, c.information_list,
	c.responsible_id, c.controlled_by_id, c.owner_id, c.status,
	c.created_at, c.updated_at, r.name, cb.name`

const contractFrom = `
	FROM contracts c
	LEFT JOIN departments r ON r.id = c.responsible_id
	LEFT JOIN departments cb ON cb.id = c.controlled_by_id`

// Create inserts a new contract
func (r *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	query := `
		INSERT INTO contracts (
			id, reg_num, subject, signed_on, valid_from, value, term, guarantee,
			ways_of_collection, information_list, responsible_id, controlled_by_id,
			owner_id, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		contract.ID,
		contract.RegNum,
		contract.Subject,
		contract.SignedOn,
		contract.ValidFrom,
		contract.Value,
		contract.Term,
		contract.Guarantee,
		contract.WaysOfCollection,
		contract.InformationList,
		contract.ResponsibleID,
		contract.ControlledByID,
		contract.OwnerID,
		contract.Status,
		contract.CreatedAt,
		contract.UpdatedAt,
	)
	if err != nil {
		return translateError("failed to create contract", err)
	}

	r.logger.Debug("contract created", zap.String("id", contract.ID.String()))
	return nil
}

// GetByID retrieves a contract with its departments
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	query := `SELECT` + contractColumns + contractFrom + ` WHERE c.id = $1`

	executor := GetExecutor(ctx, r.db)
	contract, err := scanContract(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError("failed to get contract", err)
	}
	return contract, nil
}

// List returns contracts matching the filter
func (r *ContractRepository) List(ctx context.Context, filter models.ContractFilter) ([]*models.Contract, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if s := strings.TrimSpace(filter.Subject); s != "" {
		conds = append(conds, `c.subject ILIKE `+arg("%"+escapeLike(s)+"%"))
	}
	if filter.Responsible != "" {
		conds = append(conds, `r.name = `+arg(filter.Responsible))
	}
	if filter.OwnerID != "" {
		conds = append(conds, `c.owner_id = `+arg(filter.OwnerID))
	}
	if filter.Status != "" {
		conds = append(conds, `c.status = `+arg(string(filter.Status)))
	}
	if scope := filter.Scope; scope != nil {
		var alts []string
		if len(scope.AnyOwner) > 0 {
			alts = append(alts, `c.status = ANY(`+arg(statusArray(scope.AnyOwner))+`)`)
		}
		if len(scope.OwnOnly) > 0 {
			alts = append(alts, `(c.owner_id = `+arg(scope.ViewerID)+` AND c.status = ANY(`+arg(statusArray(scope.OwnOnly))+`))`)
		}
		if len(alts) == 0 {
			alts = append(alts, `FALSE`)
		}
		conds = append(conds, `(`+strings.Join(alts, ` OR `)+`)`)
	}

	query := `SELECT` + contractColumns + contractFrom
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY c.signed_on DESC, c.created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg(filter.Offset)
	}

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	contracts := []*models.Contract{}
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, contract)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contract rows: %w", err)
	}

	return contracts, nil
}

// Update writes the editable fields of a contract
func (r *ContractRepository) Update(ctx context.Context, contract *models.Contract) error {
	query := `
		UPDATE contracts
		SET reg_num = $2, subject = $3, signed_on = $4, valid_from = $5, value = $6,
		    term = $7, guarantee = $8, ways_of_collection = $9, information_list = $10,
		    responsible_id = $11, controlled_by_id = $12, updated_at = $13
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	res, err := executor.ExecContext(ctx, query,
		contract.ID,
		contract.RegNum,
		contract.Subject,
		contract.SignedOn,
		contract.ValidFrom,
		contract.Value,
		contract.Term,
		contract.Guarantee,
		contract.WaysOfCollection,
		contract.InformationList,
		contract.ResponsibleID,
		contract.ControlledByID,
		contract.UpdatedAt,
	)
	if err != nil {
		return translateError("failed to update contract", err)
	}
	return expectAffected("failed to update contract", res)
}

// UpdateStatus changes only the status of a contract
func (r *ContractRepository) UpdateStatus(ctx context.Context, contract *models.Contract) error {
	query := `UPDATE contracts SET status = $2, updated_at = $3 WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	res, err := executor.ExecContext(ctx, query, contract.ID, contract.Status, contract.UpdatedAt)
	if err != nil {
		return translateError("failed to update contract status", err)
	}
	return expectAffected("failed to update contract status", res)
}

// Delete deletes a contract
func (r *ContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	res, err := executor.ExecContext(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return translateError("failed to delete contract", err)
	}
	if err := expectAffected("failed to delete contract", res); err != nil {
		return err
	}

	r.logger.Debug("contract deleted", zap.String("id", id.String()))
	return nil
}

// ResponsibleDepartments returns the distinct responsible department names in use
func (r *ContractRepository) ResponsibleDepartments(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT d.name
		FROM contracts c
		JOIN departments d ON d.id = c.responsible_id
		ORDER BY d.name
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list responsible departments: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan department name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating department rows: %w", err)
	}
	return names, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContract(row rowScanner) (*models.Contract, error) {
	var (
		c                         models.Contract
		responsible, controlledBy sql.NullString
	)
	err := row.Scan(
		&c.ID,
		&c.RegNum,
		&c.Subject,
		&c.SignedOn,
		&c.ValidFrom,
		&c.Value,
		&c.Term,
		&c.Guarantee,
		&c.WaysOfCollection,
		&c.InformationList,
		&c.ResponsibleID,
		&c.ControlledByID,
		&c.OwnerID,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
		&responsible,
		&controlledBy,
	)
	if err != nil {
		return nil, err
	}

	if c.ResponsibleID != nil && responsible.Valid {
		c.Responsible = &models.Department{ID: *c.ResponsibleID, Name: responsible.String}
	}
	if c.ControlledByID != nil && controlledBy.Valid {
		c.ControlledBy = &models.Department{ID: *c.ControlledByID, Name: controlledBy.String}
	}
	return &c, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func statusArray(statuses []policy.Status) interface{} {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return pq.Array(out)
}
