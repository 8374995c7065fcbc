package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/database"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// SupplierRepository handles supplier database operations.
type SupplierRepository struct {
	db database.PGXDB
}

// NewSupplierRepository creates a new SupplierRepository.
func NewSupplierRepository(db database.PGXDB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

const supplierColumns = `id, name, contact_name, email, phone, tax_id, bank_name, bank_branch,
	account_number, status, created_at, updated_at`

func scanSupplier(row pgx.Row) (*models.Supplier, error) {
	var s models.Supplier
	err := row.Scan(&s.ID, &s.Name, &s.ContactName, &s.Email, &s.Phone, &s.TaxID, &s.BankName,
		&s.BankBranch, &s.AccountNumber, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create adds a supplier.
func (r *SupplierRepository) Create(ctx context.Context, s *models.Supplier) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO suppliers (name, contact_name, email, phone, tax_id, bank_name, bank_branch, account_number, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, s.Name, s.ContactName, s.Email, s.Phone, s.TaxID, s.BankName, s.BankBranch, s.AccountNumber, s.Status,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return writeFailed(err, "create supplier")
	}
	return nil
}

// GetByID retrieves a supplier by ID.
func (r *SupplierRepository) GetByID(ctx context.Context, id int64) (*models.Supplier, error) {
	s, err := scanSupplier(r.db.QueryRow(ctx, `
		SELECT `+supplierColumns+` FROM suppliers WHERE id = $1
	`, id))
	if isNoRows(err) {
		return nil, apperr.NotFound("supplier %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	return s, nil
}

// GetAll retrieves suppliers, optionally only those with the given status.
func (r *SupplierRepository) GetAll(ctx context.Context, status string) ([]models.Supplier, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+supplierColumns+` FROM suppliers
		WHERE $1 = '' OR status = $1
		ORDER BY id
	`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []models.Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suppliers: %w", err)
	}
	return suppliers, nil
}

// Update replaces a supplier's fields.
func (r *SupplierRepository) Update(ctx context.Context, s *models.Supplier) error {
	updated, err := scanSupplier(r.db.QueryRow(ctx, `
		UPDATE suppliers SET name = $2, contact_name = $3, email = $4, phone = $5, tax_id = $6,
			bank_name = $7, bank_branch = $8, account_number = $9, status = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING `+supplierColumns,
		s.ID, s.Name, s.ContactName, s.Email, s.Phone, s.TaxID, s.BankName, s.BankBranch, s.AccountNumber, s.Status))
	if isNoRows(err) {
		return apperr.NotFound("supplier %d not found", s.ID)
	}
	if err != nil {
		return writeFailed(err, "update supplier")
	}
	*s = *updated
	return nil
}

// Delete removes an unreferenced supplier, or marks a referenced one
// inactive. It reports whether the supplier was deactivated.
func (r *SupplierRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE suppliers SET status = 'inactive', updated_at = NOW()
		WHERE id = $1 AND EXISTS (SELECT 1 FROM expenses WHERE supplier_id = $1)
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate supplier: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	tag, err = r.db.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return false, apperr.Conflict("supplier %d became referenced by an expense", id)
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete supplier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, apperr.NotFound("supplier %d not found", id)
	}
	return false, nil
}

// CreditCardRepository handles credit card database operations.
type CreditCardRepository struct {
	db database.PGXDB
}

// NewCreditCardRepository creates a new CreditCardRepository.
func NewCreditCardRepository(db database.PGXDB) *CreditCardRepository {
	return &CreditCardRepository{db: db}
}

func scanCreditCard(row pgx.Row) (*models.CreditCard, error) {
	var c models.CreditCard
	if err := row.Scan(&c.ID, &c.LastFour, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create adds a credit card.
func (r *CreditCardRepository) Create(ctx context.Context, c *models.CreditCard) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO credit_cards (last_four, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, c.LastFour, c.Description).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return writeFailed(err, "create credit card")
	}
	return nil
}

// GetByID retrieves a credit card by ID.
func (r *CreditCardRepository) GetByID(ctx context.Context, id int64) (*models.CreditCard, error) {
	c, err := scanCreditCard(r.db.QueryRow(ctx, `
		SELECT id, last_four, description, created_at, updated_at FROM credit_cards WHERE id = $1
	`, id))
	if isNoRows(err) {
		return nil, apperr.NotFound("credit card %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credit card: %w", err)
	}
	return c, nil
}

// GetAll retrieves all credit cards.
func (r *CreditCardRepository) GetAll(ctx context.Context) ([]models.CreditCard, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, last_four, description, created_at, updated_at FROM credit_cards ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit cards: %w", err)
	}
	defer rows.Close()

	var cards []models.CreditCard
	for rows.Next() {
		c, err := scanCreditCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit card: %w", err)
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credit cards: %w", err)
	}
	return cards, nil
}

// Update replaces a credit card's fields.
func (r *CreditCardRepository) Update(ctx context.Context, c *models.CreditCard) error {
	updated, err := scanCreditCard(r.db.QueryRow(ctx, `
		UPDATE credit_cards SET last_four = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING id, last_four, description, created_at, updated_at
	`, c.ID, c.LastFour, c.Description))
	if isNoRows(err) {
		return apperr.NotFound("credit card %d not found", c.ID)
	}
	if err != nil {
		return writeFailed(err, "update credit card")
	}
	*c = *updated
	return nil
}

// Delete removes a credit card no expense references.
func (r *CreditCardRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM credit_cards WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return apperr.Conflict("credit card %d is referenced by expenses", id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete credit card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("credit card %d not found", id)
	}
	return nil
}
