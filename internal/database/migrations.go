package database

import (
	"context"
	"fmt"
)

// RunMigrations creates the database schema. Every statement is idempotent.
func RunMigrations(ctx context.Context, db PGXDB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS departments (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			budget DECIMAL(14, 2) NOT NULL DEFAULT 0 CHECK (budget >= 0),
			currency VARCHAR(3) NOT NULL DEFAULT 'ILS',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id BIGSERIAL PRIMARY KEY,
			department_id BIGINT NOT NULL REFERENCES departments(id) ON DELETE RESTRICT,
			name TEXT NOT NULL,
			budget DECIMAL(14, 2) NOT NULL DEFAULT 0 CHECK (budget >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_categories_department_id ON categories(department_id)`,

		`CREATE TABLE IF NOT EXISTS subcategories (
			id BIGSERIAL PRIMARY KEY,
			category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
			name TEXT NOT NULL,
			budget DECIMAL(14, 2) NOT NULL DEFAULT 0 CHECK (budget >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_subcategories_category_id ON subcategories(category_id)`,

		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			is_manager BOOLEAN NOT NULL DEFAULT FALSE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			is_accounting BOOLEAN NOT NULL DEFAULT FALSE,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			department_id BIGINT REFERENCES departments(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_lower ON users(LOWER(username))`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users(LOWER(email))`,

		`CREATE TABLE IF NOT EXISTS user_managed_departments (
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			department_id BIGINT NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, department_id)
		)`,

		`CREATE TABLE IF NOT EXISTS suppliers (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			contact_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			tax_id TEXT NOT NULL DEFAULT '',
			bank_name TEXT NOT NULL DEFAULT '',
			bank_branch TEXT NOT NULL DEFAULT '',
			account_number TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS credit_cards (
			id BIGSERIAL PRIMARY KEY,
			last_four VARCHAR(4) NOT NULL CHECK (last_four ~ '^[0-9]{4}$'),
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
			subcategory_id BIGINT NOT NULL REFERENCES subcategories(id) ON DELETE RESTRICT,
			category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
			department_id BIGINT NOT NULL REFERENCES departments(id) ON DELETE RESTRICT,
			amount DECIMAL(14, 2) NOT NULL CHECK (amount > 0),
			currency VARCHAR(3) NOT NULL DEFAULT 'ILS',
			description TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL CHECK (type IN ('auto_approved', 'needs_approval', 'pre_approved', 'future_approval')),
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
			payment_status TEXT NOT NULL DEFAULT 'pending_payment'
				CHECK (payment_status IN ('pending_payment', 'paid', 'pending_attention')),
			supplier_id BIGINT REFERENCES suppliers(id) ON DELETE RESTRICT,
			credit_card_id BIGINT REFERENCES credit_cards(id) ON DELETE RESTRICT,
			payment_method TEXT CHECK (payment_method IN ('credit_card', 'bank_transfer', 'cash', 'check')),
			invoice_date DATE,
			payment_due_date DATE,
			quote_file TEXT NOT NULL DEFAULT '',
			invoice_file TEXT NOT NULL DEFAULT '',
			receipt_file TEXT NOT NULL DEFAULT '',
			rejection_reason TEXT NOT NULL DEFAULT '',
			reviewed_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
			reviewed_at TIMESTAMPTZ,
			payment_updated_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
			payment_updated_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT expenses_rejection_reason CHECK ((status = 'rejected') = (rejection_reason <> ''))
		)`,

		`CREATE INDEX IF NOT EXISTS idx_expenses_user_id ON expenses(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_department_id ON expenses(department_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_subcategory_id ON expenses(subcategory_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_status ON expenses(status)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_supplier_id ON expenses(supplier_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
