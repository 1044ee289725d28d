package address

import (
	"context"
	"database/sql"
	"errors"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/database"
	"github.com/01moynul/homewareontap-golang/internal/models"
)

const addressColumns = `id, user_id, first_name, last_name, phone, street, city,
	province, postal_code, country, type, is_default, created_at, updated_at`

// MySQLStore is the Store backed by the 'addresses' table.
type MySQLStore struct {
	DB *sql.DB
}

// NewMySQLStore returns a MySQLStore over db.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{DB: db}
}

func scanAddress(row interface{ Scan(...any) error }) (*models.Address, error) {
	var a models.Address
	err := row.Scan(
		&a.ID, &a.UserID, &a.FirstName, &a.LastName, &a.Phone, &a.Street, &a.City,
		&a.Province, &a.PostalCode, &a.Country, &a.Type, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns all of the user's addresses. The ordering is relied on by the
// address book page.
func (s *MySQLStore) List(ctx context.Context, userID int64) ([]models.Address, error) {
	query := `
		SELECT ` + addressColumns + `
		FROM addresses
		WHERE user_id = ?
		ORDER BY type, is_default DESC, created_at DESC`

	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperr.Storage("address.list", err)
	}
	defer rows.Close()

	addresses := []models.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, apperr.Storage("address.list.scan", err)
		}
		addresses = append(addresses, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("address.list.rows", err)
	}
	return addresses, nil
}

// Get returns the address if it belongs to userID.
func (s *MySQLStore) Get(ctx context.Context, id, userID int64) (*models.Address, error) {
	return getAddress(ctx, s.DB, id, userID, false)
}

// WithTx runs fn in a transaction.
func (s *MySQLStore) WithTx(ctx context.Context, fn func(tx TxStore) error) error {
	return database.WithTx(ctx, s.DB, nil, func(tx *sql.Tx) error {
		return fn(mysqlTx{q: tx})
	})
}

func getAddress(ctx context.Context, q database.Querier, id, userID int64, lock bool) (*models.Address, error) {
	query := `
		SELECT ` + addressColumns + `
		FROM addresses
		WHERE id = ? AND user_id = ?`
	if lock {
		query += " FOR UPDATE"
	}

	a, err := scanAddress(q.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperr.Storage("address.get", err)
	}
	return a, nil
}

type mysqlTx struct {
	q database.Querier
}

func (t mysqlTx) GetForUpdate(ctx context.Context, id, userID int64) (*models.Address, error) {
	return getAddress(ctx, t.q, id, userID, true)
}

func (t mysqlTx) Insert(ctx context.Context, a *models.Address) (int64, error) {
	query := `
		INSERT INTO addresses
		(user_id, first_name, last_name, phone, street, city, province, postal_code,
		 country, type, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`

	// is_default is set afterwards through SetGroupDefault.
	res, err := t.q.ExecContext(ctx, query,
		a.UserID, a.FirstName, a.LastName, a.Phone, a.Street, a.City, a.Province, a.PostalCode,
		a.Country, a.Type, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return 0, apperr.Storage("address.insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Storage("address.insert.id", err)
	}
	return id, nil
}

func (t mysqlTx) Update(ctx context.Context, a *models.Address) error {
	query := `
		UPDATE addresses
		SET first_name = ?, last_name = ?, phone = ?, street = ?, city = ?, province = ?,
			postal_code = ?, country = ?, type = ?, is_default = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`

	// Ownership was checked by GetForUpdate.
	_, err := t.q.ExecContext(ctx, query,
		a.FirstName, a.LastName, a.Phone, a.Street, a.City, a.Province,
		a.PostalCode, a.Country, a.Type, a.IsDefault, a.UpdatedAt,
		a.ID, a.UserID,
	)
	if err != nil {
		return apperr.Storage("address.update", err)
	}
	return nil
}

func (t mysqlTx) SetGroupDefault(ctx context.Context, userID int64, addrType string, id int64) error {
	query := `
		UPDATE addresses
		SET is_default = (id = ?)
		WHERE user_id = ? AND type = ?`

	if _, err := t.q.ExecContext(ctx, query, id, userID, addrType); err != nil {
		return apperr.Storage("address.set_default", err)
	}
	return nil
}

func (t mysqlTx) Delete(ctx context.Context, id, userID int64) error {
	res, err := t.q.ExecContext(ctx, "DELETE FROM addresses WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return apperr.Storage("address.delete", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage("address.delete.rows", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
