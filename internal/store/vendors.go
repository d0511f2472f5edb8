package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"vendorbook-api/internal/models"
)

const vendorColumns = `id, name, contact_email, phone_number, address, date_created`

// Insert stores a new vendor and returns it with the assigned id and creation time.
func (s *VendorStore) Insert(ctx context.Context, in models.VendorInput) (models.Vendor, error) {
	v := in.ToVendor(0)
	var created time.Time
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO vendors (name, contact_email, phone_number, address)
		VALUES ($1, $2, $3, $4)
		RETURNING id, date_created`,
		in.Name, in.ContactEmail, in.PhoneNumber, in.Address).Scan(&v.ID, &created)
	if err != nil {
		return models.Vendor{}, errors.Wrap(err, "insert vendor")
	}
	v.DateCreated = &created
	return v, nil
}

// List returns every vendor, newest first. Rows created in the same instant
// are ordered by descending id.
func (s *VendorStore) List(ctx context.Context) ([]models.Vendor, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+vendorColumns+`
		FROM vendors
		ORDER BY date_created DESC, id DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "list vendors")
	}
	defer rows.Close()

	vendors := []models.Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan vendor")
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list vendors")
	}
	return vendors, nil
}

// Get looks a vendor up by primary key. It returns ErrNotFound when the id
// does not exist.
func (s *VendorStore) Get(ctx context.Context, id int64) (models.Vendor, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+vendorColumns+`
		FROM vendors WHERE id = $1`, id)
	v, err := scanVendor(row)
	if err == sql.ErrNoRows {
		return models.Vendor{}, ErrNotFound
	}
	if err != nil {
		return models.Vendor{}, errors.Wrapf(err, "get vendor %d", id)
	}
	return v, nil
}

// Update overwrites all editable fields of the vendor and reports how many
// rows changed. Zero means the id does not exist.
func (s *VendorStore) Update(ctx context.Context, id int64, in models.VendorInput) (int64, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE vendors
		SET name = $1, contact_email = $2, phone_number = $3, address = $4
		WHERE id = $5`,
		in.Name, in.ContactEmail, in.PhoneNumber, in.Address, id)
	if err != nil {
		return 0, errors.Wrapf(err, "update vendor %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}

// Delete removes the vendor and reports how many rows were deleted.
func (s *VendorStore) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM vendors WHERE id = $1`, id)
	if err != nil {
		return 0, errors.Wrapf(err, "delete vendor %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVendor(sc scanner) (models.Vendor, error) {
	var (
		v       models.Vendor
		email   sql.NullString
		phone   sql.NullString
		address sql.NullString
		created time.Time
	)
	if err := sc.Scan(&v.ID, &v.Name, &email, &phone, &address, &created); err != nil {
		return models.Vendor{}, err
	}
	v.ContactEmail = nullString(email)
	v.PhoneNumber = nullString(phone)
	v.Address = nullString(address)
	v.DateCreated = &created
	return v, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
