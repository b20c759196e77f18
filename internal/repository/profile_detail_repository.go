package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/prisoner-profile-details/internal/model"
)

// ProfileDetailRepo provides access to offender_profile_details.  Every
// method is pinned to model.CurrentProfileSeq: rows under later snapshot
// sequences are history and are neither read nor written here.  Each write
// is a single statement, so a cancelled context never leaves a partial write.
type ProfileDetailRepo struct {
	db *sql.DB
}

// NewProfileDetailRepo returns a new ProfileDetailRepo bound to the given database.
func NewProfileDetailRepo(db *sql.DB) *ProfileDetailRepo { return &ProfileDetailRepo{db: db} }

const profileDetailColumns = `offender_book_id, profile_seq, profile_type, profile_code,
	create_datetime, create_user_id, modify_datetime, modify_user_id`

// ListForBookings returns the current-sequence attribute rows of the given
// bookings, optionally restricted to types.  An empty types slice means all
// types.  Rows are ordered by booking then type so output is stable.  No
// offender_profiles header row is required for a detail row to be returned.
func (r *ProfileDetailRepo) ListForBookings(ctx context.Context, bookingIDs []uint64, types []string) ([]model.ProfileDetail, error) {
	if len(bookingIDs) == 0 {
		return []model.ProfileDetail{}, nil
	}
	var b strings.Builder
	args := make([]interface{}, 0, len(bookingIDs)+len(types)+1)
	b.WriteString(`SELECT ` + profileDetailColumns + ` FROM offender_profile_details WHERE profile_seq = ? AND offender_book_id IN (`)
	args = append(args, model.CurrentProfileSeq)
	for i, id := range bookingIDs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		args = append(args, id)
	}
	b.WriteString(")")
	if len(types) > 0 {
		b.WriteString(" AND profile_type IN (")
		for i, t := range types {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString("?")
			args = append(args, t)
		}
		b.WriteString(")")
	}
	b.WriteString(" ORDER BY offender_book_id, profile_type")

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list profile details: %w", err)
	}
	defer rows.Close()
	out := []model.ProfileDetail{}
	for rows.Next() {
		d, err := scanProfileDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Get returns the current-sequence row for (bookingID, profileType) or
// ErrNotFound when no such row exists.
func (r *ProfileDetailRepo) Get(ctx context.Context, bookingID uint64, profileType string) (*model.ProfileDetail, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileDetailColumns+` FROM offender_profile_details
		 WHERE offender_book_id = ? AND profile_seq = ? AND profile_type = ?`,
		bookingID, model.CurrentProfileSeq, profileType,
	)
	d, err := scanProfileDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile detail %d/%s: %w", bookingID, profileType, err)
	}
	return &d, nil
}

// Create inserts a current-sequence row.  The ProfileSeq field of d is
// ignored.  Returns ErrDuplicate when a row for (booking, type) already
// exists, which happens when a concurrent writer created it first.
func (r *ProfileDetailRepo) Create(ctx context.Context, d model.ProfileDetail) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO offender_profile_details
		 (offender_book_id, profile_seq, profile_type, profile_code, create_datetime, create_user_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.BookingID, model.CurrentProfileSeq, d.Type, nullString(d.Code), d.CreatedAt.UTC(), d.CreatedBy,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create profile detail %d/%s: %w", d.BookingID, d.Type, err)
	}
	return nil
}

// UpdateCode sets the value of an existing current-sequence row, including
// setting it to NULL, and stamps the modify audit columns.  Returns
// ErrNotFound when the row does not exist.
func (r *ProfileDetailRepo) UpdateCode(ctx context.Context, bookingID uint64, profileType string, code *string, modifiedAt time.Time, modifiedBy string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE offender_profile_details
		 SET profile_code = ?, modify_datetime = ?, modify_user_id = ?
		 WHERE offender_book_id = ? AND profile_seq = ? AND profile_type = ?`,
		nullString(code), modifiedAt.UTC(), modifiedBy, bookingID, model.CurrentProfileSeq, profileType,
	)
	if err != nil {
		return fmt.Errorf("update profile detail %d/%s: %w", bookingID, profileType, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	// The MySQL DSN sets clientFoundRows, so n counts matched rows.
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfileDetail(s rowScanner) (model.ProfileDetail, error) {
	var d model.ProfileDetail
	var code, modifiedBy sql.NullString
	var modifiedAt sql.NullTime
	if err := s.Scan(&d.BookingID, &d.ProfileSeq, &d.Type, &code,
		&d.CreatedAt, &d.CreatedBy, &modifiedAt, &modifiedBy); err != nil {
		return d, err
	}
	d.CreatedAt = d.CreatedAt.UTC()
	if code.Valid {
		c := code.String
		d.Code = &c
	}
	if modifiedAt.Valid {
		t := modifiedAt.Time.UTC()
		d.ModifiedAt = &t
	}
	if modifiedBy.Valid {
		m := modifiedBy.String
		d.ModifiedBy = &m
	}
	return d, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
