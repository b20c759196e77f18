// Package testutil holds fixtures shared by package tests: an in-process
// sqlite legacy store with the schema applied, plus seed helpers that write
// rows the way reception and reference-data tooling would.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/prisoner-profile-details/internal/database"
)

// OpenStore opens a fresh sqlite database under t.TempDir with the schema
// applied.  The handle is closed when the test ends.
func OpenStore(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "legacy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.ApplySchema(context.Background(), db))
	return db
}

// Offender inserts an offender identity.  Pass the primary identity's id as
// root for both the primary record and its aliases.
func Offender(t *testing.T, db *sql.DB, offenderID, root uint64, offenderNo, lastName string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO offenders (offender_id, offender_id_display, root_offender_id, last_name, first_name)
		VALUES (?, ?, ?, ?, ?)`, offenderID, offenderNo, root, lastName, "JOHN")
	require.NoError(t, err)
}

// Booking inserts a booking.  A nil end leaves the booking open.
func Booking(t *testing.T, db *sql.DB, bookingID, offenderID uint64, seq int, begin time.Time, end *time.Time) {
	t.Helper()
	var endVal interface{}
	active := "Y"
	if end != nil {
		endVal = end.UTC()
		active = "N"
	}
	_, err := db.Exec(`INSERT INTO offender_bookings
		(offender_book_id, offender_id, booking_seq, booking_begin_date, booking_end_date, active_flag)
		VALUES (?, ?, ?, ?, ?, ?)`, bookingID, offenderID, seq, begin.UTC(), endVal, active)
	require.NoError(t, err)
}

// ProfileHeader inserts an offender_profiles header row.
func ProfileHeader(t *testing.T, db *sql.DB, bookingID uint64, seq int) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO offender_profiles (offender_book_id, profile_seq, check_date) VALUES (?, ?, ?)`,
		bookingID, seq, time.Now().UTC())
	require.NoError(t, err)
}

// Detail inserts an attribute row.  A nil code stores NULL.
func Detail(t *testing.T, db *sql.DB, bookingID uint64, seq int, profileType string, code *string) {
	t.Helper()
	var codeVal interface{}
	if code != nil {
		codeVal = *code
	}
	_, err := db.Exec(`INSERT INTO offender_profile_details
		(offender_book_id, profile_seq, profile_type, profile_code, create_datetime, create_user_id)
		VALUES (?, ?, ?, ?, ?, ?)`, bookingID, seq, profileType, codeVal, time.Now().UTC(), "SEED_USER")
	require.NoError(t, err)
}

// ReadCode returns the stored value for (booking, seq, type) and whether the
// row exists.
func ReadCode(t *testing.T, db *sql.DB, bookingID uint64, seq int, profileType string) (*string, bool) {
	t.Helper()
	var code sql.NullString
	err := db.QueryRow(`SELECT profile_code FROM offender_profile_details
		WHERE offender_book_id = ? AND profile_seq = ? AND profile_type = ?`, bookingID, seq, profileType).Scan(&code)
	if err == sql.ErrNoRows {
		return nil, false
	}
	require.NoError(t, err)
	if !code.Valid {
		return nil, true
	}
	return &code.String, true
}

// Catalogue seeds a small reference catalogue: coded eye colour and build
// types, free-text SHOESIZE and an inactive coded type.
func Catalogue(t *testing.T, db *sql.DB) {
	t.Helper()
	types := []struct {
		typ, category, desc, valueType, active string
		seq                                    int
	}{
		{"L_EYE_C", "PA", "Left Eye Colour", "CODE", "Y", 1},
		{"R_EYE_C", "PA", "Right Eye Colour", "CODE", "Y", 2},
		{"BUILD", "PA", "Build", "CODE", "Y", 3},
		{"SHOESIZE", "PA", "Shoe Size", "STRING", "Y", 4},
		{"OLD_TYPE", "PA", "Retired Type", "CODE", "N", 5},
	}
	for _, ty := range types {
		_, err := db.Exec(`INSERT INTO profile_types (profile_type, profile_category, description, code_value_type, active_flag, list_seq)
			VALUES (?, ?, ?, ?, ?, ?)`, ty.typ, ty.category, ty.desc, ty.valueType, ty.active, ty.seq)
		require.NoError(t, err)
	}
	codes := []struct {
		typ, code, desc, active string
		seq                     int
	}{
		{"L_EYE_C", "BLUE", "Blue", "Y", 1},
		{"L_EYE_C", "RED", "Red", "Y", 2},
		{"R_EYE_C", "BLUE", "Blue", "Y", 1},
		{"R_EYE_C", "GREEN", "Green", "Y", 2},
		{"BUILD", "SLIM", "Slim", "Y", 1},
		{"BUILD", "SMALL", "Small", "Y", 2},
		{"BUILD", "OBESE", "Obese", "N", 3},
		{"OLD_TYPE", "X", "Retired", "Y", 1},
	}
	for _, c := range codes {
		_, err := db.Exec(`INSERT INTO profile_codes (profile_type, profile_code, description, active_flag, list_seq)
			VALUES (?, ?, ?, ?, ?)`, c.typ, c.code, c.desc, c.active, c.seq)
		require.NoError(t, err)
	}
}

// Str returns a pointer to s.
func Str(s string) *string { return &s }
