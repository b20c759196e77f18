package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaDDL is the subset of the legacy prison-records schema this service
// reads and writes.  The statements are portable between MySQL and sqlite so
// the same DDL seeds local databases and repository tests.  Production
// deployments point at the existing legacy tables and never run it.
//
// offender_profile_details is keyed by (booking, profile sequence, type); the
// primary key is what makes two concurrent first writes for the same type
// collide instead of producing duplicate rows.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS offenders (
		offender_id        BIGINT       NOT NULL PRIMARY KEY,
		offender_id_display VARCHAR(10) NOT NULL,
		root_offender_id   BIGINT       NOT NULL,
		last_name          VARCHAR(35)  NOT NULL,
		first_name         VARCHAR(35)  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS offender_bookings (
		offender_book_id   BIGINT      NOT NULL PRIMARY KEY,
		offender_id        BIGINT      NOT NULL,
		booking_seq        INT         NOT NULL,
		booking_begin_date DATETIME    NOT NULL,
		booking_end_date   DATETIME    NULL,
		active_flag        CHAR(1)     NOT NULL DEFAULT 'N',
		FOREIGN KEY (offender_id) REFERENCES offenders (offender_id)
	)`,
	`CREATE TABLE IF NOT EXISTS offender_profiles (
		offender_book_id BIGINT   NOT NULL,
		profile_seq      INT      NOT NULL,
		check_date       DATETIME NOT NULL,
		PRIMARY KEY (offender_book_id, profile_seq)
	)`,
	`CREATE TABLE IF NOT EXISTS profile_types (
		profile_type     VARCHAR(12) NOT NULL PRIMARY KEY,
		profile_category VARCHAR(12) NOT NULL,
		description      VARCHAR(40) NOT NULL,
		code_value_type  VARCHAR(12) NOT NULL,
		active_flag      CHAR(1)     NOT NULL DEFAULT 'Y',
		list_seq         INT         NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS profile_codes (
		profile_type VARCHAR(12) NOT NULL,
		profile_code VARCHAR(12) NOT NULL,
		description  VARCHAR(40) NOT NULL,
		active_flag  CHAR(1)     NOT NULL DEFAULT 'Y',
		list_seq     INT         NOT NULL DEFAULT 0,
		PRIMARY KEY (profile_type, profile_code)
	)`,
	`CREATE TABLE IF NOT EXISTS offender_profile_details (
		offender_book_id BIGINT      NOT NULL,
		profile_seq      INT         NOT NULL,
		profile_type     VARCHAR(12) NOT NULL,
		profile_code     VARCHAR(12) NULL,
		create_datetime  DATETIME    NOT NULL,
		create_user_id   VARCHAR(32) NOT NULL,
		modify_datetime  DATETIME    NULL,
		modify_user_id   VARCHAR(32) NULL,
		PRIMARY KEY (offender_book_id, profile_seq, profile_type)
	)`,
}

// ApplySchema creates the tables the service depends on when they are missing.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for _, ddl := range schemaDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
