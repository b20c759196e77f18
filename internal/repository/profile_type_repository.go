package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/prisoner-profile-details/internal/model"
)

// ProfileTypeRepo reads the profile type and code catalogue.  The catalogue
// is maintained by reference-data tooling and is read-only to this service.
type ProfileTypeRepo struct {
	db *sql.DB
}

// NewProfileTypeRepo returns a new ProfileTypeRepo bound to the given database.
func NewProfileTypeRepo(db *sql.DB) *ProfileTypeRepo { return &ProfileTypeRepo{db: db} }

// ListProfileTypes returns every profile type, active or not, ordered by
// list sequence then type, each carrying its codes in list order.  Free-text
// types come back with no codes.
func (r *ProfileTypeRepo) ListProfileTypes(ctx context.Context) ([]model.ProfileType, error) {
	const qt = `SELECT profile_type, profile_category, description, code_value_type, active_flag, list_seq
	            FROM profile_types
	            ORDER BY list_seq, profile_type`
	rows, err := r.db.QueryContext(ctx, qt)
	if err != nil {
		return nil, fmt.Errorf("list profile types: %w", err)
	}
	var types []model.ProfileType
	index := map[string]int{}
	for rows.Next() {
		var t model.ProfileType
		var active string
		if err := rows.Scan(&t.Type, &t.Category, &t.Description, &t.ValueType, &active, &t.ListSeq); err != nil {
			rows.Close()
			return nil, err
		}
		t.Active = active == "Y"
		index[t.Type] = len(types)
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	const qc = `SELECT profile_type, profile_code, description, active_flag, list_seq
	            FROM profile_codes
	            ORDER BY profile_type, list_seq, profile_code`
	rows, err = r.db.QueryContext(ctx, qc)
	if err != nil {
		return nil, fmt.Errorf("list profile codes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ, active string
		var c model.ProfileCode
		if err := rows.Scan(&typ, &c.Code, &c.Description, &active, &c.ListSeq); err != nil {
			return nil, err
		}
		c.Active = active == "Y"
		if i, ok := index[typ]; ok {
			types[i].Codes = append(types[i].Codes, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if types == nil {
		types = []model.ProfileType{}
	}
	return types, nil
}
