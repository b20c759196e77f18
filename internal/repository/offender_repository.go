package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/prisoner-profile-details/internal/model"
)

// OffenderRepo reads offender identities and their bookings from the legacy
// store.  It is read-only: offenders and bookings are created and closed by
// reception and release processes outside this service.
type OffenderRepo struct {
	db *sql.DB
}

// NewOffenderRepo returns a new OffenderRepo bound to the provided database.
func NewOffenderRepo(db *sql.DB) *OffenderRepo { return &OffenderRepo{db: db} }

// LoadPerson resolves offenderNo to the person behind it: every identity that
// shares the root offender id of the matching record(s), each with its
// bookings.  Returns ErrNotFound when no offender carries that display id.
func (r *OffenderRepo) LoadPerson(ctx context.Context, offenderNo string) (*model.Person, error) {
	var root uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT root_offender_id FROM offenders WHERE offender_id_display = ? ORDER BY offender_id LIMIT 1`,
		offenderNo,
	).Scan(&root)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find offender %s: %w", offenderNo, err)
	}

	identities, err := r.identities(ctx, root)
	if err != nil {
		return nil, err
	}
	if err := r.attachBookings(ctx, root, identities); err != nil {
		return nil, err
	}
	return &model.Person{OffenderNo: offenderNo, RootOffenderID: root, Identities: identities}, nil
}

func (r *OffenderRepo) identities(ctx context.Context, root uint64) ([]model.Identity, error) {
	const q = `SELECT offender_id, offender_id_display, last_name, first_name
	           FROM offenders
	           WHERE root_offender_id = ?
	           ORDER BY offender_id`
	rows, err := r.db.QueryContext(ctx, q, root)
	if err != nil {
		return nil, fmt.Errorf("list identities for root %d: %w", root, err)
	}
	defer rows.Close()
	var out []model.Identity
	for rows.Next() {
		var id model.Identity
		if err := rows.Scan(&id.OffenderID, &id.OffenderNo, &id.LastName, &id.FirstName); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// attachBookings loads the bookings of every identity under root in one
// query and distributes them onto identities.
func (r *OffenderRepo) attachBookings(ctx context.Context, root uint64, identities []model.Identity) error {
	const q = `SELECT b.offender_book_id, b.offender_id, b.booking_seq,
	                  b.booking_begin_date, b.booking_end_date, b.active_flag
	           FROM offender_bookings b
	           JOIN offenders o ON o.offender_id = b.offender_id
	           WHERE o.root_offender_id = ?`
	rows, err := r.db.QueryContext(ctx, q, root)
	if err != nil {
		return fmt.Errorf("list bookings for root %d: %w", root, err)
	}
	defer rows.Close()

	index := make(map[uint64]int, len(identities))
	for i, id := range identities {
		index[id.OffenderID] = i
	}
	for rows.Next() {
		var b model.Booking
		var end sql.NullTime
		var active string
		if err := rows.Scan(&b.ID, &b.OffenderID, &b.Sequence, &b.StartTime, &end, &active); err != nil {
			return err
		}
		b.StartTime = b.StartTime.UTC()
		if end.Valid {
			t := end.Time.UTC()
			b.EndDate = &t
		}
		b.Active = active == "Y"
		if i, ok := index[b.OffenderID]; ok {
			identities[i].Bookings = append(identities[i].Bookings, b)
		}
	}
	return rows.Err()
}
