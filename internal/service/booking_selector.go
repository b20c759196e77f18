package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/prisoner-profile-details/internal/model"
	"github.com/iliyamo/prisoner-profile-details/internal/repository"
)

// OffenderStore resolves an offender display id to the person behind it.
type OffenderStore interface {
	LoadPerson(ctx context.Context, offenderNo string) (*model.Person, error)
}

// SelectedBooking is a booking labelled by the selector.
type SelectedBooking struct {
	BookingID uint64
	StartTime time.Time
	Current   bool
	Closed    bool
}

// SelectBookings orders bookings newest first (start time descending, then
// booking id descending) and marks the first open booking as current.
// Closed bookings are returned as historical and are never current.  The
// result depends only on the set of bookings, never on input order.
func SelectBookings(bookings []model.Booking) []SelectedBooking {
	out := make([]SelectedBooking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, SelectedBooking{BookingID: b.ID, StartTime: b.StartTime, Closed: b.Closed()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].BookingID > out[j].BookingID
	})
	for i := range out {
		if !out[i].Closed {
			out[i].Current = true
			break
		}
	}
	return out
}

// CurrentBooking returns the booking marked current, if any.
func CurrentBooking(selected []SelectedBooking) (SelectedBooking, bool) {
	for _, b := range selected {
		if b.Current {
			return b, true
		}
	}
	return SelectedBooking{}, false
}

// BookingSelector resolves an offender's bookings fresh on every call.
// Results are never cached: a reception between two calls changes the answer.
type BookingSelector struct {
	offenders OffenderStore
}

// NewBookingSelector returns a selector backed by offenders.
func NewBookingSelector(offenders OffenderStore) *BookingSelector {
	return &BookingSelector{offenders: offenders}
}

// SelectCurrentAndHistoricalBookings loads every booking of the person behind
// offenderNo, across alias identities, and labels them.  An unknown offender
// is a KindNotFound error; an offender with no bookings yields an empty slice.
func (s *BookingSelector) SelectCurrentAndHistoricalBookings(ctx context.Context, offenderNo string) ([]SelectedBooking, error) {
	person, err := s.offenders.LoadPerson(ctx, offenderNo)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("offender %s not found", offenderNo)
	}
	if err != nil {
		return nil, fmt.Errorf("load offender %s: %w", offenderNo, err)
	}
	return SelectBookings(person.Bookings()), nil
}
