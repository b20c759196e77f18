package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/prisoner-profile-details/internal/model"
	"github.com/iliyamo/prisoner-profile-details/internal/queue"
	"github.com/iliyamo/prisoner-profile-details/internal/repository"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeOffenders struct {
	people map[string]*model.Person
	err    error
}

func (f *fakeOffenders) LoadPerson(ctx context.Context, offenderNo string) (*model.Person, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.people[offenderNo]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

type detailKey struct {
	booking uint64
	seq     int
	typ     string
}

// fakeDetails stores rows for every sequence but, like the real repository,
// only reads and writes sequence 1 through its methods.
type fakeDetails struct {
	mu   sync.Mutex
	rows map[detailKey]model.ProfileDetail

	// raceOnCreate simulates another writer inserting the row between our
	// Get and our Create.
	raceOnCreate bool
	getErr       error
	createErr    error
	listOverride []model.ProfileDetail
}

func newFakeDetails() *fakeDetails {
	return &fakeDetails{rows: map[detailKey]model.ProfileDetail{}}
}

func (f *fakeDetails) put(booking uint64, seq int, typ string, code *string) {
	f.rows[detailKey{booking, seq, typ}] = model.ProfileDetail{
		BookingID: booking, ProfileSeq: seq, Type: typ, Code: code, CreatedAt: time.Now().UTC(), CreatedBy: "SEED",
	}
}

func (f *fakeDetails) code(booking uint64, seq int, typ string) (*string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[detailKey{booking, seq, typ}]
	return d.Code, ok
}

func (f *fakeDetails) ListForBookings(ctx context.Context, bookingIDs []uint64, types []string) ([]model.ProfileDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listOverride != nil {
		return f.listOverride, nil
	}
	wantBooking := map[uint64]bool{}
	for _, id := range bookingIDs {
		wantBooking[id] = true
	}
	wantType := map[string]bool{}
	for _, t := range types {
		wantType[t] = true
	}
	var out []model.ProfileDetail
	for k, d := range f.rows {
		if k.seq != model.CurrentProfileSeq || !wantBooking[k.booking] {
			continue
		}
		if len(types) > 0 && !wantType[k.typ] {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookingID != out[j].BookingID {
			return out[i].BookingID < out[j].BookingID
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

func (f *fakeDetails) Get(ctx context.Context, bookingID uint64, profileType string) (*model.ProfileDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	d, ok := f.rows[detailKey{bookingID, model.CurrentProfileSeq, profileType}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (f *fakeDetails) Create(ctx context.Context, d model.ProfileDetail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	k := detailKey{d.BookingID, model.CurrentProfileSeq, d.Type}
	if f.raceOnCreate {
		f.raceOnCreate = false
		other := "OTHER"
		f.rows[k] = model.ProfileDetail{BookingID: d.BookingID, ProfileSeq: 1, Type: d.Type, Code: &other, CreatedBy: "RACER"}
	}
	if _, exists := f.rows[k]; exists {
		return repository.ErrDuplicate
	}
	d.ProfileSeq = model.CurrentProfileSeq
	f.rows[k] = d
	return nil
}

func (f *fakeDetails) UpdateCode(ctx context.Context, bookingID uint64, profileType string, code *string, modifiedAt time.Time, modifiedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := detailKey{bookingID, model.CurrentProfileSeq, profileType}
	d, ok := f.rows[k]
	if !ok {
		return repository.ErrNotFound
	}
	d.Code = code
	d.ModifiedAt = &modifiedAt
	d.ModifiedBy = &modifiedBy
	f.rows[k] = d
	return nil
}

type fakeCatalogue struct {
	types []model.ProfileType
	err   error
}

func (f *fakeCatalogue) ListProfileTypes(ctx context.Context) ([]model.ProfileType, error) {
	return f.types, f.err
}

func defaultCatalogue() *fakeCatalogue {
	return &fakeCatalogue{types: []model.ProfileType{
		{Type: "L_EYE_C", ValueType: "CODE", Active: true, Codes: []model.ProfileCode{{Code: "RED", Active: true}, {Code: "BLUE", Active: true}}},
		{Type: "R_EYE_C", ValueType: "CODE", Active: true, Codes: []model.ProfileCode{{Code: "BLUE", Active: true}}},
		{Type: "BUILD", ValueType: "CODE", Active: true, Codes: []model.ProfileCode{{Code: "SLIM", Active: true}, {Code: "SMALL", Active: true}, {Code: "OBESE", Active: false}}},
		{Type: "SHOESIZE", ValueType: "STRING", Active: true},
		{Type: "OLD_TYPE", ValueType: "CODE", Active: false, Codes: []model.ProfileCode{{Code: "X", Active: true}}},
	}}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.ProfileDetailChangedEvent
	err    error
}

func (f *fakePublisher) PublishProfileDetailChanged(ctx context.Context, ev queue.ProfileDetailChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	upserts map[string]int
	reads   int
}

func (f *fakeRecorder) ObserveUpsert(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upserts == nil {
		f.upserts = map[string]int{}
	}
	f.upserts[outcome]++
}

func (f *fakeRecorder) ObserveRead() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
}

var errStoreDown = errors.New("store down")

// person builds a one-identity person owning the given bookings.
func person(offenderNo string, bookings ...model.Booking) *model.Person {
	return &model.Person{
		OffenderNo:     offenderNo,
		RootOffenderID: 1,
		Identities:     []model.Identity{{OffenderID: 1, OffenderNo: offenderNo, Bookings: bookings}},
	}
}

func openBooking(id uint64, start time.Time) model.Booking {
	return model.Booking{ID: id, OffenderID: 1, Sequence: 1, StartTime: start, Active: true}
}

func closedBooking(id uint64, start, end time.Time) model.Booking {
	return model.Booking{ID: id, OffenderID: 1, Sequence: 2, StartTime: start, EndDate: &end}
}

func strPtr(s string) *string { return &s }
