package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/prisoner-profile-details/internal/model"
	"github.com/iliyamo/prisoner-profile-details/internal/queue"
)

var fixedNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

type harness struct {
	svc       *ProfileDetailsService
	details   *fakeDetails
	publisher *fakePublisher
	recorder  *fakeRecorder
	logs      *observer.ObservedLogs
}

func newHarness(t *testing.T, people map[string]*model.Person) *harness {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	h := &harness{
		details:   newFakeDetails(),
		publisher: &fakePublisher{},
		recorder:  &fakeRecorder{},
		logs:      logs,
	}
	h.svc = NewProfileDetailsService(&fakeOffenders{people: people}, h.details, defaultCatalogue(),
		h.publisher, h.recorder, zap.New(core))
	h.svc.SetClock(func() time.Time { return fixedNow })
	return h
}

// twoBookings is an offender with a current booking (2) and an older closed one (1).
func twoBookings() map[string]*model.Person {
	return map[string]*model.Person{
		"A1234AA": person("A1234AA",
			closedBooking(1, t0.Add(-30*24*time.Hour), t0.Add(-20*24*time.Hour)),
			openBooking(2, t0),
		),
	}
}

func upsert(t *testing.T, svc *ProfileDetailsService, typ string, code *string) (*UpsertResult, error) {
	t.Helper()
	return svc.UpsertProfileDetail(context.Background(), UpsertRequest{
		OffenderNo: "A1234AA", ProfileType: typ, Code: code, Username: "SYNC_USER",
	})
}

// ============================================================================
// GetProfileDetails
// ============================================================================

func TestGetProfileDetails_NewestFirstWithLatestLabel(t *testing.T) {
	h := newHarness(t, twoBookings())
	h.details.put(1, 1, "L_EYE_C", strPtr("RED"))
	h.details.put(2, 1, "L_EYE_C", strPtr("BLUE"))
	h.details.put(2, 1, "BUILD", nil)

	res, err := h.svc.GetProfileDetails(context.Background(), "A1234AA", ProfileDetailsQuery{})
	require.NoError(t, err)

	assert.Equal(t, "A1234AA", res.OffenderNo)
	require.Len(t, res.Bookings, 2)
	assert.Equal(t, uint64(2), res.Bookings[0].BookingID)
	assert.True(t, res.Bookings[0].LatestBooking)
	assert.Equal(t, t0, res.Bookings[0].StartDateTime)
	assert.Equal(t, uint64(1), res.Bookings[1].BookingID)
	assert.False(t, res.Bookings[1].LatestBooking)

	latest := res.Bookings[0].Attributes
	require.Len(t, latest, 2)
	assert.Equal(t, "BUILD", latest[0].Type)
	assert.Nil(t, latest[0].Code)
	assert.Equal(t, "L_EYE_C", latest[1].Type)
	assert.Equal(t, "BLUE", *latest[1].Code)
	assert.Equal(t, 1, h.recorder.reads)
}

func TestGetProfileDetails_BookingsWithoutRowsAreOmitted(t *testing.T) {
	h := newHarness(t, twoBookings())
	h.details.put(1, 1, "L_EYE_C", strPtr("RED"))
	h.details.put(2, 2, "L_EYE_C", strPtr("BLUE"))

	res, err := h.svc.GetProfileDetails(context.Background(), "A1234AA", ProfileDetailsQuery{})
	require.NoError(t, err)
	require.Len(t, res.Bookings, 1)
	assert.Equal(t, uint64(1), res.Bookings[0].BookingID)
	assert.False(t, res.Bookings[0].LatestBooking)
}

func TestGetProfileDetails_BookingFilterKeepsLatestLabel(t *testing.T) {
	h := newHarness(t, twoBookings())
	h.details.put(1, 1, "L_EYE_C", strPtr("RED"))
	h.details.put(2, 1, "L_EYE_C", strPtr("BLUE"))

	current := uint64(2)
	res, err := h.svc.GetProfileDetails(context.Background(), "A1234AA", ProfileDetailsQuery{BookingID: &current})
	require.NoError(t, err)
	require.Len(t, res.Bookings, 1)
	assert.True(t, res.Bookings[0].LatestBooking)

	old := uint64(1)
	res, err = h.svc.GetProfileDetails(context.Background(), "A1234AA", ProfileDetailsQuery{BookingID: &old})
	require.NoError(t, err)
	require.Len(t, res.Bookings, 1)
	assert.False(t, res.Bookings[0].LatestBooking)

	unknown := uint64(99)
	res, err = h.svc.GetProfileDetails(context.Background(), "A1234AA", ProfileDetailsQuery{BookingID: &unknown})
	require.NoError(t, err)
	assert.NotNil(t, res.Bookings)
	assert.Empty(t, res.Bookings)
}

func TestGetProfileDetails_TypeFilter(t *testing.T) {
	h := newHarness(t, twoBookings())
	h.details.put(2, 1, "L_EYE_C", strPtr("BLUE"))
	h.details.put(2, 1, "SHOESIZE", strPtr("9"))

	res, err := h.svc.GetProfileDetails(context.Background(), "A1234AA", ProfileDetailsQuery{Types: []string{"SHOESIZE"}})
	require.NoError(t, err)
	require.Len(t, res.Bookings, 1)
	require.Len(t, res.Bookings[0].Attributes, 1)
	assert.Equal(t, "SHOESIZE", res.Bookings[0].Attributes[0].Type)
}

func TestGetProfileDetails_NoBookingsIsEmpty(t *testing.T) {
	h := newHarness(t, map[string]*model.Person{"A1234AA": person("A1234AA")})

	res, err := h.svc.GetProfileDetails(context.Background(), "A1234AA", ProfileDetailsQuery{})
	require.NoError(t, err)
	assert.NotNil(t, res.Bookings)
	assert.Empty(t, res.Bookings)
}

func TestGetProfileDetails_UnknownOffender(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.svc.GetProfileDetails(context.Background(), "Z9999ZZ", ProfileDetailsQuery{})
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 0, h.recorder.reads)
}

// ============================================================================
// UpsertProfileDetail
// ============================================================================

func TestUpsert_CreateThenUpdate(t *testing.T) {
	h := newHarness(t, twoBookings())

	res, err := upsert(t, h.svc, "L_EYE_C", strPtr("RED"))
	require.NoError(t, err)
	assert.Equal(t, &UpsertResult{BookingID: 2, Created: true}, res)

	res, err = upsert(t, h.svc, "L_EYE_C", strPtr("BLUE"))
	require.NoError(t, err)
	assert.Equal(t, &UpsertResult{BookingID: 2, Created: false}, res)

	code, ok := h.details.code(2, 1, "L_EYE_C")
	require.True(t, ok)
	assert.Equal(t, "BLUE", *code)

	row := h.details.rows[detailKey{2, 1, "L_EYE_C"}]
	assert.Equal(t, "SYNC_USER", row.CreatedBy)
	assert.Equal(t, fixedNow, row.CreatedAt)
	require.NotNil(t, row.ModifiedBy)
	assert.Equal(t, "SYNC_USER", *row.ModifiedBy)

	assert.Equal(t, map[string]int{OutcomeCreated: 1, OutcomeUpdated: 1}, h.recorder.upserts)
}

func TestUpsert_SameValueTwiceIsIdempotent(t *testing.T) {
	h := newHarness(t, twoBookings())

	_, err := upsert(t, h.svc, "SHOESIZE", strPtr("10"))
	require.NoError(t, err)
	res, err := upsert(t, h.svc, "SHOESIZE", strPtr("10"))
	require.NoError(t, err)
	assert.False(t, res.Created)

	code, _ := h.details.code(2, 1, "SHOESIZE")
	assert.Equal(t, "10", *code)
}

func TestUpsert_WritesOnlyOneRow(t *testing.T) {
	h := newHarness(t, twoBookings())
	h.details.put(1, 1, "L_EYE_C", strPtr("RED"))
	h.details.put(2, 1, "R_EYE_C", strPtr("BLUE"))
	h.details.put(2, 2, "L_EYE_C", strPtr("RED"))
	before := len(h.details.rows)

	_, err := upsert(t, h.svc, "L_EYE_C", strPtr("BLUE"))
	require.NoError(t, err)

	assert.Equal(t, before+1, len(h.details.rows))
	old, _ := h.details.code(1, 1, "L_EYE_C")
	assert.Equal(t, "RED", *old, "historical booking untouched")
	other, _ := h.details.code(2, 1, "R_EYE_C")
	assert.Equal(t, "BLUE", *other, "other type untouched")
	seq2, _ := h.details.code(2, 2, "L_EYE_C")
	assert.Equal(t, "RED", *seq2, "later sequence untouched")
}

func TestUpsert_NullCodeIsRecorded(t *testing.T) {
	h := newHarness(t, twoBookings())
	h.details.put(2, 1, "BUILD", strPtr("SLIM"))

	res, err := upsert(t, h.svc, "BUILD", nil)
	require.NoError(t, err)
	assert.False(t, res.Created)

	code, ok := h.details.code(2, 1, "BUILD")
	assert.True(t, ok)
	assert.Nil(t, code)
}

func TestUpsert_LostCreateRaceBecomesUpdate(t *testing.T) {
	h := newHarness(t, twoBookings())
	h.details.raceOnCreate = true

	res, err := upsert(t, h.svc, "L_EYE_C", strPtr("BLUE"))
	require.NoError(t, err)
	assert.False(t, res.Created)

	code, _ := h.details.code(2, 1, "L_EYE_C")
	assert.Equal(t, "BLUE", *code)
	assert.Equal(t, 1, h.logs.FilterMessage("lost create race, updating instead").Len())
}

func TestUpsert_ConcurrentCallersBothSucceed(t *testing.T) {
	h := newHarness(t, twoBookings())

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = upsert(t, h.svc, "SHOESIZE", strPtr("11"))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, h.details.rows, 1)
}

func TestUpsert_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		people map[string]*model.Person
		typ    string
		code   *string
		kind   Kind
		msg    string
	}{
		{"unknown offender", nil, "L_EYE_C", strPtr("RED"), KindNotFound, "A1234AA"},
		{"no bookings", map[string]*model.Person{"A1234AA": person("A1234AA")}, "L_EYE_C", strPtr("RED"), KindNotFound, "no bookings"},
		{"only closed bookings", map[string]*model.Person{"A1234AA": person("A1234AA", closedBooking(1, t0, t0.Add(time.Hour)))}, "L_EYE_C", strPtr("RED"), KindNotFound, "no current booking"},
		{"unknown type", twoBookings(), "HAIR", strPtr("RED"), KindInvalidRequest, "HAIR"},
		{"inactive type", twoBookings(), "OLD_TYPE", strPtr("X"), KindInvalidRequest, "OLD_TYPE"},
		{"unknown code", twoBookings(), "L_EYE_C", strPtr("PURPLE"), KindInvalidRequest, "PURPLE"},
		{"code of another type", twoBookings(), "R_EYE_C", strPtr("RED"), KindInvalidRequest, "RED"},
		{"inactive code", twoBookings(), "BUILD", strPtr("OBESE"), KindInvalidRequest, "OBESE"},
		{"free text too long", twoBookings(), "SHOESIZE", strPtr("1234567890123"), KindInvalidRequest, "SHOESIZE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.people)

			res, err := upsert(t, h.svc, tc.typ, tc.code)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tc.kind, KindOf(err))
			assert.Contains(t, err.Error(), tc.msg)
			assert.Empty(t, h.details.rows)
			assert.Empty(t, h.publisher.events)
			assert.Equal(t, map[string]int{OutcomeRejected: 1}, h.recorder.upserts)
		})
	}
}

func TestUpsert_FreeTextAtLimit(t *testing.T) {
	h := newHarness(t, twoBookings())

	_, err := upsert(t, h.svc, "SHOESIZE", strPtr("123456789012"))
	require.NoError(t, err)
}

func TestUpsert_StoreFailureIsUnclassified(t *testing.T) {
	h := newHarness(t, twoBookings())
	h.details.getErr = errStoreDown

	_, err := upsert(t, h.svc, "L_EYE_C", strPtr("RED"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errStoreDown))
	assert.Equal(t, Kind(0), KindOf(err))
	assert.Equal(t, map[string]int{OutcomeFailed: 1}, h.recorder.upserts)
}

func TestUpsert_CreateFailureIsUnclassified(t *testing.T) {
	h := newHarness(t, twoBookings())
	h.details.createErr = errStoreDown

	_, err := upsert(t, h.svc, "L_EYE_C", strPtr("RED"))
	assert.True(t, errors.Is(err, errStoreDown))
	assert.Empty(t, h.publisher.events)
}

func TestUpsert_EventIdentifiesChangeWithoutValue(t *testing.T) {
	h := newHarness(t, twoBookings())

	_, err := upsert(t, h.svc, "L_EYE_C", strPtr("RED"))
	require.NoError(t, err)
	_, err = upsert(t, h.svc, "L_EYE_C", strPtr("BLUE"))
	require.NoError(t, err)

	require.Len(t, h.publisher.events, 2)
	ev := h.publisher.events[0]
	assert.Equal(t, queue.EventProfileDetailCreated, ev.EventType)
	assert.Equal(t, "A1234AA", ev.OffenderNo)
	assert.Equal(t, uint64(2), ev.BookingID)
	assert.Equal(t, "L_EYE_C", ev.ProfileType)
	assert.Equal(t, "SYNC_USER", ev.ChangedBy)
	assert.Equal(t, "2026-10-19T09:30:00Z", ev.OccurredAt)
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, queue.EventProfileDetailUpdated, h.publisher.events[1].EventType)
	assert.NotEqual(t, ev.EventID, h.publisher.events[1].EventID)

	created := h.logs.FilterMessage("profile detail created").All()
	require.Len(t, created, 1)
	fields := created[0].ContextMap()
	assert.Equal(t, "A1234AA", fields["offender_no"])
	assert.Equal(t, "L_EYE_C", fields["profile_type"])
	assert.NotContains(t, fields, "profile_code")
}

func TestUpsert_PublishFailureDoesNotFailWrite(t *testing.T) {
	h := newHarness(t, twoBookings())
	h.publisher.err = errors.New("broker down")

	res, err := upsert(t, h.svc, "L_EYE_C", strPtr("RED"))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 1, h.logs.FilterMessage("publish profile detail event failed").Len())
}

func TestUpsert_NilPublisherAndRecorder(t *testing.T) {
	svc := NewProfileDetailsService(&fakeOffenders{people: twoBookings()}, newFakeDetails(), defaultCatalogue(),
		nil, nil, zap.NewNop())

	res, err := upsert(t, svc, "L_EYE_C", strPtr("RED"))
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestUpsert_CatalogueFailure(t *testing.T) {
	svc := NewProfileDetailsService(&fakeOffenders{people: twoBookings()}, newFakeDetails(),
		&fakeCatalogue{err: errStoreDown}, nil, nil, zap.NewNop())

	_, err := upsert(t, svc, "L_EYE_C", strPtr("RED"))
	assert.True(t, errors.Is(err, errStoreDown))
}

// ============================================================================
// ParseProfileTypes
// ============================================================================

func TestParseProfileTypes(t *testing.T) {
	assert.Nil(t, ParseProfileTypes(nil))
	assert.Nil(t, ParseProfileTypes([]string{"", " , "}))
	assert.Equal(t, []string{"L_EYE_C", "BUILD", "SHOESIZE"},
		ParseProfileTypes([]string{"l_eye_c, BUILD", "SHOESIZE", "build"}))
}
