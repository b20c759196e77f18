package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/prisoner-profile-details/internal/model"
	"github.com/iliyamo/prisoner-profile-details/internal/queue"
	"github.com/iliyamo/prisoner-profile-details/internal/repository"
)

// DetailStore is the read and write surface over current-sequence attribute rows.
type DetailStore interface {
	DetailReader
	Get(ctx context.Context, bookingID uint64, profileType string) (*model.ProfileDetail, error)
	Create(ctx context.Context, d model.ProfileDetail) error
	UpdateCode(ctx context.Context, bookingID uint64, profileType string, code *string, modifiedAt time.Time, modifiedBy string) error
}

// CatalogueSource lists the profile type catalogue with codes.
type CatalogueSource interface {
	ListProfileTypes(ctx context.Context) ([]model.ProfileType, error)
}

// EventPublisher delivers change events.  Failures are logged, not returned
// to the caller: the write has already happened.
type EventPublisher interface {
	PublishProfileDetailChanged(ctx context.Context, ev queue.ProfileDetailChangedEvent) error
}

// Recorder counts outcomes for telemetry.
type Recorder interface {
	ObserveUpsert(outcome string)
	ObserveRead()
}

// Upsert outcomes reported to the Recorder.
const (
	OutcomeCreated  = "created"
	OutcomeUpdated  = "updated"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// ProfileDetailsService reads and writes offender profile details against
// the current booking.
type ProfileDetailsService struct {
	selector  *BookingSelector
	reader    *AttributeReader
	details   DetailStore
	catalogue CatalogueSource
	publisher EventPublisher
	recorder  Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewProfileDetailsService wires the service.  publisher and recorder may be nil.
func NewProfileDetailsService(offenders OffenderStore, details DetailStore, catalogue CatalogueSource,
	publisher EventPublisher, recorder Recorder, logger *zap.Logger) *ProfileDetailsService {
	return &ProfileDetailsService{
		selector:  NewBookingSelector(offenders),
		reader:    NewAttributeReader(details),
		details:   details,
		catalogue: catalogue,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger.Named("profile-details"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the clock used for audit columns.
func (s *ProfileDetailsService) SetClock(now func() time.Time) { s.now = now }

// ProfileDetailsQuery narrows a read.  Empty Types means every type; a nil
// BookingID means every booking of the offender.
type ProfileDetailsQuery struct {
	Types     []string
	BookingID *uint64
}

// BookingProfileDetails is one booking in a read result.
type BookingProfileDetails struct {
	BookingID     uint64
	StartDateTime time.Time
	LatestBooking bool
	Attributes    []Attribute
}

// ProfileDetailsResult is the outcome of a read.
type ProfileDetailsResult struct {
	OffenderNo string
	Bookings   []BookingProfileDetails
}

// GetProfileDetails returns, newest booking first, the sequence-1 attributes
// of each of the offender's bookings that has any.  latestBooking is judged
// across all bookings before BookingID narrows the list, so a single
// requested booking still carries its true label.  An unknown offender is
// KindNotFound; no data is an empty list.
func (s *ProfileDetailsService) GetProfileDetails(ctx context.Context, offenderNo string, q ProfileDetailsQuery) (*ProfileDetailsResult, error) {
	selected, err := s.selector.SelectCurrentAndHistoricalBookings(ctx, offenderNo)
	if err != nil {
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.ObserveRead()
	}

	if q.BookingID != nil {
		narrowed := selected[:0:0]
		for _, b := range selected {
			if b.BookingID == *q.BookingID {
				narrowed = append(narrowed, b)
			}
		}
		selected = narrowed
	}
	result := &ProfileDetailsResult{OffenderNo: offenderNo, Bookings: []BookingProfileDetails{}}
	if len(selected) == 0 {
		return result, nil
	}

	ids := make([]uint64, len(selected))
	for i, b := range selected {
		ids[i] = b.BookingID
	}
	byBooking, err := s.reader.ReadForBookings(ctx, ids, q.Types)
	if err != nil {
		return nil, err
	}
	for _, b := range selected {
		attrs, ok := byBooking[b.BookingID]
		if !ok {
			continue
		}
		result.Bookings = append(result.Bookings, BookingProfileDetails{
			BookingID:     b.BookingID,
			StartDateTime: b.StartTime,
			LatestBooking: b.Current,
			Attributes:    sortedAttributes(attrs),
		})
	}
	return result, nil
}

func sortedAttributes(attrs Attributes) []Attribute {
	out := make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// UpsertRequest asks for one attribute of one offender to be set.  A nil
// Code records the value as unknown.  Username is the authenticated caller,
// written into the audit columns.
type UpsertRequest struct {
	OffenderNo  string
	ProfileType string
	Code        *string
	Username    string
}

// UpsertResult reports which booking was written and whether a new row was created.
type UpsertResult struct {
	BookingID uint64
	Created   bool
}

// UpsertProfileDetail creates or updates the sequence-1 attribute row for
// req.ProfileType on the offender's current booking.  Exactly one row is
// written; no other type or booking is touched and no profile header row is
// created.  If a concurrent caller creates the row between our read and our
// insert, the insert's duplicate-key failure is turned into an update so
// both callers succeed.
func (s *ProfileDetailsService) UpsertProfileDetail(ctx context.Context, req UpsertRequest) (*UpsertResult, error) {
	res, err := s.upsert(ctx, req)
	s.observe(err, res)
	return res, err
}

func (s *ProfileDetailsService) upsert(ctx context.Context, req UpsertRequest) (*UpsertResult, error) {
	selected, err := s.selector.SelectCurrentAndHistoricalBookings(ctx, req.OffenderNo)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, notFound("offender %s has no bookings", req.OffenderNo)
	}
	current, ok := CurrentBooking(selected)
	if !ok {
		return nil, notFound("offender %s has no current booking", req.OffenderNo)
	}

	if err := s.validate(ctx, req.ProfileType, req.Code); err != nil {
		return nil, err
	}

	bookingID := current.BookingID
	now := s.now()
	_, err = s.details.Get(ctx, bookingID, req.ProfileType)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		err = s.details.Create(ctx, model.ProfileDetail{
			BookingID:  bookingID,
			ProfileSeq: model.CurrentProfileSeq,
			Type:       req.ProfileType,
			Code:       req.Code,
			CreatedAt:  now,
			CreatedBy:  req.Username,
		})
		if err == nil {
			s.emit(ctx, queue.EventProfileDetailCreated, req, bookingID, now)
			return &UpsertResult{BookingID: bookingID, Created: true}, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("create %s for booking %d: %w", req.ProfileType, bookingID, err)
		}
		s.logger.Info("lost create race, updating instead",
			zap.String("offender_no", req.OffenderNo),
			zap.Uint64("booking_id", bookingID),
			zap.String("profile_type", req.ProfileType))
	case err != nil:
		return nil, fmt.Errorf("read %s for booking %d: %w", req.ProfileType, bookingID, err)
	}

	if err := s.details.UpdateCode(ctx, bookingID, req.ProfileType, req.Code, now, req.Username); err != nil {
		return nil, fmt.Errorf("update %s for booking %d: %w", req.ProfileType, bookingID, err)
	}
	s.emit(ctx, queue.EventProfileDetailUpdated, req, bookingID, now)
	return &UpsertResult{BookingID: bookingID, Created: false}, nil
}

// validate checks the type against the catalogue and, for coded types, the
// value against the type's codes.  Free-text values only have to fit the
// column.  Inactive types and codes are readable but not writable.
func (s *ProfileDetailsService) validate(ctx context.Context, profileType string, code *string) error {
	types, err := s.catalogue.ListProfileTypes(ctx)
	if err != nil {
		return fmt.Errorf("load profile type catalogue: %w", err)
	}
	var pt *model.ProfileType
	for i := range types {
		if types[i].Type == profileType {
			pt = &types[i]
			break
		}
	}
	if pt == nil || !pt.Active {
		return invalid("invalid profile type %s", profileType)
	}
	if code == nil {
		return nil
	}
	if pt.FreeText() {
		if len(*code) > model.MaxProfileCodeLength {
			return invalid("profile code for %s exceeds %d characters", profileType, model.MaxProfileCodeLength)
		}
		return nil
	}
	c, ok := pt.Code(*code)
	if !ok || !c.Active {
		return invalid("invalid profile code %s for profile type %s", *code, profileType)
	}
	return nil
}

func (s *ProfileDetailsService) emit(ctx context.Context, eventType string, req UpsertRequest, bookingID uint64, at time.Time) {
	msg := "profile detail updated"
	if eventType == queue.EventProfileDetailCreated {
		msg = "profile detail created"
	}
	s.logger.Info(msg,
		zap.String("offender_no", req.OffenderNo),
		zap.Uint64("booking_id", bookingID),
		zap.String("profile_type", req.ProfileType))

	if s.publisher == nil {
		return
	}
	ev := queue.ProfileDetailChangedEvent{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		OffenderNo:  req.OffenderNo,
		BookingID:   bookingID,
		ProfileType: req.ProfileType,
		ChangedBy:   req.Username,
		OccurredAt:  at.Format(time.RFC3339),
	}
	if err := s.publisher.PublishProfileDetailChanged(ctx, ev); err != nil {
		s.logger.Warn("publish profile detail event failed",
			zap.String("event_id", ev.EventID), zap.Error(err))
	}
}

func (s *ProfileDetailsService) observe(err error, res *UpsertResult) {
	if s.recorder == nil {
		return
	}
	switch {
	case err == nil && res.Created:
		s.recorder.ObserveUpsert(OutcomeCreated)
	case err == nil:
		s.recorder.ObserveUpsert(OutcomeUpdated)
	case KindOf(err) != 0:
		s.recorder.ObserveUpsert(OutcomeRejected)
	default:
		s.recorder.ObserveUpsert(OutcomeFailed)
	}
}

// ListProfileTypes returns the catalogue for the reference endpoint.
func (s *ProfileDetailsService) ListProfileTypes(ctx context.Context) ([]model.ProfileType, error) {
	return s.catalogue.ListProfileTypes(ctx)
}

// ParseProfileTypes splits comma-separated and repeated profileTypes values
// into a de-duplicated, upper-cased list.
func ParseProfileTypes(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			p = strings.ToUpper(strings.TrimSpace(p))
			if p != "" && !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}
