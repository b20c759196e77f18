package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/prisoner-profile-details/internal/model"
)

// DetailReader lists current-sequence attribute rows.
type DetailReader interface {
	ListForBookings(ctx context.Context, bookingIDs []uint64, types []string) ([]model.ProfileDetail, error)
}

// Attribute is one recorded attribute value.  Its presence in a result map
// means a row exists; Code may still be nil, meaning "recorded as unknown".
type Attribute struct {
	Type       string
	Code       *string
	CreatedAt  time.Time
	CreatedBy  string
	ModifiedAt *time.Time
	ModifiedBy *string
}

// Attributes maps profile type to attribute for one booking.  Types with no
// row are absent from the map, never present with a nil Code.
type Attributes map[string]Attribute

// AttributeReader reads the authoritative (sequence 1) attribute snapshot of
// bookings.
type AttributeReader struct {
	details DetailReader
}

// NewAttributeReader returns a reader backed by details.
func NewAttributeReader(details DetailReader) *AttributeReader {
	return &AttributeReader{details: details}
}

// ReadAttributes returns the attributes recorded for a single booking,
// restricted to types when types is non-empty.
func (r *AttributeReader) ReadAttributes(ctx context.Context, bookingID uint64, types []string) (Attributes, error) {
	all, err := r.ReadForBookings(ctx, []uint64{bookingID}, types)
	if err != nil {
		return nil, err
	}
	if attrs, ok := all[bookingID]; ok {
		return attrs, nil
	}
	return Attributes{}, nil
}

// ReadForBookings returns the attributes of each booking that has at least
// one qualifying row.  Bookings with none are absent from the result.
func (r *AttributeReader) ReadForBookings(ctx context.Context, bookingIDs []uint64, types []string) (map[uint64]Attributes, error) {
	rows, err := r.details.ListForBookings(ctx, bookingIDs, types)
	if err != nil {
		return nil, fmt.Errorf("read attributes: %w", err)
	}
	out := make(map[uint64]Attributes)
	for _, d := range rows {
		// later snapshot sequences never surface, whatever the store returned
		if d.ProfileSeq != model.CurrentProfileSeq {
			continue
		}
		attrs, ok := out[d.BookingID]
		if !ok {
			attrs = Attributes{}
			out[d.BookingID] = attrs
		}
		attrs[d.Type] = Attribute{
			Type:       d.Type,
			Code:       d.Code,
			CreatedAt:  d.CreatedAt,
			CreatedBy:  d.CreatedBy,
			ModifiedAt: d.ModifiedAt,
			ModifiedBy: d.ModifiedBy,
		}
	}
	return out, nil
}
