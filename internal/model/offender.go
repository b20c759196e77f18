package model

import "time"

// Person is the physical individual behind one or more offender identity
// records.  The legacy store links alias identities through a shared root
// offender id; Person makes that grouping explicit so bookings are always
// gathered across every identity of the same individual.
//
// Fields:
//  OffenderNo     – external display id the caller asked for (e.g. A1234AA).
//  RootOffenderID – offenders.root_offender_id shared by all identities.
//  Identities     – every offender row under the root, each owning bookings.
type Person struct {
    OffenderNo     string
    RootOffenderID uint64
    Identities     []Identity
}

// Bookings flattens the bookings of every identity into one slice.  The
// order follows storage order and carries no meaning; callers that need a
// stable order must run it through the booking selector.
func (p *Person) Bookings() []Booking {
    var out []Booking
    for _, id := range p.Identities {
        out = append(out, id.Bookings...)
    }
    return out
}

// Identity is a single offender record: the primary record or an alias.
type Identity struct {
    OffenderID uint64    // offenders.offender_id
    OffenderNo string    // offenders.offender_id_display
    LastName   string    // offenders.last_name
    FirstName  string    // offenders.first_name
    Bookings   []Booking // bookings recorded against this identity
}

// Booking is one period of custody.  EndDate is nil while the booking is
// open; it is set on release or merge.
type Booking struct {
    ID         uint64     // offender_bookings.offender_book_id
    OffenderID uint64     // offender_bookings.offender_id
    Sequence   int        // offender_bookings.booking_seq (1 = most recent)
    StartTime  time.Time  // offender_bookings.booking_begin_date
    EndDate    *time.Time // offender_bookings.booking_end_date (nullable)
    Active     bool       // offender_bookings.active_flag = 'Y'
}

// Closed reports whether the booking has an end date.
func (b Booking) Closed() bool { return b.EndDate != nil }
