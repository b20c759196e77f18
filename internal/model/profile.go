package model

import "time"

// CurrentProfileSeq is the only profile snapshot sequence that holds live
// attribute values.  Rows under higher sequences are legacy history.
const CurrentProfileSeq = 1

// ValueTypeCode marks a profile type whose values must come from the
// profile_codes table.  Any other value type is free text.
const ValueTypeCode = "CODE"

// MaxProfileCodeLength is the width of offender_profile_details.profile_code.
const MaxProfileCodeLength = 12

// ProfileType is a catalogue entry such as L_EYE_C or SHOESIZE.
type ProfileType struct {
    Type        string        `json:"type"`
    Category    string        `json:"category"`
    Description string        `json:"description"`
    ValueType   string        `json:"valueType"`
    Active      bool          `json:"active"`
    ListSeq     int           `json:"listSequence"`
    Codes       []ProfileCode `json:"codes,omitempty"`
}

// FreeText reports whether values of this type bypass the code table.
func (t ProfileType) FreeText() bool { return t.ValueType != ValueTypeCode }

// Code returns the catalogue code with the given value, if any.
func (t ProfileType) Code(code string) (ProfileCode, bool) {
    for _, c := range t.Codes {
        if c.Code == code {
            return c, true
        }
    }
    return ProfileCode{}, false
}

// ProfileCode is one permitted value of a coded profile type.
type ProfileCode struct {
    Code        string `json:"code"`
    Description string `json:"description"`
    Active      bool   `json:"active"`
    ListSeq     int    `json:"listSequence"`
}

// ProfileDetail is one attribute record: the value of a profile type for a
// booking under a given snapshot sequence.  A nil Code means the value was
// recorded as unknown, which is not the same as the record not existing.
//
// Fields:
//  BookingID      – offender_profile_details.offender_book_id
//  ProfileSeq     – offender_profile_details.profile_seq
//  Type           – offender_profile_details.profile_type
//  Code           – offender_profile_details.profile_code (nullable)
//  CreatedAt/By   – set by the service on first write
//  ModifiedAt/By  – set by the service on every later write
type ProfileDetail struct {
    BookingID  uint64
    ProfileSeq int
    Type       string
    Code       *string
    CreatedAt  time.Time
    CreatedBy  string
    ModifiedAt *time.Time
    ModifiedBy *string
}
