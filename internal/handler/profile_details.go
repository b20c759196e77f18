// Package handler exposes the HTTP handlers of the profile details API.
// This file defines the read and upsert endpoints for an offender's
// physical-attribute profile.  Both resolve the offender's bookings fresh on
// every call; nothing here is cached.

package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/prisoner-profile-details/internal/middleware"
    "github.com/iliyamo/prisoner-profile-details/internal/service"
)

// ProfileDetailsService is the service surface these handlers call.
type ProfileDetailsService interface {
    GetProfileDetails(ctx context.Context, offenderNo string, q service.ProfileDetailsQuery) (*service.ProfileDetailsResult, error)
    UpsertProfileDetail(ctx context.Context, req service.UpsertRequest) (*service.UpsertResult, error)
}

// ProfileDetailsHandler serves GET and PUT /prisoners/:offenderNo/profile-details.
type ProfileDetailsHandler struct {
    Svc     ProfileDetailsService
    Timeout time.Duration // per-request deadline for store access; zero means none
    Logger  *zap.Logger
}

// NewProfileDetailsHandler constructs a handler and panics if svc is nil.
func NewProfileDetailsHandler(svc ProfileDetailsService, timeout time.Duration, logger *zap.Logger) *ProfileDetailsHandler {
    if svc == nil {
        panic("nil service passed to NewProfileDetailsHandler")
    }
    return &ProfileDetailsHandler{Svc: svc, Timeout: timeout, Logger: logger.Named("handler")}
}

// ProfileDetailResponse is one attribute of a booking.  Code is always
// present and is null when the value was recorded as unknown.
type ProfileDetailResponse struct {
    Type             string     `json:"type"`
    Code             *string    `json:"code"`
    CreateDateTime   time.Time  `json:"createDateTime"`
    CreatedBy        string     `json:"createdBy"`
    ModifiedDateTime *time.Time `json:"modifiedDateTime,omitempty"`
    ModifiedBy       *string    `json:"modifiedBy,omitempty"`
}

// BookingProfileDetailsResponse groups the attributes of one booking.
type BookingProfileDetailsResponse struct {
    BookingID      uint64                  `json:"bookingId"`
    StartDateTime  time.Time               `json:"startDateTime"`
    LatestBooking  bool                    `json:"latestBooking"`
    ProfileDetails []ProfileDetailResponse `json:"profileDetails"`
}

// PrisonerProfileDetailsResponse is the body of a successful read.
type PrisonerProfileDetailsResponse struct {
    OffenderNo string                          `json:"offenderNo"`
    Bookings   []BookingProfileDetailsResponse `json:"bookings"`
}

// UpsertProfileDetailsRequest is the body of a write.  An absent or null
// profileCode records the value as unknown.
type UpsertProfileDetailsRequest struct {
    ProfileType string  `json:"profileType"`
    ProfileCode *string `json:"profileCode"`
}

// UpsertProfileDetailsResponse reports which booking was written and
// whether a new record was created.
type UpsertProfileDetailsResponse struct {
    BookingID uint64 `json:"bookingId"`
    Created   bool   `json:"created"`
}

// GetProfileDetails returns the offender's sequence-1 attributes grouped by
// booking, newest booking first.  Optional query parameters:
//   profileTypes - comma separated and/or repeated; restricts the types returned
//   bookingId    - restricts the result to one booking
func (h *ProfileDetailsHandler) GetProfileDetails(c echo.Context) error {
    offenderNo := strings.TrimSpace(c.Param("offenderNo"))
    if offenderNo == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "offenderNo is required"})
    }
    q := service.ProfileDetailsQuery{Types: service.ParseProfileTypes(c.QueryParams()["profileTypes"])}
    if raw := c.QueryParam("bookingId"); raw != "" {
        id, err := strconv.ParseUint(raw, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bookingId"})
        }
        q.BookingID = &id
    }

    ctx, cancel := h.requestContext(c)
    defer cancel()
    res, err := h.Svc.GetProfileDetails(ctx, offenderNo, q)
    if err != nil {
        return h.writeError(c, err)
    }

    out := PrisonerProfileDetailsResponse{
        OffenderNo: res.OffenderNo,
        Bookings:   make([]BookingProfileDetailsResponse, 0, len(res.Bookings)),
    }
    for _, b := range res.Bookings {
        details := make([]ProfileDetailResponse, 0, len(b.Attributes))
        for _, a := range b.Attributes {
            details = append(details, ProfileDetailResponse{
                Type:             a.Type,
                Code:             a.Code,
                CreateDateTime:   a.CreatedAt,
                CreatedBy:        a.CreatedBy,
                ModifiedDateTime: a.ModifiedAt,
                ModifiedBy:       a.ModifiedBy,
            })
        }
        out.Bookings = append(out.Bookings, BookingProfileDetailsResponse{
            BookingID:      b.BookingID,
            StartDateTime:  b.StartDateTime,
            LatestBooking:  b.LatestBooking,
            ProfileDetails: details,
        })
    }
    return c.JSON(http.StatusOK, out)
}

// PutProfileDetails creates or updates one attribute on the offender's
// current booking.  The authenticated caller is recorded as the author.
func (h *ProfileDetailsHandler) PutProfileDetails(c echo.Context) error {
    offenderNo := strings.TrimSpace(c.Param("offenderNo"))
    if offenderNo == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "offenderNo is required"})
    }
    username, ok := middleware.CallerID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req UpsertProfileDetailsRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    req.ProfileType = strings.ToUpper(strings.TrimSpace(req.ProfileType))
    if req.ProfileType == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "profileType is required"})
    }

    ctx, cancel := h.requestContext(c)
    defer cancel()
    res, err := h.Svc.UpsertProfileDetail(ctx, service.UpsertRequest{
        OffenderNo:  offenderNo,
        ProfileType: req.ProfileType,
        Code:        req.ProfileCode,
        Username:    username,
    })
    if err != nil {
        return h.writeError(c, err)
    }
    return c.JSON(http.StatusOK, UpsertProfileDetailsResponse{BookingID: res.BookingID, Created: res.Created})
}

func (h *ProfileDetailsHandler) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
    if h.Timeout <= 0 {
        return context.WithCancel(c.Request().Context())
    }
    return context.WithTimeout(c.Request().Context(), h.Timeout)
}

// writeError maps classified service errors to 404/400 and everything else
// to a generic 500 whose cause is only logged.
func (h *ProfileDetailsHandler) writeError(c echo.Context, err error) error {
    switch service.KindOf(err) {
    case service.KindNotFound:
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case service.KindInvalidRequest:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    h.Logger.Error("profile details request failed",
        zap.String("method", c.Request().Method),
        zap.String("route", c.Path()),
        zap.Error(err))
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
