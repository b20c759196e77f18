package queue

import (
    "bytes"
    "encoding/json"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestHandleMessage_WritesAuditLine(t *testing.T) {
    ev := ProfileDetailChangedEvent{
        EventID:     "e-1",
        EventType:   EventProfileDetailCreated,
        OffenderNo:  "A1234AA",
        BookingID:   12,
        ProfileType: "BUILD",
        ChangedBy:   "SYNC_USER",
        OccurredAt:  "2026-01-02T03:04:05Z",
    }
    body, err := json.Marshal(ev)
    require.NoError(t, err)

    var buf bytes.Buffer
    require.NoError(t, HandleMessage(body, &buf))

    assert.Equal(t,
        "[2026-01-02T03:04:05Z] Profile detail created | offender_no=A1234AA | booking_id=12 | profile_type=BUILD | changed_by=SYNC_USER | event_id=e-1\n",
        buf.String())
}

func TestHandleMessage_UpdatedAction(t *testing.T) {
    body := []byte(`{"event_type":"PROFILE_DETAIL_UPDATED","offender_no":"A1234AA","booking_id":1,"profile_type":"SHOESIZE"}`)
    var buf bytes.Buffer
    require.NoError(t, HandleMessage(body, &buf))
    assert.Contains(t, buf.String(), "Profile detail updated")
}

func TestHandleMessage_Rejects(t *testing.T) {
    tests := []struct {
        name string
        body string
    }{
        {name: "not json", body: "{"},
        {name: "missing offender", body: `{"profile_type":"BUILD"}`},
        {name: "missing type", body: `{"offender_no":"A1234AA"}`},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            var buf bytes.Buffer
            assert.Error(t, HandleMessage([]byte(tt.body), &buf))
            assert.Empty(t, buf.String())
        })
    }
}

func TestEventCarriesNoValue(t *testing.T) {
    body, err := json.Marshal(ProfileDetailChangedEvent{OffenderNo: "A1234AA", ProfileType: "BUILD"})
    require.NoError(t, err)
    var fields map[string]interface{}
    require.NoError(t, json.Unmarshal(body, &fields))
    assert.NotContains(t, fields, "code")
    assert.NotContains(t, fields, "profile_code")
}
