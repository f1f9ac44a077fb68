package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() *SaveRequest {
	return &SaveRequest{
		ExtractedData: ExtractedData{
			IDNumber:    "D1234567",
			LastName:    "Doe",
			FirstName:   "Jane",
			Street:      "1 Main St",
			City:        "Springfield",
			State:       "IL",
			ZipCode:     "62701",
			Sex:         "F",
			DateOfBirth: "01/02/1990",
		},
		SourceFileName: "license.jpg",
	}
}

func TestNewID(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	id := NewID(now)

	assert.Len(t, id, 24)
	assert.True(t, IsValidID(id))
	assert.NotEqual(t, id, NewID(now))

	ts, ok := IDTime(id)
	require.True(t, ok)
	assert.Equal(t, now, ts)
}

func TestIsValidID(t *testing.T) {
	assert.True(t, IsValidID("65a1b2c3d4e5f60718293a4b"))
	assert.False(t, IsValidID("xyz"))
	assert.False(t, IsValidID("65a1b2c3d4e5f60718293a4"))
	assert.False(t, IsValidID("65a1b2c3d4e5f60718293a4g"))
}

func TestIsValidZip(t *testing.T) {
	tests := map[string]bool{
		"12345":      true,
		"12345-6789": true,
		"1234":       false,
		"123456":     false,
		"12345-678":  false,
		"abcde":      false,
	}
	for zip, want := range tests {
		assert.Equal(t, want, IsValidZip(zip), zip)
	}
}

func TestIsValidDateOfBirth(t *testing.T) {
	assert.True(t, IsValidDateOfBirth("1/2/1990"))
	assert.True(t, IsValidDateOfBirth("12/31/1990"))
	assert.True(t, IsValidDateOfBirth("1990-12-31"))
	assert.False(t, IsValidDateOfBirth("1990/12/31"))
	assert.False(t, IsValidDateOfBirth("Dec 31 1990"))
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name              string
		page, limit       int
		limitSet          bool
		wantPage, wantLim int
	}{
		{"defaults", 0, 0, false, 1, 10},
		{"negative page", -3, 20, true, 1, 20},
		{"zero limit clamps up", 2, 0, true, 2, 1},
		{"large limit clamps down", 1, 1000, true, 1, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit := NormalizePage(tt.page, tt.limit, tt.limitSet)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLim, limit)
		})
	}
}

func TestNewRecord(t *testing.T) {
	req := sampleRequest()
	req.LastName = "  Doe "
	now := time.Now()

	rec := NewRecord(req, now)

	assert.True(t, IsValidID(rec.ID))
	assert.Equal(t, "Doe", rec.LastName)
	assert.Equal(t, "license.jpg", rec.SourceFileName)
	assert.False(t, rec.IsManuallyEdited)
	assert.Equal(t, rec.ExtractedAt, rec.LastModified)
}

func TestRecord_TimestampsKeepMicrosecondPrecision(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	created := time.Date(2024, 1, 2, 3, 4, 5, 123456789, berlin)

	rec := NewRecord(sampleRequest(), created)
	assert.Equal(t, 123456000, rec.ExtractedAt.Nanosecond())
	assert.Equal(t, time.UTC, rec.ExtractedAt.Location())
	assert.Equal(t, time.Date(2024, 1, 2, 2, 4, 5, 123456000, time.UTC), rec.ExtractedAt)

	edited := created.Add(time.Minute + 999*time.Nanosecond)
	req := sampleRequest()
	req.FirstName = "Janet"
	rec.Apply(req, edited)
	assert.Equal(t, 123456000, rec.LastModified.Nanosecond())
	assert.Equal(t, time.Date(2024, 1, 2, 2, 5, 5, 123456000, time.UTC), rec.LastModified)
}

func TestRecord_Apply_ManualEditRule(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*SaveRequest)
		wantEdited bool
		wantFields []string
	}{
		{"street change", func(r *SaveRequest) { r.Street = "2 Oak Ave" }, true, []string{"street"}},
		{"first name change", func(r *SaveRequest) { r.FirstName = "Janet" }, true, []string{"firstName"}},
		{"id number change", func(r *SaveRequest) { r.IDNumber = "X9" }, true, []string{"idNumber"}},
		{"city only", func(r *SaveRequest) { r.City = "Chicago" }, false, []string{"city"}},
		{"whitespace only", func(r *SaveRequest) { r.LastName = " Doe " }, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := time.Now().Add(-time.Hour)
			rec := NewRecord(sampleRequest(), created)

			req := sampleRequest()
			tt.mutate(req)
			changed := rec.Apply(req, time.Now())

			assert.Equal(t, tt.wantEdited, rec.IsManuallyEdited)
			assert.Equal(t, tt.wantFields, changed)
			assert.True(t, rec.LastModified.After(rec.ExtractedAt))
		})
	}
}

func TestRecord_Apply_NeverFlipsBack(t *testing.T) {
	rec := NewRecord(sampleRequest(), time.Now())

	edited := sampleRequest()
	edited.Street = "2 Oak Ave"
	rec.Apply(edited, time.Now())
	require.True(t, rec.IsManuallyEdited)

	rec.Apply(sampleRequest(), time.Now())
	assert.True(t, rec.IsManuallyEdited)
}

func TestSaveRequest_FileNameAlias(t *testing.T) {
	var req SaveRequest
	require.NoError(t, json.Unmarshal([]byte(`{"lastName":"Doe","firstName":"J","fileName":"a.png"}`), &req))
	assert.Equal(t, "Doe", req.LastName)
	assert.Equal(t, "a.png", req.Source())
}

func TestRecord_Response(t *testing.T) {
	rec := NewRecord(sampleRequest(), time.Now())
	body, err := json.Marshal(rec.Response())
	require.NoError(t, err)

	s := string(body)
	assert.Contains(t, s, `"extractedData":{"idNumber":"D1234567"`)
	assert.Contains(t, s, `"isManuallyEdited":false`)
	assert.Contains(t, s, `"sourceFileName":"license.jpg"`)
}
