package domain

import (
	"strings"
	"time"
)

// Trimmed returns a copy with surrounding whitespace removed from every field
func (d ExtractedData) Trimmed() ExtractedData {
	return ExtractedData{
		IDNumber:      strings.TrimSpace(d.IDNumber),
		LastName:      strings.TrimSpace(d.LastName),
		FirstName:     strings.TrimSpace(d.FirstName),
		MiddleInitial: strings.TrimSpace(d.MiddleInitial),
		Street:        strings.TrimSpace(d.Street),
		City:          strings.TrimSpace(d.City),
		State:         strings.TrimSpace(d.State),
		ZipCode:       strings.TrimSpace(d.ZipCode),
		Sex:           strings.TrimSpace(d.Sex),
		DateOfBirth:   strings.TrimSpace(d.DateOfBirth),
	}
}

// ChangedFields lists the JSON names of fields that differ between d and next
func (d ExtractedData) ChangedFields(next ExtractedData) []string {
	var changed []string
	pairs := []struct {
		name      string
		old, next string
	}{
		{"idNumber", d.IDNumber, next.IDNumber},
		{"lastName", d.LastName, next.LastName},
		{"firstName", d.FirstName, next.FirstName},
		{"middleInitial", d.MiddleInitial, next.MiddleInitial},
		{"street", d.Street, next.Street},
		{"city", d.City, next.City},
		{"state", d.State, next.State},
		{"zipCode", d.ZipCode, next.ZipCode},
		{"sex", d.Sex, next.Sex},
		{"dateOfBirth", d.DateOfBirth, next.DateOfBirth},
	}
	for _, p := range pairs {
		if p.old != p.next {
			changed = append(changed, p.name)
		}
	}
	return changed
}

// manualEditFields are the fields whose change marks a record as manually edited
var manualEditFields = map[string]bool{
	"idNumber":  true,
	"firstName": true,
	"lastName":  true,
	"street":    true,
}

// Apply replaces the record's editable content with req and returns the changed fields.
// LastModified is always refreshed. IsManuallyEdited is set once any of
// idNumber, firstName, lastName or street changes and is never cleared.
func (r *Record) Apply(req *SaveRequest, now time.Time) []string {
	next := req.ExtractedData.Trimmed()
	changed := r.ExtractedData.ChangedFields(next)

	for _, f := range changed {
		if manualEditFields[f] {
			r.IsManuallyEdited = true
			break
		}
	}

	r.ExtractedData = next
	r.Confidence = req.Confidence
	if src := req.Source(); src != "" {
		r.SourceFileName = src
	}
	r.LastModified = StorageTime(now)

	return changed
}
