package domain

import (
	"time"
)

// ExtractedData holds the ten identity fields read from a document.
// The same struct carries OCR output, the review form body and the stored columns.
type ExtractedData struct {
	IDNumber      string `json:"idNumber" db:"id_number" validate:"max=50"`
	LastName      string `json:"lastName" db:"last_name" validate:"required,notblank,max=100"`
	FirstName     string `json:"firstName" db:"first_name" validate:"required,notblank,max=100"`
	MiddleInitial string `json:"middleInitial" db:"middle_initial" validate:"omitempty,len=1,alpha"`
	Street        string `json:"street" db:"street" validate:"max=200"`
	City          string `json:"city" db:"city" validate:"max=100"`
	State         string `json:"state" db:"state" validate:"max=50"`
	ZipCode       string `json:"zipCode" db:"zip_code" validate:"omitempty,uszip"`
	Sex           string `json:"sex" db:"sex" validate:"omitempty,oneof=M F Male Female"`
	DateOfBirth   string `json:"dateOfBirth" db:"date_of_birth" validate:"omitempty,dob"`
}

// Extraction is what the OCR step returns for review
type Extraction struct {
	ExtractedData
	Confidence *float64 `json:"confidence,omitempty"`
}

// Record is a persisted identity record
type Record struct {
	ID string `db:"id"`
	ExtractedData

	Confidence       *float64  `db:"confidence"`
	SourceFileName   string    `db:"source_file_name"`
	ExtractedAt      time.Time `db:"extracted_at"`
	LastModified     time.Time `db:"last_modified"`
	IsManuallyEdited bool      `db:"is_manually_edited"`
}

// Metadata is the non-identity part of a record in API responses
type Metadata struct {
	Confidence       *float64  `json:"confidence,omitempty"`
	SourceFileName   string    `json:"sourceFileName,omitempty"`
	ExtractedAt      time.Time `json:"extractedAt"`
	LastModified     time.Time `json:"lastModified"`
	IsManuallyEdited bool      `json:"isManuallyEdited"`
}

// RecordResponse is the API representation of a Record
type RecordResponse struct {
	ID            string        `json:"id"`
	ExtractedData ExtractedData `json:"extractedData"`
	Metadata      Metadata      `json:"metadata"`
}

// Response converts the record into its API shape
func (r *Record) Response() RecordResponse {
	return RecordResponse{
		ID:            r.ID,
		ExtractedData: r.ExtractedData,
		Metadata: Metadata{
			Confidence:       r.Confidence,
			SourceFileName:   r.SourceFileName,
			ExtractedAt:      r.ExtractedAt,
			LastModified:     r.LastModified,
			IsManuallyEdited: r.IsManuallyEdited,
		},
	}
}

// Responses converts a slice of records
func Responses(records []*Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, r.Response())
	}
	return out
}

// SaveRequest is the body of the save and update endpoints
type SaveRequest struct {
	ExtractedData
	Confidence     *float64 `json:"confidence" validate:"omitempty,gte=0,lte=1"`
	SourceFileName string   `json:"sourceFileName" validate:"max=255"`
	// FileName is accepted as an alias because the upload response names it that way
	FileName string `json:"fileName" validate:"max=255"`
}

// Source returns the source file name, preferring sourceFileName
func (r *SaveRequest) Source() string {
	if r.SourceFileName != "" {
		return r.SourceFileName
	}
	return r.FileName
}

// StorageTime converts t to UTC at the microsecond precision Postgres keeps,
// so a returned record matches what a later read yields
func StorageTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// NewRecord builds a fresh record from a validated save request
func NewRecord(req *SaveRequest, now time.Time) *Record {
	now = StorageTime(now)
	return &Record{
		ID:               NewID(now),
		ExtractedData:    req.ExtractedData.Trimmed(),
		Confidence:       req.Confidence,
		SourceFileName:   req.Source(),
		ExtractedAt:      now,
		LastModified:     now,
		IsManuallyEdited: false,
	}
}

// UploadResult is returned by the upload endpoint
type UploadResult struct {
	ExtractedData Extraction `json:"extractedData"`
	FileName      string     `json:"fileName"`
	FileSize      int64      `json:"fileSize"`
	MimeType      string     `json:"mimeType"`
}
