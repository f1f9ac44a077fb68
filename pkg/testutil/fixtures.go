package testutil

import (
	"fmt"
	"sync"

	"github.com/medflow/idscan/internal/idscan/domain"
)

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	mu       sync.Mutex
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sequence++
	return f.sequence
}

// SaveRequest creates a valid save body with a unique id number
func (f *FixtureFactory) SaveRequest(opts ...func(*domain.SaveRequest)) *domain.SaveRequest {
	seq := f.nextSeq()
	confidence := 0.9

	req := &domain.SaveRequest{
		ExtractedData: domain.ExtractedData{
			IDNumber:      fmt.Sprintf("D%07d", seq),
			LastName:      "Doe",
			FirstName:     fmt.Sprintf("Jane%d", seq),
			MiddleInitial: "Q",
			Street:        fmt.Sprintf("%d Main St", seq),
			City:          "Springfield",
			State:         "IL",
			ZipCode:       "62701",
			Sex:           "F",
			DateOfBirth:   "01/02/1990",
		},
		Confidence:     &confidence,
		SourceFileName: fmt.Sprintf("license-%d.jpg", seq),
	}

	for _, opt := range opts {
		opt(req)
	}

	return req
}

// WithIDNumber sets the id number of a save request fixture
func WithIDNumber(id string) func(*domain.SaveRequest) {
	return func(r *domain.SaveRequest) {
		r.IDNumber = id
	}
}

// WithName sets first and last name of a save request fixture
func WithName(first, last string) func(*domain.SaveRequest) {
	return func(r *domain.SaveRequest) {
		r.FirstName = first
		r.LastName = last
	}
}

// WithZip sets the zip code of a save request fixture
func WithZip(zip string) func(*domain.SaveRequest) {
	return func(r *domain.SaveRequest) {
		r.ZipCode = zip
	}
}
