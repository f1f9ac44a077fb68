package testutil

import (
	"context"
	"database/sql/driver"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/medflow/idscan/internal/idscan/domain"
	"github.com/medflow/idscan/pkg/database"
	"github.com/medflow/idscan/pkg/logger"
)

// MockDB is a sqlmock connection already wrapped as a *database.DB.
// Query strings given to the Expect helpers are matched literally.
//
//	db := testutil.NewMockDB(t)
//	defer db.Close()
//	db.ExpectQuery("FROM identity_records WHERE id = $1").WillReturnRows(testutil.RecordRows(rec))
//	repo := repository.NewRecordRepository(db.Wrapped)
type MockDB struct {
	DB      *sqlx.DB
	Wrapped *database.DB
	Mock    sqlmock.Sqlmock
}

// NewMockDB opens a sqlmock connection for repository tests
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	db := sqlx.NewDb(raw, "postgres")
	return &MockDB{DB: db, Wrapped: database.Wrap(db, logger.Nop()), Mock: mock}
}

func (m *MockDB) Close() error { return m.DB.Close() }

func (m *MockDB) ExpectQuery(query string) *sqlmock.ExpectedQuery {
	return m.Mock.ExpectQuery(regexp.QuoteMeta(query))
}

func (m *MockDB) ExpectExec(query string) *sqlmock.ExpectedExec {
	return m.Mock.ExpectExec(regexp.QuoteMeta(query))
}

func (m *MockDB) ExpectBegin() *sqlmock.ExpectedBegin       { return m.Mock.ExpectBegin() }
func (m *MockDB) ExpectCommit() *sqlmock.ExpectedCommit     { return m.Mock.ExpectCommit() }
func (m *MockDB) ExpectRollback() *sqlmock.ExpectedRollback { return m.Mock.ExpectRollback() }

// ExpectationsWereMet fails t if any expectation is still pending
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	if err := m.Mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// MockRows starts an empty result set
func MockRows(columns ...string) *sqlmock.Rows {
	return sqlmock.NewRows(columns)
}

// RecordColumns is the identity_records column order the repository selects
var RecordColumns = []string{
	"id", "id_number", "last_name", "first_name", "middle_initial",
	"street", "city", "state", "zip_code", "sex", "date_of_birth",
	"confidence", "source_file_name", "extracted_at", "last_modified", "is_manually_edited",
}

// RecordRows renders recs as identity_records rows
func RecordRows(recs ...*domain.Record) *sqlmock.Rows {
	rows := MockRows(RecordColumns...)
	for _, r := range recs {
		var confidence driver.Value
		if r.Confidence != nil {
			confidence = *r.Confidence
		}
		rows.AddRow(r.ID, r.IDNumber, r.LastName, r.FirstName, r.MiddleInitial,
			r.Street, r.City, r.State, r.ZipCode, r.Sex, r.DateOfBirth,
			confidence, r.SourceFileName, r.ExtractedAt, r.LastModified, r.IsManuallyEdited)
	}
	return rows
}

// AnyTime matches any time.Time argument
type AnyTime struct{}

func (AnyTime) Match(v driver.Value) bool {
	_, ok := v.(time.Time)
	return ok
}

// AnyRecordID matches a generated record id, which is always lowercase hex
type AnyRecordID struct{}

func (AnyRecordID) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && domain.IsValidID(s) && s == strings.ToLower(s)
}

// PublishedEvent is one call captured by MockPublisher
type PublishedEvent struct {
	Type    string
	Payload interface{}
}

// MockPublisher captures events instead of sending them. Set Err to make Publish fail.
type MockPublisher struct {
	mu              sync.Mutex
	PublishedEvents []PublishedEvent
	Err             error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(_ context.Context, eventType string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishedEvents = append(m.PublishedEvents, PublishedEvent{Type: eventType, Payload: payload})
	return m.Err
}

// Types lists the captured event types in publish order
func (m *MockPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.PublishedEvents))
	for i, e := range m.PublishedEvents {
		types[i] = e.Type
	}
	return types
}

// AssertEventPublished fails t unless an event of eventType was captured
func (m *MockPublisher) AssertEventPublished(t *testing.T, eventType string) {
	t.Helper()
	for _, typ := range m.Types() {
		if typ == eventType {
			return
		}
	}
	t.Errorf("expected event %q to be published, got %v", eventType, m.Types())
}

// AssertNoEventsPublished fails t if anything was captured
func (m *MockPublisher) AssertNoEventsPublished(t *testing.T) {
	t.Helper()
	if types := m.Types(); len(types) > 0 {
		t.Errorf("expected no events, got %v", types)
	}
}

func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishedEvents = nil
}
