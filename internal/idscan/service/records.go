package service

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/medflow/idscan/internal/idscan/domain"
	"github.com/medflow/idscan/pkg/errors"
	"github.com/medflow/idscan/pkg/logger"
)

// Repository is the persistence the record service needs.
// *repository.RecordRepository implements it.
type Repository interface {
	Create(ctx context.Context, rec *domain.Record) error
	GetByID(ctx context.Context, id string) (*domain.Record, error)
	List(ctx context.Context, page, limit int) ([]*domain.Record, int64, error)
	Search(ctx context.Context, q string, limit int) ([]*domain.Record, error)
	Update(ctx context.Context, id string, fn func(*domain.Record) error) (*domain.Record, error)
}

// EventPublisher announces record changes
type EventPublisher interface {
	PublishRecordCreated(ctx context.Context, rec *domain.Record)
	PublishRecordUpdated(ctx context.Context, rec *domain.Record, changed []string)
}

// RecordService handles saving and querying identity records
type RecordService struct {
	repo   Repository
	events EventPublisher
	now    func() time.Time
	log    *logger.Logger
}

// NewRecordService creates a new record service. events may be nil.
func NewRecordService(repo Repository, events EventPublisher, log *logger.Logger) *RecordService {
	return &RecordService{
		repo:   repo,
		events: events,
		now:    time.Now,
		log:    log.WithComponent("records"),
	}
}

// Save persists a reviewed record
func (s *RecordService) Save(ctx context.Context, req *domain.SaveRequest) (*domain.Record, error) {
	rec := domain.NewRecord(req, s.now())

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.log.WithRecord(rec.ID).Info().Msg("record saved")
	if s.events != nil {
		s.events.PublishRecordCreated(ctx, rec)
	}

	return rec, nil
}

// List returns one page of records, newest first, and the total count
func (s *RecordService) List(ctx context.Context, page, limit int) ([]*domain.Record, int64, error) {
	return s.repo.List(ctx, page, limit)
}

// Search matches q against id number, first and last name
func (s *RecordService) Search(ctx context.Context, q string) ([]*domain.Record, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < domain.SearchMinLength {
		return nil, errors.NewWithKey("QUERY_TOO_SHORT", "records.query_too_short", http.StatusBadRequest,
			map[string]string{"min": strconv.Itoa(domain.SearchMinLength)})
	}

	return s.repo.Search(ctx, q, domain.SearchMaxResults)
}

// Get returns a record by id
func (s *RecordService) Get(ctx context.Context, id string) (*domain.Record, error) {
	if !domain.IsValidID(id) {
		return nil, invalidID()
	}
	return s.repo.GetByID(ctx, id)
}

// Update replaces the identity fields of a record
func (s *RecordService) Update(ctx context.Context, id string, req *domain.SaveRequest) (*domain.Record, error) {
	if !domain.IsValidID(id) {
		return nil, invalidID()
	}

	var changed []string
	rec, err := s.repo.Update(ctx, id, func(r *domain.Record) error {
		changed = r.Apply(req, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithRecord(rec.ID).Info().
		Strs("changed_fields", changed).
		Bool("is_manually_edited", rec.IsManuallyEdited).
		Msg("record updated")
	if s.events != nil {
		s.events.PublishRecordUpdated(ctx, rec, changed)
	}

	return rec, nil
}

func invalidID() *errors.AppError {
	return errors.NewWithKey("INVALID_ID", "records.invalid_id", http.StatusBadRequest)
}
