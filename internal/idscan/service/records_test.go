package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medflow/idscan/internal/idscan/domain"
	"github.com/medflow/idscan/pkg/errors"
	"github.com/medflow/idscan/pkg/logger"
	"github.com/medflow/idscan/pkg/testutil"
)

func newRecordService(t *testing.T) (*RecordService, *memoryRepo, *recordingEvents) {
	t.Helper()
	repo := newMemoryRepo()
	ev := &recordingEvents{}
	svc := NewRecordService(repo, ev, logger.Nop())
	return svc, repo, ev
}

func TestRecordService_SaveThenGet(t *testing.T) {
	svc, _, ev := newRecordService(t)
	ctx := context.Background()

	req := testutil.NewFixtureFactory().SaveRequest()
	req.FirstName = "  Jane  "

	saved, err := svc.Save(ctx, req)
	require.NoError(t, err)
	assert.True(t, domain.IsValidID(saved.ID))
	assert.False(t, saved.IsManuallyEdited)
	assert.Equal(t, saved.ExtractedAt, saved.LastModified)
	assert.Equal(t, []string{saved.ID}, ev.created)

	got, err := svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.FirstName)
	assert.Equal(t, saved.ExtractedData, got.ExtractedData)
}

func TestRecordService_SaveError(t *testing.T) {
	svc, repo, ev := newRecordService(t)
	repo.err = errors.Conflict("duplicate")

	_, err := svc.Save(context.Background(), testutil.NewFixtureFactory().SaveRequest())
	assert.True(t, errors.Is(err, errors.ErrConflict))
	assert.Empty(t, ev.created)
}

func TestRecordService_Get_InvalidIDSkipsRepository(t *testing.T) {
	svc, repo, _ := newRecordService(t)

	for _, id := range []string{"xyz", "", "6523a1f0aabbccddeeff001", "6523a1f0aabbccddeeff001g"} {
		_, err := svc.Get(context.Background(), id)
		code, status := statusOf(t, err)
		assert.Equal(t, "INVALID_ID", code, id)
		assert.Equal(t, http.StatusBadRequest, status, id)
	}
	assert.Zero(t, repo.calls)
}

func TestRecordService_Get_NotFound(t *testing.T) {
	svc, _, _ := newRecordService(t)

	_, err := svc.Get(context.Background(), "6523a1f0aabbccddeeff0011")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRecordService_Search(t *testing.T) {
	svc, repo, _ := newRecordService(t)

	tests := []struct {
		name    string
		q       string
		wantErr bool
	}{
		{name: "empty", q: "", wantErr: true},
		{name: "single character", q: "a", wantErr: true},
		{name: "padded single character", q: "  a  ", wantErr: true},
		{name: "two characters", q: "ab", wantErr: false},
		{name: "two multibyte characters", q: "äö", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := repo.calls
			_, err := svc.Search(context.Background(), tt.q)
			if tt.wantErr {
				code, status := statusOf(t, err)
				assert.Equal(t, "QUERY_TOO_SHORT", code)
				assert.Equal(t, http.StatusBadRequest, status)
				assert.Equal(t, before, repo.calls)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, before+1, repo.calls)
		})
	}
}

func TestRecordService_List(t *testing.T) {
	svc, _, _ := newRecordService(t)
	ctx := context.Background()
	fixtures := testutil.NewFixtureFactory()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		i := i
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		_, err := svc.Save(ctx, fixtures.SaveRequest())
		require.NoError(t, err)
	}

	items, total, err := svc.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 2)
	assert.True(t, items[0].ExtractedAt.After(items[1].ExtractedAt))
}

func TestRecordService_Update(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(r *domain.SaveRequest)
		wantEdited bool
		wantFields []string
	}{
		{
			name:       "street change marks manual edit",
			mutate:     func(r *domain.SaveRequest) { r.Street = "99 Elm St" },
			wantEdited: true,
			wantFields: []string{"street"},
		},
		{
			name:       "city change alone does not",
			mutate:     func(r *domain.SaveRequest) { r.City = "Chicago" },
			wantEdited: false,
			wantFields: []string{"city"},
		},
		{
			name:       "no change",
			mutate:     func(r *domain.SaveRequest) {},
			wantEdited: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, ev := newRecordService(t)
			ctx := context.Background()

			created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			svc.now = func() time.Time { return created }
			req := testutil.NewFixtureFactory().SaveRequest()
			saved, err := svc.Save(ctx, req)
			require.NoError(t, err)

			next := *req
			tt.mutate(&next)
			svc.now = func() time.Time { return created.Add(time.Minute) }

			updated, err := svc.Update(ctx, saved.ID, &next)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEdited, updated.IsManuallyEdited)
			assert.Equal(t, created.Add(time.Minute), updated.LastModified)
			assert.Equal(t, created, updated.ExtractedAt)
			assert.Equal(t, tt.wantFields, ev.updated[saved.ID])
		})
	}
}

func TestRecordService_Update_NeverClearsManualEdit(t *testing.T) {
	svc, _, _ := newRecordService(t)
	ctx := context.Background()

	req := testutil.NewFixtureFactory().SaveRequest()
	saved, err := svc.Save(ctx, req)
	require.NoError(t, err)

	edited := *req
	edited.LastName = "Smith"
	_, err = svc.Update(ctx, saved.ID, &edited)
	require.NoError(t, err)

	// revert to the original value
	rec, err := svc.Update(ctx, saved.ID, req)
	require.NoError(t, err)
	assert.True(t, rec.IsManuallyEdited)
}

func TestRecordService_Update_InvalidAndMissing(t *testing.T) {
	svc, repo, _ := newRecordService(t)
	req := testutil.NewFixtureFactory().SaveRequest()

	_, err := svc.Update(context.Background(), "nope", req)
	code, _ := statusOf(t, err)
	assert.Equal(t, "INVALID_ID", code)
	assert.Zero(t, repo.calls)

	_, err = svc.Update(context.Background(), "6523a1f0aabbccddeeff0011", req)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRecordService_NilEvents(t *testing.T) {
	svc := NewRecordService(newMemoryRepo(), nil, logger.Nop())
	_, err := svc.Save(context.Background(), testutil.NewFixtureFactory().SaveRequest())
	assert.NoError(t, err)
}
