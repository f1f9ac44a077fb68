package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/medflow/idscan/internal/idscan/domain"
	"github.com/medflow/idscan/pkg/errors"
)

// memoryRepo is an in-memory Repository
type memoryRepo struct {
	mu      sync.Mutex
	records map[string]*domain.Record
	calls   int
	err     error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: map[string]*domain.Record{}}
}

func (m *memoryRepo) Create(ctx context.Context, rec *domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *memoryRepo) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	rec, ok := m.records[id]
	if !ok {
		return nil, errors.NotFound("record")
	}
	cp := *rec
	return &cp, nil
}

func (m *memoryRepo) sorted() []*domain.Record {
	out := make([]*domain.Record, 0, len(m.records))
	for _, r := range m.records {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExtractedAt.After(out[j].ExtractedAt) })
	return out
}

func (m *memoryRepo) List(ctx context.Context, page, limit int) ([]*domain.Record, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	all := m.sorted()
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (m *memoryRepo) Search(ctx context.Context, q string, limit int) ([]*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.sorted(), nil
}

func (m *memoryRepo) Update(ctx context.Context, id string, fn func(*domain.Record) error) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	rec, ok := m.records[id]
	if !ok {
		return nil, errors.NotFound("record")
	}
	cp := *rec
	if err := fn(&cp); err != nil {
		return nil, err
	}
	m.records[id] = &cp
	out := cp
	return &out, nil
}

// recordingEvents captures published events
type recordingEvents struct {
	created []string
	updated map[string][]string
}

func (e *recordingEvents) PublishRecordCreated(ctx context.Context, rec *domain.Record) {
	e.created = append(e.created, rec.ID)
}

func (e *recordingEvents) PublishRecordUpdated(ctx context.Context, rec *domain.Record, changed []string) {
	if e.updated == nil {
		e.updated = map[string][]string{}
	}
	e.updated[rec.ID] = changed
}

// fakeExtractor returns a fixed extraction and remembers what it was sent
type fakeExtractor struct {
	result   *domain.Extraction
	err      error
	calls    int
	mimeType string
	size     int
}

func (f *fakeExtractor) Extract(ctx context.Context, image []byte, mimeType string) (*domain.Extraction, error) {
	f.calls++
	f.mimeType = mimeType
	f.size = len(image)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeConverter writes a PNG next to the source, the way the real converter writes a JPEG
type fakeConverter struct {
	err    error
	output string
}

func (f *fakeConverter) ToJPEG(ctx context.Context, src string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.output = src + ".converted.jpg"
	if err := os.WriteFile(f.output, pngBytes(nil, 8, 8), 0o600); err != nil {
		return "", err
	}
	return f.output, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil && t != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// heicBytes is just enough of an ISO-BMFF header to sniff as image/heic
func heicBytes() []byte {
	b := []byte{0x00, 0x00, 0x00, 0x18}
	b = append(b, []byte("ftypheic")...)
	b = append(b, 0x00, 0x00, 0x00, 0x00)
	b = append(b, []byte("mif1heic")...)
	return append(b, make([]byte, 64)...)
}
