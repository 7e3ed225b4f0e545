package tool

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Sentinel errors for store operations.
var (
	ErrToolExists   = errors.New("tool already exists")
	ErrToolNotFound = errors.New("tool not found")
)

// Record is a stored tool configuration attached to a lesson.
type Record struct {
	ID        string    `json:"id"`
	LessonID  string    `json:"lesson_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Config    Config    `json:"config"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store provides CRUD operations for tool records.
type Store interface {
	List(ctx context.Context) ([]Record, error)
	ListByLesson(ctx context.Context, lessonID string) ([]Record, error)
	Get(ctx context.Context, id string) (Record, bool, error)
	Create(ctx context.Context, rec Record) error
	Update(ctx context.Context, rec Record) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// MemoryStore is an in-memory Store. Records are listed in creation order.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	items map[string]Record
}

// NewMemoryStore creates an empty in-memory tool store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Record)}
}

func (s *MemoryStore) List(ctx context.Context) ([]Record, error) {
	return s.list(ctx, func(Record) bool { return true })
}

func (s *MemoryStore) ListByLesson(ctx context.Context, lessonID string) ([]Record, error) {
	clean := strings.TrimSpace(lessonID)
	return s.list(ctx, func(rec Record) bool { return rec.LessonID == clean })
}

func (s *MemoryStore) list(ctx context.Context, keep func(Record) bool) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		rec := s.items[id]
		if keep(rec) {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[strings.TrimSpace(id)]
	if !ok {
		return Record{}, false, nil
	}
	return cloneRecord(rec), true, nil
}

func (s *MemoryStore) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		return errors.New("tool: record id is required")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[rec.ID]; exists {
		return ErrToolExists
	}
	s.items[rec.ID] = cloneRecord(rec)
	s.order = append(s.order, rec.ID)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[rec.ID]
	if !ok {
		return ErrToolNotFound
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = existing.CreatedAt
	}
	s.items[rec.ID] = cloneRecord(rec)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := strings.TrimSpace(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[clean]; !ok {
		return ErrToolNotFound
	}
	delete(s.items, clean)
	for i, existing := range s.order {
		if existing == clean {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func cloneRecord(rec Record) Record {
	rec.Config = rec.Config.Clone()
	return rec
}
