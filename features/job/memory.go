package job

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo mirrors PostgresRepo behaviour without a database. Used by tests
// and by dry-run deployments; call sites only ever see the Repository
// interface.
type MemoryRepo struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

func (r *MemoryRepo) Create(_ context.Context, j *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[j.ID]; exists {
		return ErrDuplicateID
	}

	now := r.now()
	j.CreatedAt = now
	j.UpdatedAt = now

	stored := *j
	r.jobs[j.ID] = &stored
	r.order = append(r.order, j.ID)
	return nil
}

func (r *MemoryRepo) Update(_ context.Context, id string, u Update) error {
	if u.IsZero() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	j, exists := r.jobs[id]
	if !exists {
		return ErrNotFound
	}

	if u.Status != nil {
		j.Status = *u.Status
	}
	if u.ResultSummary != nil {
		j.ResultSummary = *u.ResultSummary
	}
	if u.Payload != nil {
		j.Payload = append([]byte(nil), u.Payload...)
	}
	if u.Error != nil {
		j.Error = *u.Error
	}
	if u.NotificationStatus != nil {
		j.NotificationStatus = *u.NotificationStatus
	}
	if u.NotificationError != nil {
		j.NotificationError = *u.NotificationError
	}
	if u.NotificationSentAt != nil {
		t := *u.NotificationSentAt
		j.NotificationSentAt = &t
	}
	j.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, exists := r.jobs[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *j
	return &copied, nil
}

func (r *MemoryRepo) List(_ context.Context) ([]Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Most recently created first; the order slice breaks timestamp ties.
	jobs := make([]Job, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		if j, exists := r.jobs[r.order[i]]; exists {
			jobs = append(jobs, *j)
		}
	}
	return jobs, nil
}

func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Idempotent: deleting an absent id is not an error.
	delete(r.jobs, id)
	return nil
}

func (r *MemoryRepo) ExistsByHash(_ context.Context, hash string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if hash == "" {
		return false, nil
	}
	for _, j := range r.jobs {
		if j.ContentHash == hash {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs), nil
}
