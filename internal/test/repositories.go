package test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
	"github.com/polkiloo/storepay/internal/domain/repository"
)

// ErrStub is the default failure injected by stubs.
var ErrStub = errors.New("stub failure")

// OrderRepositoryStub stores orders in-memory with optimistic versioning.
type OrderRepositoryStub struct {
	mu     sync.Mutex
	orders map[string]*model.Order

	CreateErr error
	GetErr    error
	LookupErr error
	UpdateErr error
	// FailUpdates makes that many upcoming updates return ErrStub.
	FailUpdates int
	// DropUpdates makes that many upcoming updates report success without storing.
	DropUpdates int
	// ConflictUpdates makes that many upcoming updates return ErrConflict.
	ConflictUpdates int

	UpdateCalls int
	// SuffixQueries records every phone suffix looked up.
	SuffixQueries []string
}

// NewOrderRepositoryStub constructs stub repository seeded with orders.
func NewOrderRepositoryStub(orders ...*model.Order) *OrderRepositoryStub {
	s := &OrderRepositoryStub{orders: make(map[string]*model.Order)}
	for _, o := range orders {
		s.Put(o)
	}
	return s
}

// Put stores a copy of the order, assigning version 1 when unset.
func (s *OrderRepositoryStub) Put(order *model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orders == nil {
		s.orders = make(map[string]*model.Order)
	}
	if order.Version == 0 {
		order.Version = 1
	}
	s.orders[order.ID] = CloneOrder(order)
}

// Stored returns a copy of the persisted order or nil.
func (s *OrderRepositoryStub) Stored(id string) *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		return CloneOrder(o)
	}
	return nil
}

// Len reports how many orders are stored.
func (s *OrderRepositoryStub) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// Create stores new order unless id or reference is taken.
func (s *OrderRepositoryStub) Create(_ context.Context, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if s.orders == nil {
		s.orders = make(map[string]*model.Order)
	}
	for _, o := range s.orders {
		if o.ID == order.ID || o.Reference == order.Reference {
			return domainErrors.ErrAlreadyExists
		}
	}
	order.Version = 1
	s.orders[order.ID] = CloneOrder(order)
	return nil
}

// GetByID fetches order or returns not found.
func (s *OrderRepositoryStub) GetByID(_ context.Context, id string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	if o, ok := s.orders[id]; ok {
		return CloneOrder(o), nil
	}
	return nil, domainErrors.ErrNotFound
}

// GetByCorrelation returns the newest order carrying either gateway id.
func (s *OrderRepositoryStub) GetByCorrelation(_ context.Context, merchantRequestID, checkoutRequestID string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LookupErr != nil {
		return nil, s.LookupErr
	}
	var found *model.Order
	for _, o := range s.sorted() {
		c := o.Correlation
		if c == nil {
			continue
		}
		if (merchantRequestID != "" && c.MerchantRequestID == merchantRequestID) ||
			(checkoutRequestID != "" && c.CheckoutRequestID == checkoutRequestID) {
			found = o
			break
		}
	}
	if found == nil {
		return nil, domainErrors.ErrNotFound
	}
	return CloneOrder(found), nil
}

// GetByReference fetches order by its customer-facing reference.
func (s *OrderRepositoryStub) GetByReference(_ context.Context, reference string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LookupErr != nil {
		return nil, s.LookupErr
	}
	for _, o := range s.orders {
		if o.Reference == reference {
			return CloneOrder(o), nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// ListMobileMoneyByPhoneSuffix returns mobile money orders, newest first.
func (s *OrderRepositoryStub) ListMobileMoneyByPhoneSuffix(_ context.Context, suffix string) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LookupErr != nil {
		return nil, s.LookupErr
	}
	s.SuffixQueries = append(s.SuffixQueries, suffix)
	var out []model.Order
	if suffix == "" {
		return out, nil
	}
	for _, o := range s.sorted() {
		if o.PaymentMethod == model.PaymentMethodMobileMoney && strings.HasSuffix(o.Phone, suffix) {
			out = append(out, *CloneOrder(o))
		}
	}
	return out, nil
}

// Update writes the order when its version matches the stored one.
func (s *OrderRepositoryStub) Update(_ context.Context, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdateCalls++
	switch {
	case s.FailUpdates > 0:
		s.FailUpdates--
		return ErrStub
	case s.UpdateErr != nil:
		return s.UpdateErr
	case s.ConflictUpdates > 0:
		s.ConflictUpdates--
		return domainErrors.ErrConflict
	}
	stored, ok := s.orders[order.ID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if stored.Version != order.Version {
		return domainErrors.ErrConflict
	}
	order.Version++
	if s.DropUpdates > 0 {
		s.DropUpdates--
		return nil
	}
	s.orders[order.ID] = CloneOrder(order)
	return nil
}

func (s *OrderRepositoryStub) sorted() []*model.Order {
	out := make([]*model.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// CloneOrder deep-copies an order so stubs never share state with callers.
func CloneOrder(o *model.Order) *model.Order {
	c := *o
	c.Items = append([]model.LineItem(nil), o.Items...)
	c.StatusHistory = append([]model.StatusEntry(nil), o.StatusHistory...)
	if o.Correlation != nil {
		corr := *o.Correlation
		if o.Correlation.ResultCode != nil {
			code := *o.Correlation.ResultCode
			corr.ResultCode = &code
		}
		corr.InitiationResponse = append([]byte(nil), o.Correlation.InitiationResponse...)
		c.Correlation = &corr
	}
	return &c
}

// RecoveryRepositoryStub keeps recovery jobs in-memory.
type RecoveryRepositoryStub struct {
	mu   sync.Mutex
	jobs map[string]*model.RecoveryJob

	EnqueueErr error
	ClaimErr   error
	ResolveErr error
	UpdateErr  error
}

// NewRecoveryRepositoryStub constructs an empty job ledger.
func NewRecoveryRepositoryStub() *RecoveryRepositoryStub {
	return &RecoveryRepositoryStub{jobs: make(map[string]*model.RecoveryJob)}
}

// Jobs returns copies of every job ordered by creation.
func (s *RecoveryRepositoryStub) Jobs() []model.RecoveryJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RecoveryJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, cloneJob(j))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Enqueue stores a new job unless its id is taken.
func (s *RecoveryRepositoryStub) Enqueue(_ context.Context, job *model.RecoveryJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.EnqueueErr != nil {
		return s.EnqueueErr
	}
	if s.jobs == nil {
		s.jobs = make(map[string]*model.RecoveryJob)
	}
	if _, ok := s.jobs[job.ID]; ok {
		return domainErrors.ErrAlreadyExists
	}
	c := cloneJob(job)
	s.jobs[job.ID] = &c
	return nil
}

// GetByID fetches a job or returns not found.
func (s *RecoveryRepositoryStub) GetByID(_ context.Context, id string) (*model.RecoveryJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	c := cloneJob(j)
	return &c, nil
}

// ClaimDue leases due pending jobs that are not leased already.
func (s *RecoveryRepositoryStub) ClaimDue(_ context.Context, now time.Time, limit int, lease time.Duration) ([]model.RecoveryJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ClaimErr != nil {
		return nil, s.ClaimErr
	}
	var due []*model.RecoveryJob
	for _, j := range s.jobs {
		if j.Status != model.RecoveryStatusPending || j.NextAttemptAt.After(now) {
			continue
		}
		if j.LockedUntil != nil && j.LockedUntil.After(now) {
			continue
		}
		due = append(due, j)
	}
	sort.Slice(due, func(i, k int) bool { return due[i].NextAttemptAt.Before(due[k].NextAttemptAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	out := make([]model.RecoveryJob, 0, len(due))
	for _, j := range due {
		until := now.Add(lease)
		j.LockedUntil = &until
		out = append(out, cloneJob(j))
	}
	return out, nil
}

func (s *RecoveryRepositoryStub) mutate(id string, fn func(*model.RecoveryJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	j, ok := s.jobs[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	fn(j)
	return nil
}

// Resolve marks job resolved.
func (s *RecoveryRepositoryStub) Resolve(_ context.Context, id string, at time.Time) error {
	if s.ResolveErr != nil {
		return s.ResolveErr
	}
	return s.mutate(id, func(j *model.RecoveryJob) {
		j.Status = model.RecoveryStatusResolved
		j.ResolvedAt = &at
		j.LockedUntil = nil
		j.UpdatedAt = at
	})
}

// Reschedule records a failed attempt.
func (s *RecoveryRepositoryStub) Reschedule(_ context.Context, id string, attempts int, next time.Time, lastError string, at time.Time) error {
	return s.mutate(id, func(j *model.RecoveryJob) {
		j.Attempts = attempts
		j.NextAttemptAt = next
		j.LastError = lastError
		j.LockedUntil = nil
		j.UpdatedAt = at
	})
}

// MarkExhausted retains the job for manual action.
func (s *RecoveryRepositoryStub) MarkExhausted(_ context.Context, id string, attempts int, lastError string, at time.Time) error {
	return s.mutate(id, func(j *model.RecoveryJob) {
		j.Status = model.RecoveryStatusExhausted
		j.Attempts = attempts
		j.LastError = lastError
		j.LockedUntil = nil
		j.UpdatedAt = at
	})
}

// Requeue moves an exhausted job back to pending.
func (s *RecoveryRepositoryStub) Requeue(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if j.Status != model.RecoveryStatusExhausted {
		return domainErrors.ErrInvalidTransition
	}
	j.Status = model.RecoveryStatusPending
	j.NextAttemptAt = at
	j.LockedUntil = nil
	j.UpdatedAt = at
	return nil
}

// List returns jobs with the given status, newest first.
func (s *RecoveryRepositoryStub) List(_ context.Context, status model.RecoveryStatus, limit int) ([]model.RecoveryJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RecoveryJob
	for _, j := range s.jobs {
		if status == "" || j.Status == status {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneJob(j *model.RecoveryJob) model.RecoveryJob {
	c := *j
	c.Payload = append([]byte(nil), j.Payload...)
	if j.LockedUntil != nil {
		t := *j.LockedUntil
		c.LockedUntil = &t
	}
	if j.ResolvedAt != nil {
		t := *j.ResolvedAt
		c.ResolvedAt = &t
	}
	return c
}

var (
	_ repository.OrderRepository    = (*OrderRepositoryStub)(nil)
	_ repository.RecoveryRepository = (*RecoveryRepositoryStub)(nil)
)

// StoreStub bundles in-memory repositories behind the storage port.
type StoreStub struct {
	OrdersRepo *OrderRepositoryStub
	JobsRepo   *RecoveryRepositoryStub
	HealthErr  error
	MigrateErr error
	Migrated   int
	Closed     bool
}

// NewStoreStub constructs a store with empty repositories.
func NewStoreStub() *StoreStub {
	return &StoreStub{OrdersRepo: NewOrderRepositoryStub(), JobsRepo: NewRecoveryRepositoryStub()}
}

// Orders returns the order repository stub.
func (s *StoreStub) Orders() repository.OrderRepository { return s.OrdersRepo }

// RecoveryJobs returns the recovery repository stub.
func (s *StoreStub) RecoveryJobs() repository.RecoveryRepository { return s.JobsRepo }

// Migrate counts invocations.
func (s *StoreStub) Migrate(context.Context) error {
	s.Migrated++
	return s.MigrateErr
}

// HealthCheck reports the configured error.
func (s *StoreStub) HealthCheck(context.Context) error { return s.HealthErr }

// Close marks the store closed.
func (s *StoreStub) Close() { s.Closed = true }

var _ repository.Store = (*StoreStub)(nil)
