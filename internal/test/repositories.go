package test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
	"github.com/polkiloo/cryptostore/internal/domain/repository"
)

// UserRepositoryStub stores users in-memory for tests.
type UserRepositoryStub struct {
	Users map[string]*model.User
	ByID  map[int64]*model.User
	Next  int64
	Err   error
}

// NewUserRepositoryStub constructs stub repository with initialized maps.
func NewUserRepositoryStub() *UserRepositoryStub {
	return &UserRepositoryStub{
		Users: make(map[string]*model.User),
		ByID:  make(map[int64]*model.User),
		Next:  1,
	}
}

// Create registers user unless already exists or stub has explicit error.
func (s *UserRepositoryStub) Create(ctx context.Context, login, passwordHash string, role model.Role) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Users == nil {
		s.Users = make(map[string]*model.User)
	}
	if s.ByID == nil {
		s.ByID = make(map[int64]*model.User)
	}
	if _, exists := s.Users[login]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}
	if s.Next == 0 {
		s.Next = 1
	}
	user := &model.User{ID: s.Next, Login: login, PasswordHash: passwordHash, Role: role}
	s.Next++
	s.Users[login] = user
	s.ByID[user.ID] = user
	return user, nil
}

// GetByLogin fetches user by login or returns not found.
func (s *UserRepositoryStub) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.Users[login]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

// GetByID fetches user by identifier or returns not found.
func (s *UserRepositoryStub) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.ByID[id]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

// OrderRepositoryStub keeps orders in memory and applies status guards like
// the SQL implementation does.
type OrderRepositoryStub struct {
	mu     sync.Mutex
	Orders map[uuid.UUID]*model.Order
	Err    error

	MarkPaidCalls int
}

// NewOrderRepositoryStub constructs stub seeded with orders.
func NewOrderRepositoryStub(orders ...model.Order) *OrderRepositoryStub {
	s := &OrderRepositoryStub{Orders: make(map[uuid.UUID]*model.Order)}
	for i := range orders {
		o := orders[i]
		s.Orders[o.ID] = &o
	}
	return s
}

func (s *OrderRepositoryStub) Create(ctx context.Context, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, exists := s.Orders[order.ID]; exists {
		return domainErrors.ErrAlreadyExists
	}
	now := time.Now()
	order.CreatedAt, order.UpdatedAt = now, now
	stored := *order
	s.Orders[order.ID] = &stored
	return nil
}

func (s *OrderRepositoryStub) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	o, ok := s.Orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	out := *o
	return &out, nil
}

func (s *OrderRepositoryStub) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	all, err := s.List(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]model.Order, 0, len(all))
	for _, o := range all {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *OrderRepositoryStub) List(ctx context.Context, filter repository.OrderFilter) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]model.Order, 0, len(s.Orders))
	for _, o := range s.Orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *OrderRepositoryStub) MarkPaid(ctx context.Context, id, paymentID uuid.UUID) (*model.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MarkPaidCalls++
	if s.Err != nil {
		return nil, false, s.Err
	}
	o, ok := s.Orders[id]
	if !ok {
		return nil, false, domainErrors.ErrNotFound
	}
	if o.Status != model.OrderStatusPending {
		out := *o
		return &out, false, nil
	}
	now := time.Now()
	o.Status = model.OrderStatusPaid
	o.PaymentID = &paymentID
	o.PaidAt = &now
	o.UpdatedAt = now
	out := *o
	return &out, true, nil
}

func (s *OrderRepositoryStub) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	o, ok := s.Orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return true, nil
}

// PaymentRepositoryStub keeps payment records in memory with guarded writes.
type PaymentRepositoryStub struct {
	mu       sync.Mutex
	Payments map[uuid.UUID]*model.PaymentRecord
	Err      error
	// WriteErr fails mutations only, reads keep working.
	WriteErr error
	// Claims holds the lease end of payments handed out for reconciliation.
	Claims map[uuid.UUID]time.Time
	Now    func() time.Time

	ExpiredBefore []time.Time
}

// NewPaymentRepositoryStub constructs stub seeded with records.
func NewPaymentRepositoryStub(records ...model.PaymentRecord) *PaymentRepositoryStub {
	s := &PaymentRepositoryStub{
		Payments: make(map[uuid.UUID]*model.PaymentRecord),
		Claims:   make(map[uuid.UUID]time.Time),
		Now:      time.Now,
	}
	for i := range records {
		r := records[i]
		s.Payments[r.ID] = &r
	}
	return s
}

// Snapshot returns a copy of the stored record.
func (s *PaymentRepositoryStub) Snapshot(id uuid.UUID) model.PaymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.Payments[id]
}

func (s *PaymentRepositoryStub) Create(ctx context.Context, payment *model.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.WriteErr != nil {
		return s.WriteErr
	}
	for _, p := range s.Payments {
		if p.OrderID == payment.OrderID && !p.Status.Terminal() {
			return domainErrors.ErrAlreadyExists
		}
	}
	now := time.Now()
	payment.CreatedAt, payment.UpdatedAt = now, now
	stored := *payment
	s.Payments[payment.ID] = &stored
	return nil
}

func (s *PaymentRepositoryStub) GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.Payments[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s *PaymentRepositoryStub) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.PaymentRecord
	for _, p := range s.Payments {
		if p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *PaymentRepositoryStub) SelectBatchForReconciliation(ctx context.Context, limit int, lease time.Duration) ([]model.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	now := s.Now()
	var out []model.PaymentRecord
	for _, p := range s.Payments {
		if p.Status.Terminal() {
			continue
		}
		if until, ok := s.Claims[p.ID]; ok && until.After(now) {
			continue
		}
		s.Claims[p.ID] = now.Add(lease)
		out = append(out, *p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *PaymentRepositoryStub) ReleaseClaim(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.Claims, id)
	return nil
}

func (s *PaymentRepositoryStub) mutate(id uuid.UUID, from model.PaymentStatus, fn func(p *model.PaymentRecord) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if s.WriteErr != nil {
		return false, s.WriteErr
	}
	p, ok := s.Payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	if !fn(p) {
		return false, nil
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

// MarkDetected refuses a transaction already credited to another payment of the same provider.
func (s *PaymentRepositoryStub) MarkDetected(ctx context.Context, id, orderID uuid.UUID, transactionID string, received decimal.Decimal) (bool, error) {
	var claimed bool
	changed, err := s.mutate(id, model.PaymentStatusAwaiting, func(p *model.PaymentRecord) bool {
		if p.OrderID != orderID {
			return false
		}
		for _, other := range s.Payments {
			if other.ID != p.ID && other.Provider == p.Provider && other.TransactionID != nil && *other.TransactionID == transactionID {
				claimed = true
				return false
			}
		}
		p.TransactionID = &transactionID
		p.ReceivedAmount = &received
		p.Status = model.PaymentStatusPending
		return true
	})
	if claimed {
		return false, domainErrors.ErrTransactionClaimed
	}
	return changed, err
}

func (s *PaymentRepositoryStub) RecordConfirmations(ctx context.Context, id uuid.UUID, confirmations int64) (bool, error) {
	return s.mutate(id, model.PaymentStatusPending, func(p *model.PaymentRecord) bool {
		if p.Confirmations >= confirmations {
			return false
		}
		p.Confirmations = confirmations
		return true
	})
}

func (s *PaymentRepositoryStub) MarkCompleted(ctx context.Context, id uuid.UUID, confirmations int64) (bool, error) {
	return s.mutate(id, model.PaymentStatusPending, func(p *model.PaymentRecord) bool {
		if confirmations > p.Confirmations {
			p.Confirmations = confirmations
		}
		p.Status = model.PaymentStatusCompleted
		return true
	})
}

func (s *PaymentRepositoryStub) ExpireAwaiting(ctx context.Context, createdBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ExpiredBefore = append(s.ExpiredBefore, createdBefore)
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for _, p := range s.Payments {
		if p.Status == model.PaymentStatusAwaiting && p.CreatedAt.Before(createdBefore) {
			p.Status = model.PaymentStatusFailed
			n++
		}
	}
	return n, nil
}

// DiscountRepositoryStub keeps codes in memory. Redeem is a compare and
// increment under the stub lock.
type DiscountRepositoryStub struct {
	mu    sync.Mutex
	Codes map[string]*model.DiscountCode
	Err   error
	Now   func() time.Time

	ListCalls int
}

// NewDiscountRepositoryStub constructs stub seeded with codes.
func NewDiscountRepositoryStub(codes ...model.DiscountCode) *DiscountRepositoryStub {
	s := &DiscountRepositoryStub{Codes: make(map[string]*model.DiscountCode), Now: time.Now}
	for i := range codes {
		c := codes[i]
		s.Codes[c.Code] = &c
	}
	return s
}

// Uses returns current usage counter of code.
func (s *DiscountRepositoryStub) Uses(code string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Codes[code].CurrentUses
}

func (s *DiscountRepositoryStub) Create(ctx context.Context, code *model.DiscountCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, exists := s.Codes[code.Code]; exists {
		return domainErrors.ErrAlreadyExists
	}
	code.CreatedAt = time.Now()
	stored := *code
	s.Codes[code.Code] = &stored
	return nil
}

func (s *DiscountRepositoryStub) GetByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	c, ok := s.Codes[code]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *DiscountRepositoryStub) List(ctx context.Context) ([]model.DiscountCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]model.DiscountCode, 0, len(s.Codes))
	for _, c := range s.Codes {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *DiscountRepositoryStub) SetActive(ctx context.Context, code string, active bool) (*model.DiscountCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	c, ok := s.Codes[code]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	c.IsActive = active
	out := *c
	return &out, nil
}

func (s *DiscountRepositoryStub) Redeem(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	c, ok := s.Codes[code]
	if !ok || !c.Usable(s.Now()) {
		return false, nil
	}
	c.CurrentUses++
	return true, nil
}

func (s *DiscountRepositoryStub) Release(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	c, ok := s.Codes[code]
	if !ok || c.CurrentUses == 0 {
		return false, nil
	}
	c.CurrentUses--
	return true, nil
}

var (
	_ repository.UserRepository     = (*UserRepositoryStub)(nil)
	_ repository.OrderRepository    = (*OrderRepositoryStub)(nil)
	_ repository.PaymentRepository  = (*PaymentRepositoryStub)(nil)
	_ repository.DiscountRepository = (*DiscountRepositoryStub)(nil)
)
