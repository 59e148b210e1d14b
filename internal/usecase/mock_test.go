//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"aeternis-checkout/internal/domain"
	"aeternis-checkout/internal/domain/model"
	"aeternis-checkout/internal/domain/ports/adapter"
	"aeternis-checkout/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

// =============================
// Transaction manager
// =============================

type noTx struct{}

type MockTxManager struct {
	// WithTxFunc lets a test fail the transaction wrapper itself.
	WithTxFunc func(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, fn)
	}
	return fn(ctx, noTx{})
}

// =============================
// Repositories
// =============================

// MockOrderRepo is an in-memory OrderRepository. Every method can be
// overridden per test through its corresponding Func field.
type MockOrderRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Order

	SaveFunc         func(ctx context.Context, tx repository.Tx, o *model.Order) error
	FindByIDFunc     func(ctx context.Context, tx repository.Tx, id string) (*model.Order, error)
	UpdateStatusFunc func(ctx context.Context, tx repository.Tx, id string, status model.OrderStatus) error
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{store: make(map[string]*model.Order)}
}

func (m *MockOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.store[o.ID] = &cp
	return nil
}

func (m *MockOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepo) ListByEmail(ctx context.Context, tx repository.Tx, email string) ([]*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Order
	for _, o := range m.store {
		if o.CustomerEmail == email {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockOrderRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.OrderStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !o.Status.CanTransition(status) {
		return domain.ErrInvalidArgument
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

func (m *MockOrderRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.OrderStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[model.OrderStatus]int)
	for _, o := range m.store {
		out[o.Status]++
	}
	return out, nil
}

// Get returns the stored order directly, bypassing any Func override.
func (m *MockOrderRepo) Get(id string) *model.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store[id]
}

// MockPaymentRepo is an in-memory PaymentRepository with per-test overrides.
type MockPaymentRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Payment

	SaveFunc            func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindBySessionIDFunc func(ctx context.Context, tx repository.Tx, sessionID string) (*model.Payment, error)
	UpdateStatusFunc    func(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, paidAt *time.Time) error
	AppendEventFunc     func(ctx context.Context, tx repository.Tx, id string, raw []byte) error
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{store: make(map[string]*model.Payment)}
}

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) FindBySessionID(ctx context.Context, tx repository.Tx, sessionID string) (*model.Payment, error) {
	if m.FindBySessionIDFunc != nil {
		return m.FindBySessionIDFunc(ctx, tx, sessionID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.SessionID == sessionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) FindPendingByOrder(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.OrderID == orderID && p.Status == model.PaymentStatusPending {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, paidAt *time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status, paidAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !p.Status.CanTransition(status) {
		return domain.ErrInvalidArgument
	}
	p.Status = status
	if paidAt != nil {
		p.PaidAt = paidAt
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (m *MockPaymentRepo) AppendEvent(ctx context.Context, tx repository.Tx, id string, raw []byte) error {
	if m.AppendEventFunc != nil {
		return m.AppendEventFunc(ctx, tx, id, raw)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.RawEventLog = append(p.RawEventLog, json.RawMessage(raw))
	return nil
}

func (m *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockPaymentRepo) SumByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, p := range m.store {
		if p.Status == model.PaymentStatusSucceeded {
			sum += p.Amount
		}
	}
	return sum, nil
}

// Get returns the stored payment directly, bypassing any Func override.
func (m *MockPaymentRepo) Get(id string) *model.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store[id]
}

// MockWebhookEventRepo records processed event ids in memory.
type MockWebhookEventRepo struct {
	mu   sync.RWMutex
	seen map[string]time.Time

	ExistsFunc func(ctx context.Context, tx repository.Tx, eventID string) (bool, error)
	RecordFunc func(ctx context.Context, tx repository.Tx, ev *model.ProcessedWebhookEvent) error
}

var _ repository.WebhookEventRepository = (*MockWebhookEventRepo)(nil)

func NewMockWebhookEventRepo() *MockWebhookEventRepo {
	return &MockWebhookEventRepo{seen: make(map[string]time.Time)}
}

func (m *MockWebhookEventRepo) Exists(ctx context.Context, tx repository.Tx, eventID string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, tx, eventID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[eventID]
	return ok, nil
}

func (m *MockWebhookEventRepo) Record(ctx context.Context, tx repository.Tx, ev *model.ProcessedWebhookEvent) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, tx, ev)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[ev.EventID]; ok {
		return domain.ErrAlreadyExists
	}
	m.seen[ev.EventID] = ev.ReceivedAt
	return nil
}

func (m *MockWebhookEventRepo) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seen)
}

// MockCatalogRepo serves snapshots from memory.
type MockCatalogRepo struct {
	mu        sync.RWMutex
	snapshots map[int]*model.Snapshot

	ActiveSnapshotFunc func(ctx context.Context, tx repository.Tx) (*model.Snapshot, error)
}

var _ repository.CatalogRepository = (*MockCatalogRepo)(nil)

func NewMockCatalogRepo() *MockCatalogRepo {
	return &MockCatalogRepo{snapshots: make(map[int]*model.Snapshot)}
}

func (m *MockCatalogRepo) ActiveSnapshot(ctx context.Context, tx repository.Tx) (*model.Snapshot, error) {
	if m.ActiveSnapshotFunc != nil {
		return m.ActiveSnapshotFunc(ctx, tx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *model.Snapshot
	for _, s := range m.snapshots {
		if best == nil || s.Version > best.Version {
			best = s
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return best, nil
}

func (m *MockCatalogRepo) SnapshotByVersion(ctx context.Context, tx repository.Tx, version int) (*model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[version]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (m *MockCatalogRepo) SaveSnapshot(ctx context.Context, tx repository.Tx, s *model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshots[s.Version]; ok {
		return domain.ErrAlreadyExists
	}
	m.snapshots[s.Version] = s
	return nil
}

// =============================
// Checkout gateway
// =============================

type MockGateway struct {
	mu  sync.Mutex
	seq int

	CreateSessionFunc func(ctx context.Context, req adapter.SessionRequest) (adapter.SessionInfo, error)
	SessionStatusFunc func(ctx context.Context, sessionID string) (adapter.SessionStatus, error)
	ParseEventFunc    func(payload []byte, signatureHeader string) (adapter.WebhookEvent, error)

	Created []adapter.SessionRequest
}

var _ adapter.CheckoutGateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) CreateSession(ctx context.Context, req adapter.SessionRequest) (adapter.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.Created = append(m.Created, req)
	id := "sess-" + string(rune('a'+m.seq-1))
	return adapter.SessionInfo{
		ID:          id,
		RedirectURL: "https://pay.example.test/" + id,
		ExpiresAt:   time.Now().Add(30 * time.Minute),
	}, nil
}

func (m *MockGateway) SessionStatus(ctx context.Context, sessionID string) (adapter.SessionStatus, error) {
	if m.SessionStatusFunc != nil {
		return m.SessionStatusFunc(ctx, sessionID)
	}
	return adapter.SessionStatus{Status: "open", PaymentStatus: "unpaid"}, nil
}

func (m *MockGateway) ParseEvent(payload []byte, signatureHeader string) (adapter.WebhookEvent, error) {
	if m.ParseEventFunc != nil {
		return m.ParseEventFunc(payload, signatureHeader)
	}
	if signatureHeader != "valid" {
		return adapter.WebhookEvent{}, domain.ErrInvalidSignature
	}
	var body struct {
		ID        string `json:"id"`
		Kind      string `json:"kind"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return adapter.WebhookEvent{}, domain.ErrInvalidArgument
	}
	return adapter.WebhookEvent{
		ID:        body.ID,
		Kind:      adapter.EventKind(body.Kind),
		SessionID: body.SessionID,
		Raw:       payload,
	}, nil
}

// =============================
// Catalog fixture
// =============================

// testSnapshot builds a small catalog: one plan at 100 with a 20 storage
// tier, wood plaques at +10, and a 10% two-profile bundle rule.
func testSnapshot() *model.Snapshot {
	snap, err := model.NewSnapshot(
		1,
		[]model.PlanType{
			{Slug: "myaeternis", Name: "MyAeternis", BasePrice: 100, YearlyExtensionPrice: 49},
			{Slug: "story", Name: "MyAeternis Story", BasePrice: 200, YearlyExtensionPrice: 49},
		},
		[]model.StorageOption{
			{ID: "st-basic", PlanSlug: "myaeternis", StorageGB: 1, Price: 20},
			{ID: "st-big", PlanSlug: "myaeternis", StorageGB: 4, Price: 60},
			{ID: "st-story", PlanSlug: "story", StorageGB: 2, Price: 30},
		},
		[]model.PlaqueMaterial{
			{Slug: "wood", Name: "Wood", PriceDelta: 10},
			{Slug: "brass", Name: "Brass", PriceDelta: 45},
		},
		[]model.Addon{
			{Slug: model.AddonMagnet, Price: 10, AppliesToPlaque: true},
			{Slug: model.AddonEngraving, Price: 19, AppliesToPlaque: true},
		},
		[]model.DiscountRule{
			{
				Slug:      "family_bundle",
				Name:      "Family Bundle",
				Priority:  10,
				Predicate: model.RulePredicate{MinProfiles: 3},
				Effect:    model.RuleEffect{PercentBps: 2000},
			},
			{
				Slug:      "duo_bundle",
				Name:      "Duo Bundle",
				Priority:  5,
				Predicate: model.RulePredicate{MinProfiles: 2, MaxProfiles: 2},
				Effect:    model.RuleEffect{PercentBps: 1000},
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return snap
}

func woodProfile() model.OrderProfile {
	return model.OrderProfile{
		Name:            "Nonna Maria",
		PlanSlug:        "myaeternis",
		StorageOptionID: "st-basic",
		Plaques:         []model.OrderPlaque{{MaterialSlug: "wood"}},
	}
}
