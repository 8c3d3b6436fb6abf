//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/domain/ports/adapter"
	"content-entitlement/internal/domain/ports/repository"
	"content-entitlement/internal/infra/worker"
)

func testLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

// =============================
// In-memory store with rollback
// =============================

// memStore backs every in-memory repository below. mu guards single
// operations; txMu is held for a whole WithTx so transactions are serialized
// the way the advisory lock serializes them in Postgres.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	subs      map[string]model.Subscription
	purchases map[string]model.PurchaseRecord
	promos    map[string]model.PromoCode
	runs      map[string]model.QuizRun
}

func newMemStore() *memStore {
	return &memStore{
		subs:      map[string]model.Subscription{},
		purchases: map[string]model.PurchaseRecord{},
		promos:    map[string]model.PromoCode{},
		runs:      map[string]model.QuizRun{},
	}
}

type memSnapshot struct {
	subs      map[string]model.Subscription
	purchases map[string]model.PurchaseRecord
	promos    map[string]model.PromoCode
	runs      map[string]model.QuizRun
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		subs:      make(map[string]model.Subscription, len(s.subs)),
		purchases: make(map[string]model.PurchaseRecord, len(s.purchases)),
		promos:    make(map[string]model.PromoCode, len(s.promos)),
		runs:      make(map[string]model.QuizRun, len(s.runs)),
	}
	for k, v := range s.subs {
		snap.subs[k] = v
	}
	for k, v := range s.purchases {
		snap.purchases[k] = v
	}
	for k, v := range s.promos {
		snap.promos[k] = v
	}
	for k, v := range s.runs {
		snap.runs[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs, s.purchases, s.promos, s.runs = snap.subs, snap.purchases, snap.promos, snap.runs
}

// ---- Transaction manager ----

type memTxManager struct {
	store *memStore
	calls int
}

var _ repository.TransactionManager = (*memTxManager)(nil)

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()
	m.calls++
	snap := m.store.snapshot()
	if err := fn(ctx, m.store); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// noopRequesterLocker relies on memTxManager for serialization. LockFunc runs
// inside the transaction, which lets tests interleave a competing writer.
type noopRequesterLocker struct {
	calls int

	LockFunc func(ctx context.Context, requesterID string) error
}

func (l *noopRequesterLocker) LockRequester(ctx context.Context, tx repository.Tx, requesterID string) error {
	l.calls++
	if l.LockFunc != nil {
		return l.LockFunc(ctx, requesterID)
	}
	return nil
}

// ---- Subscriptions ----

type memSubscriptionRepo struct{ s *memStore }

var _ repository.SubscriptionRepository = (*memSubscriptionRepo)(nil)

func (r *memSubscriptionRepo) FindByRequester(ctx context.Context, tx repository.Tx, requesterID string) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[requesterID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sub, nil
}

func (r *memSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.subs[sub.RequesterID] = *sub
	return nil
}

func (r *memSubscriptionRepo) Consume(ctx context.Context, tx repository.Tx, requesterID string, kind model.AllowanceKind) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[requesterID]
	if !ok || sub.Status != model.SubscriptionStatusActive {
		return false, nil
	}
	var a *model.Allowance
	switch kind {
	case model.AllowanceFree:
		a = &sub.Free
	case model.AllowanceDiscounted:
		a = &sub.Discounted
	case model.AllowancePremiumArticle:
		a = &sub.PremiumArticles
	default:
		return false, domain.ErrInvalidArgument
	}
	if a.Used >= a.Limit {
		return false, nil
	}
	a.Used++
	r.s.subs[requesterID] = sub
	return true, nil
}

func (r *memSubscriptionRepo) AdvanceCycle(ctx context.Context, tx repository.Tx, requesterID string, prevEnd, start, end time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[requesterID]
	if !ok || !sub.CycleEnd.Equal(prevEnd) {
		return false, nil
	}
	sub.CycleStart, sub.CycleEnd = start, end
	sub.Free.Used, sub.Discounted.Used, sub.PremiumArticles.Used = 0, 0, 0
	r.s.subs[requesterID] = sub
	return true, nil
}

func (r *memSubscriptionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, requesterID string, status model.SubscriptionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[requesterID]
	if !ok {
		return domain.ErrNotFound
	}
	sub.Status = status
	r.s.subs[requesterID] = sub
	return nil
}

func (r *memSubscriptionRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, sub := range r.s.subs {
		if sub.Status == model.SubscriptionStatusActive && sub.ExpiresAt != nil && !sub.ExpiresAt.After(now) {
			sub.Status = model.SubscriptionStatusExpired
			r.s.subs[id] = sub
			n++
		}
	}
	return n, nil
}

func (r *memSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[model.SubscriptionStatus]int{}
	for _, sub := range r.s.subs {
		out[sub.Status]++
	}
	return out, nil
}

// ---- Purchases ----

type memPurchaseRepo struct {
	s *memStore

	InsertFunc func(ctx context.Context, tx repository.Tx, p *model.PurchaseRecord) error
}

var _ repository.PurchaseRepository = (*memPurchaseRepo)(nil)

func purchaseKey(requesterID string, kind model.ItemKind, itemID string) string {
	return requesterID + "|" + string(kind) + "|" + itemID
}

func (r *memPurchaseRepo) Find(ctx context.Context, tx repository.Tx, requesterID string, kind model.ItemKind, itemID string) (*model.PurchaseRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.purchases[purchaseKey(requesterID, kind, itemID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *memPurchaseRepo) Insert(ctx context.Context, tx repository.Tx, p *model.PurchaseRecord) error {
	if r.InsertFunc != nil {
		if err := r.InsertFunc(ctx, tx, p); err != nil {
			return err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := purchaseKey(p.RequesterID, p.ItemType, p.ItemID)
	if _, dup := r.s.purchases[key]; dup {
		return domain.ErrAlreadyExists
	}
	r.s.purchases[key] = *p
	return nil
}

func (r *memPurchaseRepo) List(ctx context.Context, tx repository.Tx, f model.PurchaseFilter) ([]*model.PurchaseRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.PurchaseRecord
	for _, p := range r.s.purchases {
		if f.RequesterID != "" && p.RequesterID != f.RequesterID {
			continue
		}
		if f.Method != "" && p.PaymentMethod != f.Method {
			continue
		}
		cp := p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memPurchaseRepo) CountByMethod(ctx context.Context, tx repository.Tx) (map[model.PaymentMethod]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[model.PaymentMethod]int{}
	for _, p := range r.s.purchases {
		out[p.PaymentMethod]++
	}
	return out, nil
}

func (r *memPurchaseRepo) count() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.purchases)
}

// ---- Promo codes ----

type memPromoRepo struct{ s *memStore }

var _ repository.PromoCodeRepository = (*memPromoRepo)(nil)

func (r *memPromoRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.promos[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *memPromoRepo) Insert(ctx context.Context, tx repository.Tx, p *model.PromoCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.promos[p.Code]; dup {
		return domain.ErrAlreadyExists
	}
	r.s.promos[p.Code] = *p
	return nil
}

func (r *memPromoRepo) Redeem(ctx context.Context, tx repository.Tx, code string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.promos[code]
	if !ok || !p.Usable(now) {
		return false, nil
	}
	p.CurrentUses++
	r.s.promos[code] = p
	return true, nil
}

func (r *memPromoRepo) Deactivate(ctx context.Context, tx repository.Tx, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.promos[code]
	if !ok {
		return domain.ErrNotFound
	}
	p.IsActive = false
	r.s.promos[code] = p
	return nil
}

func (r *memPromoRepo) List(ctx context.Context, tx repository.Tx) ([]*model.PromoCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.PromoCode, 0, len(r.s.promos))
	for _, p := range r.s.promos {
		cp := p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// ---- Quiz runs ----

type memQuizRunRepo struct{ s *memStore }

var _ repository.QuizRunRepository = (*memQuizRunRepo)(nil)

func (r *memQuizRunRepo) Save(ctx context.Context, tx repository.Tx, run *model.QuizRun) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.runs[run.RunID]; dup {
		return domain.ErrAlreadyExists
	}
	r.s.runs[run.RunID] = *run
	return nil
}

func (r *memQuizRunRepo) FindByID(ctx context.Context, tx repository.Tx, runID string) (*model.QuizRun, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	run, ok := r.s.runs[runID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &run, nil
}

func (r *memQuizRunRepo) AttachAnalysis(ctx context.Context, tx repository.Tx, runID, analysis string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	run, ok := r.s.runs[runID]
	if !ok || run.Analysis != nil {
		return false, nil
	}
	run.Analysis, run.AnalysisAt = &analysis, &at
	r.s.runs[runID] = run
	return true, nil
}

func (r *memQuizRunRepo) List(ctx context.Context, tx repository.Tx, f model.QuizRunFilter) ([]*model.QuizRun, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.QuizRun
	for _, run := range r.s.runs {
		if f.QuizSlug != "" && run.QuizSlug != f.QuizSlug {
			continue
		}
		cp := run
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunID < out[j].RunID })
	return out, nil
}

func (r *memQuizRunRepo) BandCounts(ctx context.Context, tx repository.Tx, quizSlug string) ([]model.BandCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]int{}
	for _, run := range r.s.runs {
		if run.QuizSlug == quizSlug {
			counts[run.BandLabel]++
		}
	}
	out := make([]model.BandCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, model.BandCount{QuizSlug: quizSlug, Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (r *memQuizRunRepo) ListPendingAnalysis(ctx context.Context, tx repository.Tx, createdBefore time.Time, limit int) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for id, run := range r.s.runs {
		if run.Analysis == nil && run.CreatedAt.Before(createdBefore) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// =============================
// Adapters
// =============================

type mockCatalog struct {
	articles map[string]*model.Article
	quizzes  map[string]*model.Quiz

	ItemFunc func(ctx context.Context, kind model.ItemKind, slug string) (model.ContentItem, error)
}

var _ adapter.Catalog = (*mockCatalog)(nil)

func newMockCatalog() *mockCatalog {
	return &mockCatalog{articles: map[string]*model.Article{}, quizzes: map[string]*model.Quiz{}}
}

func (c *mockCatalog) Item(ctx context.Context, kind model.ItemKind, slug string) (model.ContentItem, error) {
	if c.ItemFunc != nil {
		return c.ItemFunc(ctx, kind, slug)
	}
	switch kind {
	case model.ItemKindArticle:
		if a, ok := c.articles[slug]; ok {
			return a, nil
		}
	case model.ItemKindQuiz:
		if q, ok := c.quizzes[slug]; ok {
			return q, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (c *mockCatalog) Quiz(ctx context.Context, slug string) (*model.Quiz, error) {
	if q, ok := c.quizzes[slug]; ok {
		return q, nil
	}
	return nil, domain.ErrNotFound
}

type mockPaymentVerifier struct {
	mu    sync.Mutex
	calls []int64

	VerifyFunc func(ctx context.Context, reference string, amount int64) error
}

var _ adapter.PaymentVerifier = (*mockPaymentVerifier)(nil)

func (m *mockPaymentVerifier) Name() string { return "mock" }

func (m *mockPaymentVerifier) Verify(ctx context.Context, reference string, amount int64) error {
	m.mu.Lock()
	m.calls = append(m.calls, amount)
	m.mu.Unlock()
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, reference, amount)
	}
	return nil
}

type mockAnalyst struct {
	mu    sync.Mutex
	calls int

	AnalyzeFunc func(ctx context.Context, req adapter.AnalysisRequest) (*adapter.Analysis, error)
}

var _ adapter.ResultAnalyst = (*mockAnalyst)(nil)

func (m *mockAnalyst) Name() string { return "mock" }

func (m *mockAnalyst) Analyze(ctx context.Context, req adapter.AnalysisRequest) (*adapter.Analysis, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, req)
	}
	return &adapter.Analysis{Text: "steady progress", Provider: "mock", Model: "mock-1"}, nil
}

// mockLocker implements adapter.Locker in memory.
type mockLocker struct {
	mu   sync.Mutex
	held map[string]string
}

var _ adapter.Locker = (*mockLocker)(nil)

func newMockLocker() *mockLocker { return &mockLocker{held: map[string]string{}} }

func (l *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", domain.ErrLocked
	}
	l.held[key] = key + "-token"
	return l.held[key], nil
}

func (l *mockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// inlinePool runs tasks synchronously on Submit.
type inlinePool struct {
	submitted int
	errs      []error
}

func (p *inlinePool) Submit(task worker.Task) error {
	p.submitted++
	if err := task(context.Background()); err != nil {
		p.errs = append(p.errs, err)
	}
	return nil
}

// =============================
// Fixtures
// =============================

type fixture struct {
	store     *memStore
	subs      *memSubscriptionRepo
	purchases *memPurchaseRepo
	promos    *memPromoRepo
	runs      *memQuizRunRepo
	tx        *memTxManager
	locker    *noopRequesterLocker
	catalog   *mockCatalog
	payments  *mockPaymentVerifier
}

func newFixture() *fixture {
	s := newMemStore()
	f := &fixture{
		store:     s,
		subs:      &memSubscriptionRepo{s: s},
		purchases: &memPurchaseRepo{s: s},
		promos:    &memPromoRepo{s: s},
		runs:      &memQuizRunRepo{s: s},
		tx:        &memTxManager{store: s},
		locker:    &noopRequesterLocker{},
		catalog:   newMockCatalog(),
		payments:  &mockPaymentVerifier{},
	}
	f.catalog.quizzes["burnout"] = burnoutQuiz(900)
	f.catalog.quizzes["warmup"] = freeQuiz()
	f.catalog.articles["deep-work"] = &model.Article{ItemMeta: model.ItemMeta{Slug: "deep-work", Title: "Deep Work", BasePrice: 500, IsPaid: true}}
	f.catalog.articles["welcome"] = &model.Article{ItemMeta: model.ItemMeta{Slug: "welcome", Title: "Welcome", IsPaid: false}}
	return f
}

func burnoutQuiz(price int64) *model.Quiz {
	return &model.Quiz{
		ItemMeta: model.ItemMeta{Slug: "burnout", Title: "Burnout check", BasePrice: price, IsPaid: true},
		Questions: []model.Question{
			{ID: "q1", Text: "Energy", Type: model.QuestionTypeScale, Min: 0, Max: 4},
			{ID: "q2", Text: "Sleep", Type: model.QuestionTypeScale, Min: 0, Max: 4},
			{ID: "q3", Text: "Weekend work", Type: model.QuestionTypeYesNo},
			{ID: "q4", Text: "Notes", Type: model.QuestionTypeText, Optional: true},
		},
		Bands: []model.Band{
			{Min: 0, Max: 33, Label: "low", Advice: "keep going"},
			{Min: 34, Max: 66, Label: "medium", Advice: "slow down"},
			{Min: 67, Max: 100, Label: "high", Advice: "take a break"},
		},
	}
}

func paidQuiz(slug string, price int64) *model.Quiz {
	q := burnoutQuiz(price)
	q.Slug, q.Title = slug, slug
	return q
}

func freeQuiz() *model.Quiz {
	q := burnoutQuiz(0)
	q.Slug, q.Title, q.IsPaid = "warmup", "Warm-up", false
	return q
}

func (f *fixture) subscribe(requesterID string, limits model.AllowanceLimits) {
	sub, err := model.NewSubscription(requesterID, limits, time.Now(), nil)
	if err != nil {
		panic(err)
	}
	_ = f.subs.Save(context.Background(), nil, sub)
}

func (f *fixture) sub(requesterID string) model.Subscription {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.subs[requesterID]
}

func (f *fixture) addPromo(code string, pct, maxUses int) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.promos[code] = model.PromoCode{
		Code: code, DiscountPercentage: pct, MaxUses: maxUses, IsActive: true,
		ValidUntil: time.Now().Add(24 * time.Hour), CreatedAt: time.Now(),
	}
}

func (f *fixture) promo(code string) model.PromoCode {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.promos[code]
}
