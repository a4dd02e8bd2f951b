package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Guardrail-Labs/guardrail/internal/domain/audit"
	"github.com/Guardrail-Labs/guardrail/internal/domain/guideline"
	"github.com/Guardrail-Labs/guardrail/internal/metrics"
	"github.com/Guardrail-Labs/guardrail/internal/telemetry"
)

// lruEntry is a doubly-linked list node for the result cache.
type lruEntry struct {
	key    uint64
	policy guideline.EffectivePolicy
	prev   *lruEntry
	next   *lruEntry
}

// ResultCache provides bounded LRU caching of effective policies. Keys fold
// in the guideline snapshot fingerprint, so entries self-invalidate after
// any mutation. Thread-safe with Mutex (Get and Put both mutate LRU order).
type ResultCache struct {
	mu      sync.Mutex
	entries map[uint64]*lruEntry
	head    *lruEntry // most recently used
	tail    *lruEntry // least recently used
	maxSize int
}

// NewResultCache creates an LRU cache with the given max size.
func NewResultCache(maxSize int) *ResultCache {
	return &ResultCache{
		entries: make(map[uint64]*lruEntry, maxSize),
		maxSize: maxSize,
	}
}

// Get retrieves a cached policy, promoting the entry on hit.
func (c *ResultCache) Get(key uint64) (guideline.EffectivePolicy, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.moveToHeadLocked(e)
		return e.policy, true
	}
	return guideline.EffectivePolicy{}, false
}

// Put stores a policy, evicting the least recently used entry at capacity.
func (c *ResultCache) Put(key uint64, policy guideline.EffectivePolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.policy = policy
		c.moveToHeadLocked(e)
		return
	}
	if len(c.entries) >= c.maxSize {
		c.evictTailLocked()
	}
	e := &lruEntry{key: key, policy: policy}
	c.entries[key] = e
	c.pushHeadLocked(e)
}

// Size returns the current number of cached policies.
func (c *ResultCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResultCache) moveToHeadLocked(e *lruEntry) {
	if c.head == e {
		return
	}
	c.unlinkLocked(e)
	c.pushHeadLocked(e)
}

func (c *ResultCache) pushHeadLocked(e *lruEntry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *ResultCache) unlinkLocked(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (c *ResultCache) evictTailLocked() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlinkLocked(c.tail)
}

// EvaluationService produces the effective policy for a task context. It is
// the only component callable by the agent runtime. Evaluation is read-only
// and safe for any number of concurrent callers.
type EvaluationService struct {
	store          guideline.Store
	auditStore     audit.Store
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         *telemetry.Tracer
	cache          *ResultCache
	logEvaluations bool
}

// EvaluationOption customizes the service.
type EvaluationOption func(*EvaluationService)

// WithCacheSize sets the maximum number of cached effective policies.
func WithCacheSize(size int) EvaluationOption {
	return func(s *EvaluationService) {
		s.cache = NewResultCache(size)
	}
}

// WithEvaluationAudit enables an evaluation audit entry per call. Off by
// default so the hot path stays read-only. Audit failures here are logged,
// not fatal: the evaluation result does not depend on them.
func WithEvaluationAudit() EvaluationOption {
	return func(s *EvaluationService) {
		s.logEvaluations = true
	}
}

// NewEvaluationService creates a new EvaluationService.
func NewEvaluationService(
	store guideline.Store,
	auditStore audit.Store,
	m *metrics.Metrics,
	tracer *telemetry.Tracer,
	logger *slog.Logger,
	opts ...EvaluationOption,
) *EvaluationService {
	s := &EvaluationService{
		store:      store,
		auditStore: auditStore,
		logger:     logger,
		metrics:    m,
		tracer:     tracer,
		cache:      NewResultCache(1000),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// enabledFilter selects only enabled guidelines from the store.
var enabledOnly = func() guideline.ListFilter {
	t := true
	return guideline.ListFilter{Enabled: &t}
}()

// Evaluate reads the current enabled-guideline snapshot for the tenant, runs
// the matcher over each, and combines the matches into one effective policy.
func (s *EvaluationService) Evaluate(ctx context.Context, tenantID string, tc guideline.TaskContext) (*guideline.EffectivePolicy, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "guardrail.evaluate",
		trace.WithAttributes(attribute.String("guardrail.tenant_id", tenantID)))
	defer span.End()

	snapshot, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("read guideline snapshot: %w", err)
	}

	key := cacheKey(tenantID, tc, snapshot)
	if policy, ok := s.cache.Get(key); ok {
		s.metrics.SnapshotCacheHits.Inc()
		span.SetAttributes(attribute.Bool("guardrail.cache_hit", true))
		s.observe(ctx, tenantID, tc, &policy, start)
		return &policy, nil
	}
	s.metrics.SnapshotCacheMiss.Inc()

	evaluated := make([]guideline.EvaluatedGuideline, 0, len(snapshot))
	for _, g := range snapshot {
		result := guideline.Match(g, tc)
		if result.Matches {
			evaluated = append(evaluated, guideline.EvaluatedGuideline{Guideline: g, Result: result})
		}
	}

	policy := guideline.Combine(evaluated)
	s.cache.Put(key, policy)

	span.SetAttributes(attribute.Int("guardrail.matched_count", policy.MatchedCount))
	s.observe(ctx, tenantID, tc, &policy, start)
	return &policy, nil
}

// snapshot reads all enabled guidelines for the tenant.
func (s *EvaluationService) snapshot(ctx context.Context, tenantID string) ([]guideline.Guideline, error) {
	var all []guideline.Guideline
	for page := 1; ; page++ {
		batch, total, err := s.store.List(ctx, tenantID, enabledOnly, page, MaxPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(all) >= total || len(batch) == 0 {
			break
		}
	}
	return all, nil
}

// observe records metrics, the optional audit entry, and the debug log.
func (s *EvaluationService) observe(ctx context.Context, tenantID string, tc guideline.TaskContext, policy *guideline.EffectivePolicy, start time.Time) {
	result := "unmatched"
	if policy.MatchedCount > 0 {
		result = "matched"
	}
	s.metrics.EvaluationsTotal.WithLabelValues(result).Inc()
	s.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())

	if s.logEvaluations {
		entry := audit.Entry{
			ID:        uuid.New().String(),
			TenantID:  tenantID,
			EventType: audit.EventEvaluation,
			Timestamp: time.Now().UTC(),
			Decision:  "matched=" + strconv.Itoa(policy.MatchedCount),
			Context:   contextMap(tc),
		}
		if len(policy.Guidelines) > 0 {
			entry.GuidelineID = policy.Guidelines[0].GuidelineID
		}
		if err := s.auditStore.Append(ctx, entry); err != nil {
			s.logger.Warn("evaluation audit append failed", "tenant_id", tenantID, "error", err)
		}
	}

	s.logger.Debug("evaluation completed",
		"tenant_id", tenantID,
		"matched_count", policy.MatchedCount,
		"hitl_gates", len(policy.HITLGates),
		"latency", time.Since(start),
	)
}

// contextMap converts the task context to the audit entry payload, keeping
// only present fields.
func contextMap(tc guideline.TaskContext) map[string]any {
	m := make(map[string]any)
	if tc.Agent != "" {
		m["agent"] = tc.Agent
	}
	if tc.Domain != "" {
		m["domain"] = tc.Domain
	}
	if tc.Action != "" {
		m["action"] = tc.Action
	}
	if tc.Path != "" {
		m["path"] = tc.Path
	}
	if tc.Event != "" {
		m["event"] = tc.Event
	}
	if tc.GateType != "" {
		m["gate_type"] = tc.GateType
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// cacheKey hashes the tenant, the context, and the snapshot fingerprint
// (id, version, enabled per guideline). Folding the fingerprint in means a
// mutation changes every key, so stale policies are never served from cache.
func cacheKey(tenantID string, tc guideline.TaskContext, snapshot []guideline.Guideline) uint64 {
	h := xxhash.New()
	sep := []byte{0}

	_, _ = h.WriteString(tenantID)
	_, _ = h.Write(sep)
	for _, field := range []string{tc.Agent, tc.Domain, tc.Action, tc.Path, tc.Event, tc.GateType} {
		_, _ = h.WriteString(field)
		_, _ = h.Write(sep)
	}

	// Deterministic snapshot fingerprint regardless of list order.
	keys := make([]string, 0, len(snapshot))
	for _, g := range snapshot {
		keys = append(keys, g.ID+":"+strconv.Itoa(g.Version))
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = h.WriteString(k)
		_, _ = h.Write(sep)
	}
	return h.Sum64()
}
