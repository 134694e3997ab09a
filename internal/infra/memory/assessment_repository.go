package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"assessment-session/internal/domain"
	"golang.org/x/sync/singleflight"
)

// AssessmentLoader fetches assessment definitions from a backing store (e.g., Postgres).
type AssessmentLoader interface {
	LoadAssessment(ctx context.Context, id domain.ID) (domain.Assessment, error)
}

// AssessmentRepository caches assessments with TTL to avoid repeated DB hits.
// Entries hold the full definition, correctness flags included, since scoring
// reads from here. Expiry is checked against an injectable clock, and the
// shared jitter source is guarded because rand.Rand is not safe for
// concurrent use across request goroutines.
type AssessmentRepository struct {
	loader AssessmentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[domain.ID]cachedAssessment
}

type cachedAssessment struct {
	assessment domain.Assessment
	expiresAt  time.Time
}

func NewAssessmentRepository(loader AssessmentLoader, ttl time.Duration) *AssessmentRepository {
	return &AssessmentRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[domain.ID]cachedAssessment),
	}
}

func (r *AssessmentRepository) GetAssessment(ctx context.Context, id domain.ID) (domain.Assessment, error) {
	if a, ok := r.cached(id); ok {
		return a, nil
	}

	result, err, _ := r.sf.Do(string(id), func() (interface{}, error) {
		if a, ok := r.cached(id); ok {
			return a, nil
		}

		a, err := r.loader.LoadAssessment(ctx, id)
		if err != nil {
			return domain.Assessment{}, err
		}

		r.mu.Lock()
		r.cache[id] = cachedAssessment{
			assessment: a,
			expiresAt:  r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return domain.Assessment{}, err
	}
	return result.(domain.Assessment), nil
}

// Invalidate drops a cached definition so the next read hits the loader.
func (r *AssessmentRepository) Invalidate(id domain.ID) {
	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()
}

func (r *AssessmentRepository) cached(id domain.ID) (domain.Assessment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[id]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Assessment{}, false
	}
	return entry.assessment, true
}

func (r *AssessmentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticAssessmentLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticAssessmentLoader struct {
	assessments map[domain.ID]domain.Assessment
}

func NewStaticAssessmentLoader(assessments map[domain.ID]domain.Assessment) *StaticAssessmentLoader {
	return &StaticAssessmentLoader{assessments: assessments}
}

func (l *StaticAssessmentLoader) LoadAssessment(_ context.Context, id domain.ID) (domain.Assessment, error) {
	if a, ok := l.assessments[id]; ok {
		return a, nil
	}
	return domain.Assessment{}, domain.ErrAssessmentNotFound
}
