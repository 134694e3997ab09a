package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"assessment-session/internal/domain"
	"assessment-session/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AssessmentRepository caches full assessment definitions in Redis and falls
// back to a loader on cache miss.
// Definitions are stored as: SET assessment:{id}:definition <json> EX <ttl>
type AssessmentRepository struct {
	client *redis.Client
	loader memory.AssessmentLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewAssessmentRepository(client *redis.Client, loader memory.AssessmentLoader, ttl time.Duration) *AssessmentRepository {
	return &AssessmentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *AssessmentRepository) GetAssessment(ctx context.Context, id domain.ID) (domain.Assessment, error) {
	if a, ok := r.fromCache(ctx, id); ok {
		return a, nil
	}

	result, err, _ := r.sf.Do(string(id), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if a, ok := r.fromCache(ctx, id); ok {
			return a, nil
		}

		a, err := r.loader.LoadAssessment(ctx, id)
		if err != nil {
			return domain.Assessment{}, err
		}

		data, err := json.Marshal(a)
		if err != nil {
			return domain.Assessment{}, err
		}
		if err := r.client.Set(ctx, r.key(id), data, r.ttlWithJitter()).Err(); err != nil {
			log.Printf("cache assessment %s: %v", id, err)
		}
		return a, nil
	})
	if err != nil {
		return domain.Assessment{}, err
	}
	return result.(domain.Assessment), nil
}

// Invalidate removes a cached definition.
func (r *AssessmentRepository) Invalidate(ctx context.Context, id domain.ID) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

func (r *AssessmentRepository) fromCache(ctx context.Context, id domain.ID) (domain.Assessment, bool) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("read cached assessment %s: %v", id, err)
		}
		return domain.Assessment{}, false
	}
	var a domain.Assessment
	if err := json.Unmarshal(raw, &a); err != nil {
		log.Printf("decode cached assessment %s: %v", id, err)
		return domain.Assessment{}, false
	}
	return a, true
}

func (r *AssessmentRepository) key(id domain.ID) string {
	return "assessment:" + string(id) + ":definition"
}

func (r *AssessmentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
