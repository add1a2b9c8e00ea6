package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/Krusherk/ritquiz/internal/app"
	"github.com/Krusherk/ritquiz/internal/domain"
)

// QuizCache is a read-through cache over a quiz reader. Quiz metadata and
// the ordered question set are stored as JSON per quiz with a jittered TTL;
// singleflight collapses concurrent misses so the backing store sees one
// load per key.
type QuizCache struct {
	client *redis.Client
	inner  app.QuizReader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuizCache(client *redis.Client, inner app.QuizReader, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type cachedQuiz struct {
	Quiz      domain.Quiz       `json:"quiz"`
	Questions []domain.Question `json:"questions"`
}

func (c *QuizCache) Get(ctx context.Context, id string) (domain.Quiz, error) {
	entry, err := c.load(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	return entry.Quiz, nil
}

func (c *QuizCache) Questions(ctx context.Context, quizID string) ([]domain.Question, error) {
	entry, err := c.load(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return entry.Questions, nil
}

// Invalidate drops the cached entry; the QuizRepository decorator calls
// this on every catalog mutation so edits are visible before the TTL
// lapses.
func (c *QuizCache) Invalidate(ctx context.Context, quizID string) {
	_ = c.client.Del(ctx, c.key(quizID)).Err()
}

func (c *QuizCache) load(ctx context.Context, quizID string) (cachedQuiz, error) {
	if entry, ok := c.fetch(ctx, quizID); ok {
		return entry, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if entry, ok := c.fetch(ctx, quizID); ok {
			return entry, nil
		}

		quiz, err := c.inner.Get(ctx, quizID)
		if err != nil {
			return cachedQuiz{}, err
		}
		questions, err := c.inner.Questions(ctx, quizID)
		if err != nil {
			return cachedQuiz{}, err
		}
		entry := cachedQuiz{Quiz: quiz, Questions: questions}

		if raw, err := json.Marshal(entry); err == nil {
			_ = c.client.Set(ctx, c.key(quizID), raw, c.ttlWithJitter()).Err()
		}
		return entry, nil
	})
	if err != nil {
		return cachedQuiz{}, err
	}
	return result.(cachedQuiz), nil
}

func (c *QuizCache) fetch(ctx context.Context, quizID string) (cachedQuiz, bool) {
	raw, err := c.client.Get(ctx, c.key(quizID)).Bytes()
	if err != nil {
		return cachedQuiz{}, false
	}
	var entry cachedQuiz
	if err := json.Unmarshal(raw, &entry); err != nil {
		return cachedQuiz{}, false
	}
	return entry, true
}

func (c *QuizCache) key(quizID string) string {
	return "quiz:" + quizID + ":content"
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
