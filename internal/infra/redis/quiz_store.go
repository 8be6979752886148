package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-forge-service/internal/domain"
)

const maxUpdateAttempts = 16

// QuizStore keeps quiz aggregates as JSON documents. Updates use optimistic
// WATCH/MULTI transactions on the quiz key.
type QuizStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewQuizStore stores quizzes with the given retention; zero keeps them forever.
func NewQuizStore(client *redis.Client, ttl time.Duration) *QuizStore {
	return &QuizStore{client: client, ttl: ttl}
}

func (s *QuizStore) CreateQuiz(ctx context.Context, q domain.Quiz) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quiz %s: %w", q.ID, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, quizKey(q.ID), data, s.ttl)
		pipe.ZAdd(ctx, ownerIndexKey(q.OwnerID), redis.Z{
			Score:  float64(q.CreatedAt.UnixNano()),
			Member: q.ID,
		})
		return nil
	})
	return err
}

func (s *QuizStore) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	raw, err := s.client.Get(ctx, quizKey(quizID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, err
	}
	return decodeQuiz(raw)
}

func (s *QuizStore) ListQuizzesByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error) {
	ids, err := s.client.ZRevRange(ctx, ownerIndexKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Quiz, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = quizKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		// expired quizzes leave a dangling index entry
		raw, ok := v.(string)
		if !ok {
			continue
		}
		q, err := decodeQuiz([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *QuizStore) UpdateQuiz(ctx context.Context, quizID string, fn func(*domain.Quiz) error) (domain.Quiz, error) {
	key := quizKey(quizID)
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var updated domain.Quiz
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return domain.ErrQuizNotFound
			}
			if err != nil {
				return err
			}
			q, err := decodeQuiz(raw)
			if err != nil {
				return err
			}
			if err := fn(&q); err != nil {
				return err
			}
			q.Version++
			data, err := json.Marshal(q)
			if err != nil {
				return fmt.Errorf("encode quiz %s: %w", quizID, err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, s.ttl)
				return nil
			})
			updated = q
			return err
		}, key)

		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return domain.Quiz{}, err
		}
	}
	return domain.Quiz{}, domain.ErrConcurrentUpdate
}

func decodeQuiz(raw []byte) (domain.Quiz, error) {
	var q domain.Quiz
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Quiz{}, fmt.Errorf("decode quiz: %w", err)
	}
	return q, nil
}
