package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-forge-service/internal/domain"
)

// UserStore keeps users as JSON with a username -> id index claimed via SETNX.
type UserStore struct {
	client *redis.Client
}

func NewUserStore(client *redis.Client) *UserStore {
	return &UserStore{client: client}
}

func (s *UserStore) CreateUser(ctx context.Context, u domain.User) error {
	claimed, err := s.client.SetNX(ctx, usernameKey(u.Username), u.ID, 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return domain.ErrUsernameTaken
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.client.Set(ctx, userKey(u.ID), data, 0).Err(); err != nil {
		// release the username so the caller can retry
		_ = s.client.Del(ctx, usernameKey(u.Username)).Err()
		return err
	}
	return nil
}

func (s *UserStore) GetUser(ctx context.Context, userID string) (domain.User, error) {
	raw, err := s.client.Get(ctx, userKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return domain.User{}, fmt.Errorf("decode user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	id, err := s.client.Get(ctx, usernameKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return s.GetUser(ctx, id)
}
