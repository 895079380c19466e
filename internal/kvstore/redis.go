package kvstore

import (
	"context"
	"fmt"

	radix "github.com/mediocregopher/radix/v3"
)

// RedisStore keeps each document as a plain string value under prefix+key.
type RedisStore struct {
	client radix.Client
	prefix string
}

func NewRedisStore(client radix.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// OpenRedisPool opens a connection pool of the given size.
func OpenRedisPool(addr string, size int) (radix.Client, error) {
	pool, err := radix.NewPool("tcp", addr, size)
	if err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	return pool, nil
}

func (s *RedisStore) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	mn := radix.MaybeNil{Rcv: &value}
	if err := s.client.Do(radix.Cmd(&mn, "GET", s.prefix+key)); err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", key, err)
	}
	if mn.Nil {
		return nil, ErrKeyNotFound
	}
	return value, nil
}

func (s *RedisStore) Set(_ context.Context, key string, value []byte) error {
	if err := s.client.Do(radix.Cmd(nil, "SET", s.prefix+key, string(value))); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Remove(_ context.Context, key string) error {
	if err := s.client.Do(radix.Cmd(nil, "DEL", s.prefix+key)); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}
