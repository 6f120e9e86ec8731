package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"slotnik/internal/config"
	"slotnik/internal/models"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// RedisCodeStore keeps verification codes keyed by phone. A key overwrite is
// what implements "latest code wins": SaveCode atomically replaces any prior
// live code for the phone.
type RedisCodeStore struct {
	client *redis.Client
}

func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}

func codeKey(phone string) string     { return "verify:code:" + phone }
func cooldownKey(phone string) string { return "verify:cooldown:" + phone }

func (r *RedisCodeStore) SaveCode(ctx context.Context, code *models.VerificationCode, ttl time.Duration) error {
	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("marshal code: %w", err)
	}
	if err := r.client.Set(ctx, codeKey(code.Phone), data, ttl).Err(); err != nil {
		return fmt.Errorf("set code in redis: %w", err)
	}
	return nil
}

func (r *RedisCodeStore) GetCode(ctx context.Context, phone string) (*models.VerificationCode, error) {
	val, err := r.client.Get(ctx, codeKey(phone)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get code from redis: %w", err)
	}

	var code models.VerificationCode
	if err := json.Unmarshal([]byte(val), &code); err != nil {
		return nil, fmt.Errorf("unmarshal code: %w", err)
	}
	return &code, nil
}

func (r *RedisCodeStore) ConsumeCode(ctx context.Context, phone string) error {
	if err := r.client.Del(ctx, codeKey(phone)).Err(); err != nil {
		return fmt.Errorf("consume code in redis: %w", err)
	}
	return nil
}

func (r *RedisCodeStore) StartCooldown(ctx context.Context, phone string, window time.Duration) error {
	if err := r.client.Set(ctx, cooldownKey(phone), 1, window).Err(); err != nil {
		return fmt.Errorf("set cooldown in redis: %w", err)
	}
	return nil
}

func (r *RedisCodeStore) CooldownRemaining(ctx context.Context, phone string) (time.Duration, error) {
	ttl, err := r.client.PTTL(ctx, cooldownKey(phone)).Result()
	if err != nil {
		return 0, fmt.Errorf("get cooldown ttl: %w", err)
	}
	if ttl < 0 {
		// -1 no expiry, -2 missing key; either way no cooldown applies.
		return 0, nil
	}
	return ttl, nil
}

// RedisDraftStore persists booking drafts keyed by workflow session id.
type RedisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{client: client, ttl: ttl}
}

func draftKey(sessionID string) string { return "draft:" + sessionID }

func (r *RedisDraftStore) GetDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error) {
	val, err := r.client.Get(ctx, draftKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft from redis: %w", err)
	}

	var draft models.BookingDraft
	if err := json.Unmarshal([]byte(val), &draft); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	return &draft, nil
}

func (r *RedisDraftStore) SaveDraft(ctx context.Context, draft *models.BookingDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := r.client.Set(ctx, draftKey(draft.SessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set draft in redis: %w", err)
	}
	return nil
}

func (r *RedisDraftStore) ClearDraft(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, draftKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete draft from redis: %w", err)
	}
	return nil
}
