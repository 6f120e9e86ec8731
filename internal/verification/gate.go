// Package verification issues and checks the one-time codes that gate a
// booking commit.
package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"slotnik/internal/domain"
	"slotnik/internal/models"
	"slotnik/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrCodeExpired  = errors.New("verification code expired")
	ErrCodeMismatch = errors.New("verification code does not match")
	ErrBadChannel   = errors.New("unsupported delivery channel")
)

// CooldownError reports a resend attempted before the cooldown elapsed.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("resend not allowed yet, retry in %s", e.Remaining.Round(time.Second))
}

// Gate enforces single-live-code-per-phone, TTL expiry and the resend
// cooldown. Store key semantics do the heavy lifting: saving a code replaces
// whatever was live for the phone before.
type Gate struct {
	store    domain.CodeStore
	sender   domain.CodeSender
	ttl      time.Duration
	cooldown time.Duration
	retry    worker.RetryPolicy
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewGate(store domain.CodeStore, sender domain.CodeSender, ttl, cooldown time.Duration, logger *zerolog.Logger) *Gate {
	if ttl <= 0 {
		ttl = time.Duration(models.DefaultCodeTTL) * time.Second
	}
	if cooldown <= 0 {
		cooldown = time.Duration(models.DefaultResendCooldown) * time.Second
	}
	return &Gate{
		store:    store,
		sender:   sender,
		ttl:      ttl,
		cooldown: cooldown,
		retry: worker.RetryPolicy{
			MaxRetries:    3,
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			BackoffFactor: 2,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Send issues a fresh code for the phone over the requested channel. Any
// prior live code for the phone stops working the moment the new one is
// stored.
func (g *Gate) Send(ctx context.Context, phone, channel string) error {
	if channel != models.ChannelSMS && channel != models.ChannelVoice {
		return fmt.Errorf("%w: %q", ErrBadChannel, channel)
	}

	remaining, err := g.store.CooldownRemaining(ctx, phone)
	if err != nil {
		return fmt.Errorf("check cooldown: %w", err)
	}
	if remaining > 0 {
		return &CooldownError{Remaining: remaining}
	}

	code, err := generateCode(models.CodeLength)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	issued := g.now()
	vc := &models.VerificationCode{
		ID:        uuid.NewString(),
		Phone:     phone,
		Code:      code,
		Channel:   channel,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(g.ttl),
	}

	if err := g.store.SaveCode(ctx, vc, g.ttl); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	if err := g.store.StartCooldown(ctx, phone, g.cooldown); err != nil {
		return fmt.Errorf("start cooldown: %w", err)
	}

	if err := g.deliver(ctx, phone, channel, code); err != nil {
		return err
	}

	g.logger.Info().Str("phone", phone).Str("channel", channel).Str("code_id", vc.ID).Msg("verification code sent")
	return nil
}

// deliver hands the code to the delivery layer, retrying transient failures
// with backoff before giving up.
func (g *Gate) deliver(ctx context.Context, phone, channel, code string) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = g.sender.SendCode(ctx, phone, channel, code)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrTransient) || attempt > g.retry.MaxRetries {
			break
		}
		g.logger.Warn().Err(err).Int("attempt", attempt).Msg("code delivery failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.retry.NextDelay(attempt)):
		}
	}
	return fmt.Errorf("deliver code: %w", err)
}

// Verify checks the submitted code against the live one for the phone and
// consumes it on success. A missing code reads as expired: TTL elapse is the
// only way a live code disappears without being consumed or replaced.
func (g *Gate) Verify(ctx context.Context, phone, submitted string) error {
	vc, err := g.store.GetCode(ctx, phone)
	if err != nil {
		return fmt.Errorf("load code: %w", err)
	}
	if vc == nil || vc.Consumed || g.now().After(vc.ExpiresAt) {
		return ErrCodeExpired
	}
	if vc.Code != submitted {
		return ErrCodeMismatch
	}

	if err := g.store.ConsumeCode(ctx, phone); err != nil {
		return fmt.Errorf("consume code: %w", err)
	}
	g.logger.Info().Str("phone", phone).Str("code_id", vc.ID).Msg("verification code accepted")
	return nil
}

func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
