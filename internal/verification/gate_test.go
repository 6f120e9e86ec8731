package verification

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"slotnik/internal/domain"
	"slotnik/internal/models"
	"slotnik/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendCode(ctx context.Context, phone, channel, code string) error {
	return m.Called(ctx, phone, channel, code).Error(0)
}

func newTestGate(t *testing.T, sender domain.CodeSender) (*Gate, *repository.MemoryCodeStore, *time.Time) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	store := repository.NewMemoryCodeStore()
	gate := NewGate(store, sender, 5*time.Minute, time.Minute, &logger)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }
	return gate, store, &now
}

func TestGate_SendAndVerify(t *testing.T) {
	sender := &mockSender{}
	sender.On("SendCode", mock.Anything, "+15550100", models.ChannelSMS, mock.Anything).Return(nil)

	gate, store, _ := newTestGate(t, sender)
	ctx := context.Background()

	require.NoError(t, gate.Send(ctx, "+15550100", models.ChannelSMS))

	code, err := store.GetCode(ctx, "+15550100")
	require.NoError(t, err)
	require.NotNil(t, code)
	assert.Len(t, code.Code, models.CodeLength)

	require.NoError(t, gate.Verify(ctx, "+15550100", code.Code))

	// One-time use: the second attempt finds no live code.
	err = gate.Verify(ctx, "+15550100", code.Code)
	assert.ErrorIs(t, err, ErrCodeExpired)

	sender.AssertExpectations(t)
}

func TestGate_ResendCooldown(t *testing.T) {
	sender := &mockSender{}
	sender.On("SendCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	gate, store, _ := newTestGate(t, sender)
	ctx := context.Background()

	require.NoError(t, gate.Send(ctx, "+15550100", models.ChannelSMS))
	first, err := store.GetCode(ctx, "+15550100")
	require.NoError(t, err)

	// Retry at T+30s: still cooling down.
	err = gate.Send(ctx, "+15550100", models.ChannelSMS)
	var cooldown *CooldownError
	require.ErrorAs(t, err, &cooldown)
	assert.Greater(t, cooldown.Remaining, time.Duration(0))

	// Another phone is unaffected.
	assert.NoError(t, gate.Send(ctx, "+15550199", models.ChannelVoice))

	// After the cooldown a resend succeeds and replaces the first code.
	require.NoError(t, store.StartCooldown(ctx, "+15550100", 0))
	require.NoError(t, gate.Send(ctx, "+15550100", models.ChannelSMS))

	second, err := store.GetCode(ctx, "+15550100")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// The first code is dead even if it happened to differ.
	if first.Code != second.Code {
		assert.ErrorIs(t, gate.Verify(ctx, "+15550100", first.Code), ErrCodeMismatch)
	}
	assert.NoError(t, gate.Verify(ctx, "+15550100", second.Code))
}

func TestGate_VerifyExpired(t *testing.T) {
	sender := &mockSender{}
	sender.On("SendCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	gate, store, now := newTestGate(t, sender)
	ctx := context.Background()

	require.NoError(t, gate.Send(ctx, "+15550100", models.ChannelSMS))
	code, err := store.GetCode(ctx, "+15550100")
	require.NoError(t, err)

	*now = now.Add(6 * time.Minute)
	assert.ErrorIs(t, gate.Verify(ctx, "+15550100", code.Code), ErrCodeExpired)
}

func TestGate_VerifyMismatchKeepsCodeLive(t *testing.T) {
	sender := &mockSender{}
	sender.On("SendCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	gate, store, _ := newTestGate(t, sender)
	ctx := context.Background()

	require.NoError(t, gate.Send(ctx, "+15550100", models.ChannelSMS))
	code, err := store.GetCode(ctx, "+15550100")
	require.NoError(t, err)

	wrong := "000000"
	if code.Code == wrong {
		wrong = "000001"
	}
	assert.ErrorIs(t, gate.Verify(ctx, "+15550100", wrong), ErrCodeMismatch)

	// The real code still works after a failed guess.
	assert.NoError(t, gate.Verify(ctx, "+15550100", code.Code))
}

func TestGate_BadChannel(t *testing.T) {
	gate, _, _ := newTestGate(t, &mockSender{})
	err := gate.Send(context.Background(), "+15550100", "carrier-pigeon")
	assert.ErrorIs(t, err, ErrBadChannel)
}

func TestGate_TransientSendRetried(t *testing.T) {
	sender := &mockSender{}
	transient := errors.New("gateway timeout")
	wrapped := errors.Join(domain.ErrTransient, transient)
	sender.On("SendCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(wrapped).Twice()
	sender.On("SendCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	gate, _, _ := newTestGate(t, sender)
	gate.retry.InitialDelay = time.Millisecond
	gate.retry.MaxDelay = time.Millisecond

	assert.NoError(t, gate.Send(context.Background(), "+15550100", models.ChannelSMS))
	sender.AssertNumberOfCalls(t, "SendCode", 3)
}

func TestGate_PermanentSendFails(t *testing.T) {
	sender := &mockSender{}
	sender.On("SendCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("invalid number")).Once()

	gate, _, _ := newTestGate(t, sender)
	err := gate.Send(context.Background(), "+15550100", models.ChannelSMS)
	assert.Error(t, err)
	sender.AssertNumberOfCalls(t, "SendCode", 1)
}
