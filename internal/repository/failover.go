package repository

import (
	"context"
	"sync/atomic"
	"time"

	"slotnik/internal/domain"
	"slotnik/internal/models"

	"github.com/rs/zerolog"
)

// FailoverDraftStore serves drafts from Redis while it is healthy and falls
// back to process memory when it is not, probing the primary again after a
// minute. Verification codes deliberately get no such wrapper: splitting the
// live-code state across two stores would break single-live-code-per-phone.
type FailoverDraftStore struct {
	primary   domain.DraftStore
	fallback  domain.DraftStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

const recoverProbeInterval = time.Minute

func NewFailoverDraftStore(primary, fallback domain.DraftStore, logger *zerolog.Logger) *FailoverDraftStore {
	return &FailoverDraftStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (f *FailoverDraftStore) markDown(err error) {
	f.logger.Error().Err(err).Msg("primary draft store failed, falling back to memory")
	f.isDown.Store(true)
	f.lastCheck.Store(time.Now().UnixNano())
}

func (f *FailoverDraftStore) shouldProbe() bool {
	return time.Since(time.Unix(0, f.lastCheck.Load())) > recoverProbeInterval
}

func (f *FailoverDraftStore) GetDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error) {
	if !f.isDown.Load() {
		draft, err := f.primary.GetDraft(ctx, sessionID)
		if err == nil {
			return draft, nil
		}
		f.markDown(err)
	} else if f.shouldProbe() {
		draft, err := f.primary.GetDraft(ctx, sessionID)
		if err == nil {
			f.isDown.Store(false)
			return draft, nil
		}
		f.lastCheck.Store(time.Now().UnixNano())
	}

	return f.fallback.GetDraft(ctx, sessionID)
}

func (f *FailoverDraftStore) SaveDraft(ctx context.Context, draft *models.BookingDraft) error {
	if !f.isDown.Load() {
		err := f.primary.SaveDraft(ctx, draft)
		if err == nil {
			return nil
		}
		f.markDown(err)
	}
	return f.fallback.SaveDraft(ctx, draft)
}

func (f *FailoverDraftStore) ClearDraft(ctx context.Context, sessionID string) error {
	if !f.isDown.Load() {
		err := f.primary.ClearDraft(ctx, sessionID)
		if err == nil {
			return nil
		}
		f.markDown(err)
	}
	return f.fallback.ClearDraft(ctx, sessionID)
}
