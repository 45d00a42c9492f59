package handler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yourusername/vocabot/internal/pkg/metrics"
	"go.uber.org/zap"
)

const (
	connectionBackoff = 15 * time.Second
	retryBackoff      = 5 * time.Second
)

// Run polls for updates and sends the daily batch until ctx is cancelled.
// Fetch failures and handler failures never stop the loop.
func (h *TelegramHandler) Run(ctx context.Context) error {
	state := PollState{NextRun: h.trigger.Next(h.now())}

	zap.L().Info("bot started",
		zap.String("batch_time", h.trigger.String()),
		zap.Time("next_batch", state.NextRun))

	for {
		state = h.cycle(ctx, state)

		if !h.sleep(ctx, h.opts.PollInterval) {
			zap.L().Info("bot stopped", zap.Int("offset", state.Offset))
			return nil
		}
	}
}

// cycle runs the batch if it is due, then fetches and dispatches one batch of
// updates. The returned state replaces the one passed in.
func (h *TelegramHandler) cycle(ctx context.Context, state PollState) PollState {
	state = h.runBatchIfDue(ctx, state)

	updates, err := h.fetchUpdates(ctx, state.Offset)
	if err != nil {
		if ctx.Err() != nil {
			return state
		}

		class, backoff := classifyFetchError(err)
		metrics.PollErrors.WithLabelValues(class).Inc()
		zap.L().Error("fetch updates", zap.Error(err),
			zap.String("class", class), zap.Duration("backoff", backoff), zap.Int("offset", state.Offset))

		h.sleep(ctx, backoff)
		return state
	}

	for _, update := range updates {
		h.dispatch(ctx, update)
		if update.UpdateID >= state.Offset {
			state.Offset = update.UpdateID + 1
		}
	}

	return state
}

func (h *TelegramHandler) runBatchIfDue(ctx context.Context, state PollState) PollState {
	now := h.now()
	if !state.due(now) {
		return state
	}

	zap.L().Info("starting daily vocabulary batch")
	if err := h.sendBatchSafely(ctx); err != nil {
		zap.L().Error("send vocabulary batch", zap.Error(err))
	}

	state.LastFired = now
	state.NextRun = h.trigger.Next(now)
	zap.L().Info("next vocabulary batch scheduled", zap.Time("next_batch", state.NextRun))

	return state
}

// panicError carries a value recovered from a panic in the poll loop.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (h *TelegramHandler) fetchUpdates(ctx context.Context, offset int) (updates []tgbotapi.Update, err error) {
	defer func() {
		if r := recover(); r != nil {
			updates, err = nil, &panicError{value: r}
		}
	}()
	return h.gateway.FetchUpdates(ctx, offset)
}

func (h *TelegramHandler) sendBatchSafely(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PollErrors.WithLabelValues("panic").Inc()
			err = &panicError{value: r}
		}
	}()
	return h.SendVocabularyBatch(ctx)
}

// dispatch handles a single update. Errors and panics are logged and the
// update is treated as consumed either way.
func (h *TelegramHandler) dispatch(ctx context.Context, update tgbotapi.Update) {
	kind := updateKind(update)
	outcome := "ok"

	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			zap.L().Error("panic while handling update",
				zap.Any("panic", r), zap.Int("update_id", update.UpdateID), zap.String("kind", kind))
		}
		metrics.UpdatesProcessed.WithLabelValues(kind, outcome).Inc()
	}()

	if h.dedup != nil {
		seen, err := h.dedup.Seen(ctx, update.UpdateID)
		if err != nil {
			zap.L().Warn("dedup check failed, handling update anyway", zap.Error(err), zap.Int("update_id", update.UpdateID))
		}
		if seen {
			outcome = "duplicate"
			zap.L().Info("skipping already handled update", zap.Int("update_id", update.UpdateID))
			return
		}
	}

	if err := h.handleUpdate(ctx, update); err != nil {
		outcome = "error"
		zap.L().Error("handle update", zap.Error(err), zap.Int("update_id", update.UpdateID), zap.String("kind", kind))
	}
}

// classifyFetchError picks a metric label and a backoff for a failed fetch.
func classifyFetchError(err error) (string, time.Duration) {
	var panicErr *panicError
	if errors.As(err, &panicErr) {
		return "panic", retryBackoff
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout", retryBackoff
		}
		return "connection", connectionBackoff
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("api_%d", apiErr.Code), retryBackoff
	}

	return "other", retryBackoff
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
