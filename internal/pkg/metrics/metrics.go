package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "vocabot"

var (
	UpdatesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "updates_processed_total",
		Help:      "Telegram updates handled by the poller, by kind and outcome.",
	}, []string{"kind", "outcome"})

	PollErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_errors_total",
		Help:      "Failed getUpdates calls, by error class.",
	}, []string{"class"})

	Feedback = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feedback_total",
		Help:      "Flashcard answers recorded, by action.",
	}, []string{"action"})

	FlashcardsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flashcards_sent_total",
		Help:      "Flashcards delivered by the daily batch, by outcome.",
	}, []string{"outcome"})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_duration_seconds",
		Help:      "Time spent sending one daily batch to every linked user.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)

// Serve exposes the default registry on addr until ctx is done.
func Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("metrics shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("metrics server started", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.L().Error("metrics server stopped", zap.Error(err))
	}
}
