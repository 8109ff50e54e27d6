package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exampilot-api/internal/dto"
	"github.com/noah-isme/exampilot-api/internal/observability"
)

const evaluationQueueGroup = "exampilot-evaluations"

// EvaluationDispatcher hands evaluation runs to background workers.
type EvaluationDispatcher interface {
	Dispatch(ctx context.Context, submissionID string) error
}

type evaluationRequestedEvent struct {
	SubmissionID string    `json:"submission_id"`
	RequestedAt  time.Time `json:"requested_at"`
}

// EvaluationSubject derives the NATS subject for evaluation requests from the channel base.
func EvaluationSubject(channelBase string) string {
	base := strings.Trim(strings.ReplaceAll(channelBase, ":", "."), ".")
	if base == "" {
		base = "exampilot"
	}
	return base + ".evaluations.requested"
}

type natsEvaluationDispatcher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSEvaluationDispatcher publishes evaluation requests on NATS.
func NewNATSEvaluationDispatcher(conn *nats.Conn, channelBase string, logger zerolog.Logger) EvaluationDispatcher {
	return &natsEvaluationDispatcher{
		conn:    conn,
		subject: EvaluationSubject(channelBase),
		logger:  logger.With().Str("component", "evaluation_dispatcher").Logger(),
	}
}

func (d *natsEvaluationDispatcher) Dispatch(_ context.Context, submissionID string) error {
	if d.conn == nil {
		return errors.New("nats connection unavailable")
	}

	payload, err := encodeEvaluationRequest(submissionID)
	if err != nil {
		return err
	}
	if err := d.conn.Publish(d.subject, payload); err != nil {
		return fmt.Errorf("publish evaluation request: %w", err)
	}

	d.logger.Debug().Str("submission_id", submissionID).Str("subject", d.subject).Msg("evaluation dispatched")
	return nil
}

// EvaluationWorker runs dispatched evaluations. Replicas share the work through a queue group.
type EvaluationWorker struct {
	conn        *nats.Conn
	subject     string
	evaluations AnswerSheetEvaluationService
	logger      zerolog.Logger
}

// NewEvaluationWorker constructs a worker for the evaluation subject.
func NewEvaluationWorker(conn *nats.Conn, channelBase string, evaluations AnswerSheetEvaluationService, logger zerolog.Logger) *EvaluationWorker {
	return &EvaluationWorker{
		conn:        conn,
		subject:     EvaluationSubject(channelBase),
		evaluations: evaluations,
		logger:      logger.With().Str("component", "evaluation_worker").Logger(),
	}
}

// Start subscribes the worker. The returned function drains the subscription.
func (w *EvaluationWorker) Start(ctx context.Context) (func(), error) {
	if w.conn == nil {
		return func() {}, errors.New("nats connection unavailable")
	}

	sub, err := w.conn.QueueSubscribe(w.subject, evaluationQueueGroup, func(msg *nats.Msg) {
		w.handle(ctx, msg.Data)
	})
	if err != nil {
		return func() {}, fmt.Errorf("subscribe %s: %w", w.subject, err)
	}

	w.logger.Info().Str("subject", w.subject).Str("queue", evaluationQueueGroup).Msg("evaluation worker started")
	return func() {
		if err := sub.Drain(); err != nil {
			w.logger.Warn().Err(err).Msg("failed to drain evaluation subscription")
		}
	}, nil
}

func (w *EvaluationWorker) handle(ctx context.Context, data []byte) {
	submissionID, err := decodeEvaluationRequest(data)
	if err != nil {
		w.logger.Warn().Err(err).Msg("discarding malformed evaluation request")
		return
	}

	logger := w.logger.With().Str("submission_id", submissionID).Logger()
	if _, err := w.evaluations.Evaluate(ctx, "", dto.EvaluateAnswerSheetRequest{SubmissionID: submissionID}); err != nil {
		logger.Warn().Err(err).Msg("dispatched evaluation failed")
		return
	}
	logger.Info().Msg("dispatched evaluation completed")
}

func encodeEvaluationRequest(submissionID string) ([]byte, error) {
	return json.Marshal(evaluationRequestedEvent{SubmissionID: submissionID, RequestedAt: time.Now().UTC()})
}

func decodeEvaluationRequest(data []byte) (string, error) {
	var event evaluationRequestedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return "", err
	}
	if strings.TrimSpace(event.SubmissionID) == "" {
		return "", ErrSubmissionIDRequired
	}
	return strings.TrimSpace(event.SubmissionID), nil
}

func recordDispatch(err error) {
	result := "published"
	if err != nil {
		result = "failed"
	}
	observability.Dispatches().WithLabelValues(result).Inc()
}
