package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pcos-screening-api/internal/observability"
)

// SubjectScreeningCompleted is the default subject for finished screenings.
const SubjectScreeningCompleted = "screening.completed"

// ScreeningCompleted is emitted once the model output has been stored.
type ScreeningCompleted struct {
	SubmissionID string    `json:"submissionId"`
	Variant      string    `json:"variant"`
	UserID       *uint     `json:"userId,omitempty"`
	Probability  float64   `json:"probability"`
	RiskLevel    string    `json:"riskLevel"`
	CompletedAt  time.Time `json:"completedAt"`
}

// Publisher fans screening events out to NATS and Redis pub/sub. Either
// transport may be nil.
type Publisher struct {
	nats    *nats.Conn
	redis   *redis.Client
	subject string
	logger  zerolog.Logger
}

// NewPublisher builds a publisher for the given subject.
func NewPublisher(natsConn *nats.Conn, redisClient *redis.Client, subject string, logger zerolog.Logger) *Publisher {
	if subject == "" {
		subject = SubjectScreeningCompleted
	}
	return &Publisher{
		nats:    natsConn,
		redis:   redisClient,
		subject: subject,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Subject returns the subject events are published on.
func (p *Publisher) Subject() string {
	return p.subject
}

// PublishScreeningCompleted sends the event on every configured transport and
// joins the transport errors.
func (p *Publisher) PublishScreeningCompleted(ctx context.Context, event ScreeningCompleted) error {
	if p == nil || (p.nats == nil && p.redis == nil) {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if p.nats != nil {
		if err := p.nats.Publish(p.subject, payload); err != nil {
			errs = append(errs, err)
		}
	}
	if p.redis != nil {
		if err := p.redis.Publish(ctx, p.subject, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		observability.EventPublishFailures().WithLabelValues(p.subject).Inc()
		p.logger.Warn().Err(err).Str("submission_id", event.SubmissionID).Msg("failed to publish screening event")
		return err
	}

	p.logger.Debug().Str("submission_id", event.SubmissionID).Str("subject", p.subject).Msg("screening event published")
	return nil
}

// ConnectNATS dials the broker with reconnect logging.
func ConnectNATS(url, name string, logger zerolog.Logger) (*nats.Conn, error) {
	if url == "" {
		return nil, errors.New("nats url must not be empty")
	}
	log := logger.With().Str("component", "nats").Logger()

	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			log.Info().Str("url", conn.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
}
