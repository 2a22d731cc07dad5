package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"webattack-detector/go-service/internal/pipeline"
)

const DefaultSubject = "webattack.alerts"

// Publisher is the part of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Alert is the message published when a run detects attacks.
type Alert struct {
	RunID      string      `json:"run_id"`
	Variant    string      `json:"variant"`
	Message    string      `json:"message"`
	Attacks    int         `json:"attacks"`
	Total      int         `json:"total"`
	Failed     int         `json:"failed"`
	Detections []Detection `json:"detections"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Detection is one prediction flagged as an attack.
type Detection struct {
	Label string `json:"label"`
	Input string `json:"input"`
}

// NewAlert builds the alert message for result.
func NewAlert(result *pipeline.Result) Alert {
	a := Alert{
		RunID:     result.RunID,
		Variant:   string(result.Variant),
		Message:   result.Summary.Message(),
		Attacks:   result.Summary.Attacks,
		Total:     result.Summary.Total,
		Failed:    result.Summary.Failed,
		Timestamp: result.FinishedAt,
	}
	for _, pr := range result.Predictions {
		if pr.Error == "" && pr.Attack {
			a.Detections = append(a.Detections, Detection{Label: pr.Label, Input: pr.Input})
		}
	}
	return a
}

// NATSNotifier publishes alerts as JSON on a subject.
type NATSNotifier struct {
	pub     Publisher
	subject string
	conn    *nats.Conn
}

// NewNATSNotifier wraps an existing publisher.
func NewNATSNotifier(pub Publisher, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{pub: pub, subject: subject}
}

// Connect dials the NATS server at url and returns a notifier owning the
// connection.
func Connect(url, subject string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("webattack-detector"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	n := NewNATSNotifier(conn, subject)
	n.conn = conn
	return n, nil
}

// NotifyAlert publishes the alert for result.
func (n *NATSNotifier) NotifyAlert(ctx context.Context, result *pipeline.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(NewAlert(result))
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}

	log.Info().Str("subject", n.subject).Str("run_id", result.RunID).Msg("alert published")
	return nil
}

// Close drains the connection if the notifier owns one.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
