// Package alerts raises maintenance notices for long charging predictions.
package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"evbot/internal/common/config"
	"evbot/internal/common/logger"
	"evbot/internal/common/metrics"
	"evbot/internal/models"
	"evbot/internal/prediction"
)

const (
	ChannelSNS = "sns"
	ChannelSES = "ses"

	StatusSent   = "sent"
	StatusFailed = "failed"

	Subject = "EV battery maintenance recommended"
)

// Publisher publishes to an SNS topic. aws.SNSClient satisfies it.
type Publisher interface {
	PublishToTopic(ctx context.Context, topicARN, subject, message string, attrs map[string]string) (string, error)
}

// Mailer sends a plain-text email. aws.SESClient satisfies it.
type Mailer interface {
	SendText(ctx context.Context, from string, to []string, subject, body string) (string, error)
}

// Notifier sends one alert per enabled channel when a prediction calls for maintenance.
type Notifier struct {
	cfg       config.AlertsConfig
	publisher Publisher
	mailer    Mailer
	logger    logger.Logger
}

// NewNotifier wires the channels. A nil publisher or mailer disables that channel.
func NewNotifier(cfg config.AlertsConfig, publisher Publisher, mailer Mailer, log logger.Logger) *Notifier {
	return &Notifier{
		cfg:       cfg,
		publisher: publisher,
		mailer:    mailer,
		logger:    log.WithFields(map[string]interface{}{"component": "alerts"}),
	}
}

func (n *Notifier) snsEnabled() bool { return n.cfg.SNS.Enabled && n.publisher != nil }
func (n *Notifier) sesEnabled() bool { return n.cfg.SES.Enabled && n.mailer != nil }

// Enabled reports whether any channel can send.
func (n *Notifier) Enabled() bool {
	return n != nil && (n.snsEnabled() || n.sesEnabled())
}

// Notify alerts on long results and ignores the rest. Failures are logged and reported in
// the returned alerts.
func (n *Notifier) Notify(ctx context.Context, rec models.PredictionRecord) []models.Alert {
	if !n.Enabled() || rec.ResultType != models.ResultTypeLong {
		return nil
	}

	body := Body(rec)
	var sent []models.Alert

	if n.snsEnabled() {
		attrs := map[string]string{
			"result_type": string(rec.ResultType),
			"source":      string(rec.Source),
		}
		id, err := n.publisher.PublishToTopic(ctx, n.cfg.SNS.TopicARN, Subject, body, attrs)
		sent = append(sent, n.result(ChannelSNS, rec, body, id, err))
	}

	if n.sesEnabled() {
		id, err := n.mailer.SendText(ctx, n.cfg.SES.FromEmail, n.cfg.SES.ToEmails, Subject, body)
		sent = append(sent, n.result(ChannelSES, rec, body, id, err))
	}
	return sent
}

func (n *Notifier) result(channel string, rec models.PredictionRecord, body, messageID string, err error) models.Alert {
	alert := models.Alert{
		ID:         uuid.NewString(),
		Channel:    channel,
		Status:     StatusSent,
		ResultType: rec.ResultType,
		Subject:    Subject,
		Body:       body,
		MessageID:  messageID,
		Metadata:   map[string]interface{}{"predictionId": rec.ID},
		SentAt:     time.Now().UTC().Format(time.RFC3339),
	}

	fields := map[string]interface{}{"channel": channel, "predictionId": rec.ID}
	if err != nil {
		alert.Status = StatusFailed
		alert.Metadata["error"] = err.Error()
		n.logger.WithError(err).Warn("Failed to send maintenance alert", fields)
	} else {
		fields["messageId"] = messageID
		n.logger.Info("Maintenance alert sent", fields)
	}
	metrics.AlertsSent.WithLabelValues(channel, alert.Status).Inc()
	return alert
}

// Body renders the alert text with the inputs in schema order.
func Body(rec models.PredictionRecord) string {
	var b strings.Builder
	b.WriteString(rec.Message)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Prediction: %s (%s, class %d)\n", rec.ID, rec.Source, rec.ClassID)
	if !rec.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Recorded at: %s\n", rec.CreatedAt.UTC().Format(time.RFC3339))
	}
	b.WriteString("\nInputs:\n")
	for _, col := range prediction.Columns() {
		if v, ok := rec.Inputs[col]; ok {
			fmt.Fprintf(&b, "  %s: %v\n", col, v)
		}
	}
	return b.String()
}
