package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "obsp-workers/internal/common/errors"
	"obsp-workers/internal/common/logger"
)

// TopicPublisher is satisfied by aws.SNSClient.
type TopicPublisher interface {
	Publish(ctx context.Context, subject, message string, attributes map[string]string) (string, error)
}

// Mailer is satisfied by aws.SESClient.
type Mailer interface {
	SendText(ctx context.Context, to []string, subject, body string) (string, error)
}

// SupportAlerter tells support about purchases whose configuration was not
// saved. Either channel may be nil.
type SupportAlerter struct {
	topic  TopicPublisher
	mailer Mailer
	to     []string
	logger logger.Logger
}

func NewSupportAlerter(topic TopicPublisher, mailer Mailer, to []string, log logger.Logger) *SupportAlerter {
	return &SupportAlerter{topic: topic, mailer: mailer, to: to, logger: log}
}

func (a *SupportAlerter) SoftCompletion(ctx context.Context, attempt Attempt) error {
	subject := fmt.Sprintf("OBSP purchase not saved: %s/%s", attempt.PackageID, attempt.LevelKey)
	body := alertBody(attempt)

	var errs []error
	if a.topic != nil {
		id, err := a.topic.Publish(ctx, subject, body, map[string]string{
			"attemptId": attempt.ID,
			"packageId": attempt.PackageID,
		})
		if err != nil {
			errs = append(errs, apperrors.NewAlertSendFailedError("sns", err))
		} else {
			a.logger.Info("soft completion alert published", map[string]interface{}{"attemptId": attempt.ID, "messageId": id})
		}
	}
	if a.mailer != nil && len(a.to) > 0 {
		id, err := a.mailer.SendText(ctx, a.to, subject, body)
		if err != nil {
			errs = append(errs, apperrors.NewAlertSendFailedError("ses", err))
		} else {
			a.logger.Info("soft completion alert emailed", map[string]interface{}{"attemptId": attempt.ID, "messageId": id})
		}
	}
	return errors.Join(errs...)
}

func alertBody(a Attempt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Checkout attempt %s was charged but the configuration could not be saved.\n\n", a.ID)
	fmt.Fprintf(&b, "Package:      %s\n", a.PackageID)
	fmt.Fprintf(&b, "Level:        %s\n", a.LevelKey)
	fmt.Fprintf(&b, "Amount:       %d\n", a.TotalAmount)
	fmt.Fprintf(&b, "Draft:        %s\n", a.DraftID)
	fmt.Fprintf(&b, "Error code:   %s\n", a.ErrorCode)
	fmt.Fprintf(&b, "Recorded at:  %s\n", a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	return b.String()
}
