package contact

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "compound-site/internal/common/errors"
	"compound-site/internal/common/logger"
	"compound-site/internal/common/metrics"
	"compound-site/internal/common/validation"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
)

const Component = "contact"

var ErrInvalidMessage = apperrors.Sentinel(apperrors.ErrCodeInvalidRequest, "Contact message is incomplete")

var messageSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["name", "email", "message"],
	"properties": {
		"name": {"type": "string", "minLength": 1, "maxLength": 200},
		"email": {"type": "string", "minLength": 3, "maxLength": 320},
		"subject": {"type": "string", "maxLength": 300},
		"message": {"type": "string", "minLength": 1, "maxLength": 10000}
	}
}`)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Handler relays contact-page messages to the team inbox.
type Handler struct {
	config    *Config
	sesClient SESService
	snsClient SNSService
	logger    logger.Logger
	now       func() time.Time
}

// NewHandler accepts nil clients when the relay is disabled.
func NewHandler(config *Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		sesClient: sesClient,
		snsClient: snsClient,
		logger:    log.WithFields(map[string]interface{}{"component": Component}),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) Send(ctx context.Context, msg Message) (*Receipt, error) {
	msg = trim(msg)
	if err := validate(msg); err != nil {
		metrics.ContactMessages.WithLabelValues("invalid").Inc()
		return nil, err
	}

	receipt := &Receipt{ID: uuid.New().String(), ReceivedAt: h.now()}

	if !h.config.Enabled || h.sesClient == nil {
		receipt.Status = StatusLogged
		metrics.ContactMessages.WithLabelValues(StatusLogged).Inc()
		h.logger.Info("contact message received", map[string]interface{}{
			"messageId": receipt.ID,
			"subject":   msg.Subject,
			"chars":     len(msg.Message),
		})
		return receipt, nil
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	out, err := h.sesClient.SendEmail(ctx, h.emailInput(msg))
	if err != nil {
		metrics.ContactMessages.WithLabelValues("error").Inc()
		h.logger.Error("contact email failed", map[string]interface{}{
			"messageId": receipt.ID,
			"error":     err.Error(),
		})
		return nil, apperrors.NewContactDeliveryFailedError(err)
	}
	if out != nil && out.MessageId != nil {
		receipt.ProviderID = *out.MessageId
	}
	receipt.Status = StatusSent

	h.alert(ctx, receipt, msg)

	metrics.ContactMessages.WithLabelValues(StatusSent).Inc()
	h.logger.Info("contact message delivered", map[string]interface{}{
		"messageId":  receipt.ID,
		"providerId": receipt.ProviderID,
	})
	return receipt, nil
}

// alert publishes a short notice to the team topic. Failures are only logged.
func (h *Handler) alert(ctx context.Context, receipt *Receipt, msg Message) {
	if h.config.AlertTopicARN == "" || h.snsClient == nil {
		return
	}
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(h.config.AlertTopicARN),
		Subject:  aws.String("New contact message"),
		Message:  aws.String(fmt.Sprintf("%s <%s>: %s", msg.Name, msg.Email, subjectLine(msg))),
	})
	if err != nil {
		h.logger.Warn("contact alert failed", map[string]interface{}{
			"messageId": receipt.ID,
			"error":     err.Error(),
		})
	}
}

func (h *Handler) emailInput(msg Message) *ses.SendEmailInput {
	body := strings.Join([]string{
		fmt.Sprintf("Name: %s", msg.Name),
		fmt.Sprintf("Email: %s", msg.Email),
		fmt.Sprintf("Subject: %s", msg.Subject),
		"",
		msg.Message,
	}, "\n")

	return &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{h.config.ToEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subjectLine(msg))},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source:           aws.String(h.config.FromEmail),
		ReplyToAddresses: []string{msg.Email},
	}
}

func subjectLine(msg Message) string {
	if msg.Subject == "" {
		return "Website enquiry from " + msg.Name
	}
	return "[Website] " + msg.Subject
}

func trim(msg Message) Message {
	return Message{
		Name:    strings.TrimSpace(msg.Name),
		Email:   strings.TrimSpace(msg.Email),
		Subject: strings.TrimSpace(msg.Subject),
		Message: strings.TrimSpace(msg.Message),
	}
}

func validate(msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	vr := messageSchema.ValidateBytes(raw)
	if !vr.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidMessage, strings.Join(vr.GetErrorMessages(), "; "))
	}
	if !validation.ValidateEmail(msg.Email) {
		return fmt.Errorf("%w: email: invalid address", ErrInvalidMessage)
	}
	return nil
}
