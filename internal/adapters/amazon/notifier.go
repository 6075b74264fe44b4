package amazon

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/okian/commentsense/internal/domain/model"
)

// SNSAPI is the subset of the Amazon SNS client in use.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier sends SMS messages through Amazon SNS.
type Notifier struct {
	api SNSAPI
}

// NewNotifier wraps an SNS client.
func NewNotifier(api SNSAPI) *Notifier {
	return &Notifier{api: api}
}

// Notify publishes msg as a direct SMS to msg.PhoneNumber.
func (n *Notifier) Notify(ctx context.Context, msg model.Notification) error {
	if msg.PhoneNumber == "" {
		return ErrNoRecipient
	}
	start := time.Now()
	_, err := n.api.Publish(ctx, &sns.PublishInput{
		Message:     aws.String(msg.Message),
		PhoneNumber: aws.String(msg.PhoneNumber),
	})
	observe("sns", start, err)
	if err != nil {
		return fmt.Errorf("publish sms: %w", err)
	}
	return nil
}
