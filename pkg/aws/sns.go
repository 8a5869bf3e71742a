package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// EventMessage is one order event bound for a topic. Attributes become SNS
// string message attributes so subscribers can filter on them.
type EventMessage struct {
	TopicArn   string
	Body       []byte
	Attributes map[string]string
	// GroupID and DedupID are only sent to FIFO topics.
	GroupID string
	DedupID string
}

// EventPublisher publishes order events.
type EventPublisher interface {
	Publish(ctx context.Context, msg EventMessage) error
}

type SNSEventPublisher struct {
	client *sns.Client
}

func NewSNSEventPublisher(cfg sdkaws.Config) *SNSEventPublisher {
	return &SNSEventPublisher{client: sns.NewFromConfig(cfg)}
}

func (p *SNSEventPublisher) Publish(ctx context.Context, msg EventMessage) error {
	input, err := publishInput(msg)
	if err != nil {
		return err
	}
	if _, err := p.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", msg.TopicArn, err)
	}
	return nil
}

func isFIFOTopic(arn string) bool {
	return strings.HasSuffix(arn, ".fifo")
}

func publishInput(msg EventMessage) (*sns.PublishInput, error) {
	if msg.TopicArn == "" {
		return nil, errors.New("empty topicArn")
	}
	input := &sns.PublishInput{
		TopicArn: sdkaws.String(msg.TopicArn),
		Message:  sdkaws.String(string(msg.Body)),
	}

	for name, value := range msg.Attributes {
		if value == "" {
			continue
		}
		if input.MessageAttributes == nil {
			input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(msg.Attributes))
		}
		input.MessageAttributes[name] = types.MessageAttributeValue{
			DataType:    sdkaws.String("String"),
			StringValue: sdkaws.String(value),
		}
	}

	if isFIFOTopic(msg.TopicArn) {
		if msg.GroupID == "" {
			return nil, fmt.Errorf("fifo topic %s needs a message group id", msg.TopicArn)
		}
		input.MessageGroupId = sdkaws.String(msg.GroupID)
		if msg.DedupID != "" {
			input.MessageDeduplicationId = sdkaws.String(msg.DedupID)
		}
	}
	return input, nil
}
