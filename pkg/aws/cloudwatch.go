package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

// CloudWatchLogsClient ships log lines to one log stream. It implements
// io.Writer so it can be tee'd into a zap core.
type CloudWatchLogsClient struct {
	client *cloudwatchlogs.Client
	group  string
	stream string

	mu            sync.Mutex
	sequenceToken *string
}

// NewCloudWatchLogsClient ensures the log group exists and opens a fresh
// stream named after the service and start time.
func NewCloudWatchLogsClient(ctx context.Context, cfg sdkaws.Config, group, serviceName string) (*CloudWatchLogsClient, error) {
	if group == "" {
		group = "/topup/services"
	}
	c := &CloudWatchLogsClient{
		client: cloudwatchlogs.NewFromConfig(cfg),
		group:  group,
		stream: fmt.Sprintf("%s-%d", serviceName, time.Now().Unix()),
	}

	_, err := c.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: sdkaws.String(c.group)})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return nil, fmt.Errorf("failed to create log group: %w", err)
	}
	if _, err := c.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  sdkaws.String(c.group),
		LogStreamName: sdkaws.String(c.stream),
	}); err != nil {
		return nil, fmt.Errorf("failed to create log stream: %w", err)
	}
	return c, nil
}

// Write sends p as a single log event. Delivery errors go to stderr and are
// never returned, so logging cannot fail the caller.
func (c *CloudWatchLogsClient) Write(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	out, err := c.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  sdkaws.String(c.group),
		LogStreamName: sdkaws.String(c.stream),
		SequenceToken: c.sequenceToken,
		LogEvents: []types.InputLogEvent{{
			Message:   sdkaws.String(string(p)),
			Timestamp: sdkaws.Int64(time.Now().UnixMilli()),
		}},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cloudwatch write error: %v\n", err)
		return len(p), nil
	}
	c.sequenceToken = out.NextSequenceToken
	return len(p), nil
}
