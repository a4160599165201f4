package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// OrderingAttribute is the message attribute used as ordering key when
// per-user ordering is on.
const OrderingAttribute = "user_id"

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopic           = errors.New("pubsub notification topic is required")
	errNotInitialized    = errors.New("pubsub publisher not initialized")
)

// Client publishes notification fan-out messages to a single topic.
type Client struct {
	client  *pubsub.Client
	topic   string
	ordered bool
	notify  *pubsub.Publisher
}

// NewClient connects to Pub/Sub and fails when the notification topic is
// missing. Extra options are passed to the underlying client, e.g. an
// emulator connection.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger, opts ...option.ClientOption) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if !cfg.Enabled() {
		return nil, errNoTopic
	}
	topic := TopicResourceName(projectID, cfg.NotificationTopic)

	psClient, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, topic: topic, ordered: cfg.OrderByUser}
	if err := c.checkTopic(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	c.notify = psClient.Publisher(topic)
	c.notify.EnableMessageOrdering = cfg.OrderByUser
	if cfg.PublishTimeout > 0 {
		c.notify.PublishSettings.Timeout = cfg.PublishTimeout
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"topic": topic, "ordered": cfg.OrderByUser}), "pubsub client initialized")
	}
	return c, nil
}

func (c *Client) checkTopic(ctx context.Context) error {
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %q does not exist", c.topic)
	case err != nil:
		return fmt.Errorf("checking topic %q: %w", c.topic, err)
	}
	return nil
}

// Publish sends one message and waits for the server acknowledgement. With
// ordering on, a failed publish pauses its key; the key is resumed so the
// next notification for that user is not rejected as well.
func (c *Client) Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error) {
	if c == nil || c.notify == nil {
		return "", errNotInitialized
	}
	msg := &pubsub.Message{Data: data, Attributes: attributes}
	if c.ordered {
		msg.OrderingKey = attributes[OrderingAttribute]
	}

	id, err := c.notify.Publish(ctx, msg).Get(ctx)
	if err != nil {
		if msg.OrderingKey != "" {
			c.notify.ResumePublish(msg.OrderingKey)
		}
		return "", fmt.Errorf("publishing to %s: %w", c.topic, err)
	}
	return id, nil
}

// Ping backs the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.checkTopic(ctx)
}

// Close flushes pending publishes and releases the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.notify != nil {
		c.notify.Stop()
	}
	return c.client.Close()
}

// TopicResourceName expands a topic ID into projects/<p>/topics/<id>. Full
// names pass through unchanged.
func TopicResourceName(projectID, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	p := strings.TrimSpace(projectID)
	if p == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/topics/%s", p, n)
}
