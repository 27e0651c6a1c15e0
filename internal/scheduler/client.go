package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	// MaxTaskRetry is the asynq retry budget of lead tasks.
	MaxTaskRetry = 3
	taskTimeout  = 5 * time.Minute
	// uniqueWindow collapses repeated triggers for the same lead.
	uniqueWindow = 2 * time.Minute
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client enqueues lead tasks. It satisfies the qualification and proposal
// trigger interfaces of the intake, capture and qualification packages.
type Client struct {
	client enqueuer
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// TriggerQualification enqueues a leads.qualify task.
func (c *Client) TriggerQualification(ctx context.Context, leadID string) error {
	task, err := NewQualifyLeadTask(LeadTaskPayload{LeadID: leadID})
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

// TriggerProposal enqueues a leads.proposal task.
func (c *Client) TriggerProposal(ctx context.Context, leadID string) error {
	task, err := NewGenerateProposalTask(LeadTaskPayload{LeadID: leadID})
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("scheduler client not configured")
	}

	_, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(MaxTaskRetry),
		asynq.Timeout(taskTimeout),
		asynq.Unique(uniqueWindow),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return nil
}

func queueName(cfg config.SchedulerConfig) string {
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	return queue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
