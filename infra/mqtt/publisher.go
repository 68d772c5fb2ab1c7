// Package mqtt publishes optimisation progress and final schedules over MQTT.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/hydrothermal/core/model"
	"github.com/kilianp07/hydrothermal/core/watervalue"
	"github.com/kilianp07/hydrothermal/infra/logger"
	"github.com/kilianp07/hydrothermal/internal/eventbus"
)

// Progress is the payload published after every outer iteration.
type Progress struct {
	RunID              string  `json:"run_id"`
	Iteration          int     `json:"iteration"`
	Delta              float64 `json:"delta"`
	TotalCost          float64 `json:"total_cost"`
	ApproximatePeriods int     `json:"approximate_periods"`
	State              string  `json:"state"`
	Timestamp          int64   `json:"timestamp"`
}

// Schedule is the payload published once a run has terminated.
type Schedule struct {
	RunID       string           `json:"run_id"`
	State       string           `json:"state"`
	Iterations  int              `json:"iterations"`
	Delta       float64          `json:"delta"`
	WaterValues []float64        `json:"water_values"`
	Trajectory  model.Trajectory `json:"trajectory"`
	Summary     model.Summary    `json:"summary"`
	Timestamp   int64            `json:"timestamp"`
}

// Publisher sends run payloads to <prefix>/runs/<run_id>/{progress,schedule}.
type Publisher struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// NewPublisher connects to the broker.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt-publisher")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Publisher{
		cli:        c,
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
	}, nil
}

// ProgressTopic returns the topic carrying iteration progress for a run.
func (p *Publisher) ProgressTopic(runID string) string {
	return fmt.Sprintf("%s/runs/%s/progress", p.prefix, runID)
}

// ScheduleTopic returns the topic carrying the final schedule of a run.
func (p *Publisher) ScheduleTopic(runID string) string {
	return fmt.Sprintf("%s/runs/%s/schedule", p.prefix, runID)
}

// PublishProgress publishes one iteration report. Progress is never retained.
func (p *Publisher) PublishProgress(ctx context.Context, runID string, r watervalue.IterationReport) error {
	payload, err := json.Marshal(Progress{
		RunID:              runID,
		Iteration:          r.Iteration,
		Delta:              r.Delta,
		TotalCost:          r.Trajectory.TotalCost,
		ApproximatePeriods: len(r.Trajectory.ApproximatePeriods()),
		State:              r.State.String(),
		Timestamp:          time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return p.publish(ctx, p.ProgressTopic(runID), false, payload)
}

// PublishSchedule publishes the final schedule, retained when configured.
func (p *Publisher) PublishSchedule(ctx context.Context, s Schedule) error {
	if s.Timestamp == 0 {
		s.Timestamp = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := p.publish(ctx, p.ScheduleTopic(s.RunID), p.retain, payload); err != nil {
		return err
	}
	p.log.Infof("published schedule for run %s", s.RunID)
	return nil
}

func (p *Publisher) publish(ctx context.Context, topic string, retain bool, payload []byte) error {
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		p.log.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	return publishErr
}

// StartProgress forwards every report on the bus until the bus closes or ctx
// is cancelled. The returned channel is closed when forwarding has stopped.
func (p *Publisher) StartProgress(ctx context.Context, bus *eventbus.Bus[watervalue.IterationReport], runID string) <-chan struct{} {
	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-sub:
				if !ok {
					return
				}
				if err := p.PublishProgress(ctx, runID, r); err != nil {
					p.log.Warnf("progress %d not published: %v", r.Iteration, err)
				}
			}
		}
	}()
	return done
}

// Disconnect gracefully closes the MQTT connection.
func (p *Publisher) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
