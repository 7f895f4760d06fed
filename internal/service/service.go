// Package service runs verification and stage jobs received over NATS,
// letting orchestrators submit work without linking this module.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/stagegate/stagegate/internal/metrics"
	"github.com/stagegate/stagegate/pkg/controller"
	"github.com/stagegate/stagegate/pkg/verify"
)

// Job kinds accepted on the job subject.
const (
	KindVerify   = "verify"
	KindPrecheck = "precheck"
	KindStage    = "stage"
)

// Job is a unit of work submitted over NATS.
type Job struct {
	Kind        string `json:"kind"`
	Producer    string `json:"producer"`
	Instruction string `json:"instruction,omitempty"`
}

// JobResult is published for each processed job.
type JobResult struct {
	Kind     string `json:"kind"`
	Producer string `json:"producer"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Payload  any    `json:"payload,omitempty"`
}

// Config defines the service's NATS wiring.
type Config struct {
	Subject       string
	ResultSubject string
	Queue         string
}

// Service subscribes to a job subject and processes verification and
// stage jobs. Results go to the request's reply subject when set,
// otherwise to the configured result subject.
type Service struct {
	nc       *nats.Conn
	verifier *verify.Verifier
	ctrl     *controller.Controller
	cfg      Config
	logger   *zap.Logger
	metrics  *metrics.Set
	sub      *nats.Subscription
}

// New creates a Service. The controller may be nil when only verify and
// precheck jobs are expected.
func New(nc *nats.Conn, verifier *verify.Verifier, ctrl *controller.Controller, cfg Config, logger *zap.Logger, m *metrics.Set) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New("stagegate")
	}
	return &Service{
		nc:       nc,
		verifier: verifier,
		ctrl:     ctrl,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
	}
}

// Start subscribes to the job subject in the configured queue group.
func (s *Service) Start(ctx context.Context) error {
	sub, err := s.nc.QueueSubscribe(s.cfg.Subject, s.cfg.Queue, func(msg *nats.Msg) {
		s.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.cfg.Subject, err)
	}
	s.sub = sub
	s.logger.Info("job service started",
		zap.String("subject", s.cfg.Subject),
		zap.String("queue", s.cfg.Queue))
	return nil
}

// Stop drains the subscription so in-flight jobs finish.
func (s *Service) Stop() error {
	if s.sub == nil {
		return nil
	}
	if err := s.sub.Drain(); err != nil {
		return fmt.Errorf("drain subscription: %w", err)
	}
	return nil
}

func (s *Service) handle(ctx context.Context, msg *nats.Msg) {
	start := time.Now()

	var job Job
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		s.metrics.NATSFailed.Inc()
		s.logger.Warn("malformed job message", zap.Error(err))
		s.reply(msg, JobResult{OK: false, Error: "malformed job: " + err.Error()})
		return
	}

	s.logger.Info("job received",
		zap.String("kind", job.Kind),
		zap.String("producer", job.Producer))

	result := s.process(ctx, job)
	s.reply(msg, result)

	s.metrics.JobDuration.Observe(time.Since(start).Seconds())
	if result.OK {
		s.metrics.NATSProcessed.Inc()
	} else {
		s.metrics.NATSFailed.Inc()
	}
}

func (s *Service) process(ctx context.Context, job Job) JobResult {
	result := JobResult{Kind: job.Kind, Producer: job.Producer}

	switch job.Kind {
	case KindVerify:
		vr, err := s.verifier.Verify(job.Producer)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		if vr.Passed {
			s.metrics.Verifications.WithLabelValues("pass").Inc()
		} else {
			s.metrics.Verifications.WithLabelValues("fail").Inc()
		}
		result.OK = true
		result.Payload = vr

	case KindPrecheck:
		pr, err := s.verifier.Precheck(job.Producer)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.OK = true
		result.Payload = pr

	case KindStage:
		if s.ctrl == nil {
			result.Error = "stage jobs are not enabled"
			return result
		}
		outcome, err := s.ctrl.Run(ctx, job.Producer, job.Instruction)
		if err != nil {
			result.Error = err.Error()
			s.metrics.JobsTotal.WithLabelValues("error").Inc()
			return result
		}
		if outcome.Attempts > 1 {
			s.metrics.Retries.Add(float64(outcome.Attempts - 1))
		}
		s.metrics.JobsTotal.WithLabelValues(outcome.State.String()).Inc()
		result.OK = true
		result.Payload = outcome

	default:
		result.Error = fmt.Sprintf("unknown job kind %q", job.Kind)
	}

	return result
}

// reply publishes a result to the message's reply subject, falling back
// to the configured result subject.
func (s *Service) reply(msg *nats.Msg, result JobResult) {
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("marshal job result", zap.Error(err))
		return
	}

	subject := msg.Reply
	if subject == "" {
		subject = s.cfg.ResultSubject
	}
	if subject == "" {
		return
	}
	if err := s.nc.Publish(subject, data); err != nil {
		s.logger.Error("publish job result",
			zap.String("subject", subject),
			zap.Error(err))
	}
}
