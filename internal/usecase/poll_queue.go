package usecase

import (
	"errors"
	"fmt"

	"github.com/runoshun/rtcheck/internal/domain"
	"github.com/runoshun/rtcheck/internal/infra/queue"
)

const pollqCategory = "pollq"

// Ensure PollQueue implements domain.HealthCheck.
var _ domain.HealthCheck = (*PollQueue)(nil)

// PollQueue is a producer and a consumer exchanging an increasing sequence
// of uint16 values over a bounded queue without ever blocking on it.
//
// All counters are guarded by the kernel critical section.
type PollQueue struct {
	sched  domain.Scheduler
	logger domain.Logger
	q      *queue.Queue[uint16]
	cfg    domain.PollQConfig
	faults domain.FaultsConfig

	// Liveness counters, reset on every poll.
	producerCycles uint64
	consumerCycles uint64

	// Totals for reporting.
	produced   uint64
	consumed   uint64
	dropped    uint64
	mismatches uint64

	producerError bool
	mismatchSeen  bool
}

// NewPollQueue creates the queue shared by the producer and the consumer.
func NewPollQueue(sched domain.Scheduler, logger domain.Logger, cfg domain.PollQConfig, faults domain.FaultsConfig) (*PollQueue, error) {
	q, err := queue.New[uint16](cfg.Capacity, sched.TickDuration())
	if err != nil {
		return nil, fmt.Errorf("create poll queue: %w", err)
	}
	return &PollQueue{
		sched:  sched,
		logger: logger,
		q:      q,
		cfg:    cfg,
		faults: faults,
	}, nil
}

// Name returns "pollq".
func (p *PollQueue) Name() string {
	return pollqCategory
}

// Start creates the consumer and producer tasks.
func (p *PollQueue) Start() error {
	for _, spec := range []domain.TaskSpec{
		{Entry: p.consume, Name: "QConsNB", Priority: p.cfg.Priority},
		{Entry: p.produce, Name: "QProdNB", Priority: p.cfg.Priority},
	} {
		if _, err := p.sched.CreateTask(spec); err != nil {
			return fmt.Errorf("start poll queue: %w", err)
		}
	}
	return nil
}

// produce sends Batch values per cycle. A value that could not be sent is
// retried on the next send. A full queue stops the liveness counter for good.
func (p *PollQueue) produce(t domain.Task) {
	var value uint16
	sends := 0

	for {
		for i := 0; i < p.cfg.Batch; i++ {
			sends++
			if p.faults.DropEvery > 0 && sends%p.faults.DropEvery == 0 {
				value++
				t.EnterCritical()
				p.dropped++
				t.ExitCritical()
				continue
			}

			err := p.q.Send(t.Context(), value, 0)

			t.EnterCritical()
			switch {
			case err == nil:
				p.produced++
				if !p.producerError {
					p.producerCycles++
				}
			case errors.Is(err, domain.ErrQueueFull) && !p.producerError:
				p.producerError = true
				p.logger.Error(t.ID(), pollqCategory, fmt.Sprintf("queue full sending %d", value))
			}
			t.ExitCritical()

			if err == nil {
				value++
			}
		}
		t.Delay(p.cfg.Delay)
	}
}

// consume drains the queue and checks the sequence. A value out of sequence
// is counted and the expectation resynchronises to it.
func (p *PollQueue) consume(t domain.Task) {
	var expected uint16

	for {
		for p.q.Len() > 0 {
			v, err := p.q.Receive(t.Context(), 0)
			if err != nil {
				break
			}

			t.EnterCritical()
			if v != expected {
				p.mismatches++
				if !p.mismatchSeen {
					p.mismatchSeen = true
					p.logger.Warn(t.ID(), pollqCategory, fmt.Sprintf("expected %d, received %d; resyncing", expected, v))
				}
				expected = v
			} else {
				p.consumed++
				p.consumerCycles++
			}
			t.ExitCritical()

			expected++
		}
		t.Delay(p.cfg.Delay)
	}
}

// Healthy reports whether both tasks made progress since the previous call.
// Both liveness counters are reset on every call.
func (p *PollQueue) Healthy() bool {
	var producer, consumer uint64
	p.sched.Critical(func() {
		producer, consumer = p.producerCycles, p.consumerCycles
		p.producerCycles, p.consumerCycles = 0, 0
	})

	if producer == 0 {
		p.logger.Warn(0, pollqCategory, "producer made no progress")
	}
	if consumer == 0 {
		p.logger.Warn(0, pollqCategory, "consumer made no progress")
	}
	return producer != 0 && consumer != 0
}

// Stats returns a snapshot of the counters.
func (p *PollQueue) Stats() domain.PollQueueStats {
	var s domain.PollQueueStats
	p.sched.Critical(func() {
		s = domain.PollQueueStats{
			Produced:      p.produced,
			Consumed:      p.consumed,
			Dropped:       p.dropped,
			Mismatches:    p.mismatches,
			ProducerError: p.producerError,
			MismatchSeen:  p.mismatchSeen,
		}
	})
	s.QueueLen = p.q.Len()
	return s
}
