package usecase

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/runoshun/rtcheck/internal/domain"
)

const churnCategory = "churn"

// Ensure ChurnSupervisor implements domain.HealthCheck.
var _ domain.HealthCheck = (*ChurnSupervisor)(nil)

// Expected result of the calculation every churn worker performs.
const (
	churnOperand1 = 2.4
	churnOperand2 = 89.2
	churnProduct  = 214.08
)

// ChurnSupervisor periodically spawns a cohort of worker tasks that delete
// each other and themselves, and checks that the population stays bounded.
//
// Each cohort has two solo workers, which loop until deleted, and two paired
// workers, which each delete their solo sibling and then themselves.
type ChurnSupervisor struct {
	sched  domain.Scheduler
	logger domain.Logger
	cfg    domain.ChurnConfig
	faults domain.FaultsConfig

	mu           sync.Mutex // protects the poll state below
	baseline     int
	lastActivity uint64
	overbound    int
	started      bool

	activity       atomic.Uint64
	spawned        atomic.Uint64
	createFailures atomic.Uint64
	deleteFailures atomic.Uint64
	computeError   atomic.Bool
}

// NewChurnSupervisor creates a new ChurnSupervisor.
func NewChurnSupervisor(sched domain.Scheduler, logger domain.Logger, cfg domain.ChurnConfig, faults domain.FaultsConfig) *ChurnSupervisor {
	return &ChurnSupervisor{
		sched:  sched,
		logger: logger,
		cfg:    cfg,
		faults: faults,
	}
}

// Name returns "churn".
func (c *ChurnSupervisor) Name() string {
	return churnCategory
}

// Start creates the creator task and records the baseline population.
// Start it after every other long-lived task so that the baseline includes them.
func (c *ChurnSupervisor) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return fmt.Errorf("churn supervisor already started")
	}
	_, err := c.sched.CreateTask(domain.TaskSpec{
		Entry:     c.creator,
		Name:      "CREATOR",
		StackSize: c.cfg.StackSize,
		Priority:  c.cfg.Priority,
	})
	if err != nil {
		return fmt.Errorf("start churn: %w", err)
	}

	c.baseline = c.sched.TaskCount()
	c.started = true
	c.logger.Info(0, churnCategory, fmt.Sprintf("baseline population %d, bound %d", c.baseline, c.baseline+c.cfg.MaxExtra))
	return nil
}

// creator spawns one cohort per period.
func (c *ChurnSupervisor) creator(t domain.Task) {
	for {
		t.Delay(c.cfg.Period)

		c.spawnPair(t, "SUICID1", "SUICID2")
		c.spawnPair(t, "SUICID3", "SUICID4")

		c.activity.Add(1)
	}
}

// spawnPair creates a solo worker and a paired worker holding its handle.
func (c *ChurnSupervisor) spawnPair(t domain.Task, soloName, pairedName string) {
	solo, err := c.spawn(soloName, nil)
	if err != nil {
		c.logger.Warn(t.ID(), churnCategory, err.Error())
		return
	}
	if _, err := c.spawn(pairedName, solo); err != nil {
		c.logger.Warn(t.ID(), churnCategory, err.Error())
	}
}

func (c *ChurnSupervisor) spawn(name string, sibling domain.TaskHandle) (domain.TaskHandle, error) {
	spec := domain.TaskSpec{
		Entry:     c.worker,
		Param:     sibling,
		Name:      name,
		StackSize: c.cfg.StackSize,
		Priority:  c.cfg.Priority,
	}
	h, err := c.sched.CreateTask(spec)
	if err != nil {
		c.createFailures.Add(1)
		return nil, fmt.Errorf("spawn %s: %w", name, err)
	}
	c.spawned.Add(1)
	return h, nil
}

// worker is the entry point of every churn worker. A worker with a sibling
// deletes it once the sibling has run, then deletes itself.
func (c *ChurnSupervisor) worker(t domain.Task) {
	sibling, _ := t.Param().(domain.TaskHandle)
	d1, d2 := churnOperand1, churnOperand2

	for {
		product := d1 * d2
		if math.Abs(product-churnProduct) > 0.001 && !c.computeError.Swap(true) {
			c.logger.Error(t.ID(), churnCategory, fmt.Sprintf("%s computed %f, want %f", t.Name(), product, churnProduct))
		}

		t.Delay(c.cfg.WorkerDelay)
		if sibling == nil {
			continue
		}

		t.Yield()
		for !sibling.HasRun() && sibling.State().IsLive() {
			t.Delay(1)
		}

		if !c.faults.SkipSiblingDelete {
			// ErrTaskDeleted only happens while the kernel shuts down.
			if err := c.sched.DeleteTask(sibling); err != nil && !errors.Is(err, domain.ErrTaskDeleted) {
				c.deleteFailures.Add(1)
				c.logger.Warn(t.ID(), churnCategory, fmt.Sprintf("%s: %v", t.Name(), err))
			}
		}
		t.DeleteSelf()
	}
}

// Healthy reports false if no cohort was spawned since the previous call,
// the population fell below the baseline, the population stayed above the
// bound for OverboundPolls consecutive calls, or a worker failed.
func (c *ChurnSupervisor) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	healthy := true
	activity := c.activity.Load()
	if activity == c.lastActivity {
		c.logger.Warn(0, churnCategory, "no cohort created since last poll")
		healthy = false
	}
	c.lastActivity = activity

	population := c.sched.TaskCount()
	bound := c.baseline + c.cfg.MaxExtra
	switch {
	case population < c.baseline:
		c.logger.Warn(0, churnCategory, fmt.Sprintf("population %d below baseline %d", population, c.baseline))
		c.overbound = 0
		healthy = false
	case population > bound:
		c.overbound++
		if c.overbound >= c.cfg.OverboundPolls {
			c.logger.Warn(0, churnCategory, fmt.Sprintf("population %d above bound %d for %d polls", population, bound, c.overbound))
			healthy = false
		}
	default:
		c.overbound = 0
	}

	if c.createFailures.Load() > 0 || c.deleteFailures.Load() > 0 || c.computeError.Load() {
		healthy = false
	}
	return healthy
}

// Stats returns a snapshot of the counters.
func (c *ChurnSupervisor) Stats() domain.ChurnStats {
	c.mu.Lock()
	baseline, overbound := c.baseline, c.overbound
	c.mu.Unlock()

	return domain.ChurnStats{
		Activity:       c.activity.Load(),
		Spawned:        c.spawned.Load(),
		CreateFailures: c.createFailures.Load(),
		DeleteFailures: c.deleteFailures.Load(),
		Baseline:       baseline,
		Population:     c.sched.TaskCount(),
		Bound:          baseline + c.cfg.MaxExtra,
		OverboundPolls: overbound,
		ComputeError:   c.computeError.Load(),
	}
}
