package domain

import "time"

// Report is the outcome of one self-test run.
// Fields are ordered to minimize memory padding.
type Report struct {
	Started    time.Time      `json:"started" yaml:"started"`
	Finished   time.Time      `json:"finished" yaml:"finished"`
	RunID      string         `json:"runId" yaml:"run_id"`
	Backend    string         `json:"backend" yaml:"backend"`
	Tasks      []TaskInfo     `json:"tasks,omitempty" yaml:"tasks,omitempty"`
	LEDs       []LEDState     `json:"leds" yaml:"leds"`
	Health     HealthSnapshot `json:"health" yaml:"health"`
	Serial     SerialStats    `json:"serial" yaml:"serial"`
	Kernel     KernelStats    `json:"kernel" yaml:"kernel"`
	Churn      ChurnStats     `json:"churn" yaml:"churn"`
	PollQ      PollQueueStats `json:"pollq" yaml:"pollq"`
	ComTest    ComTestStats   `json:"comtest" yaml:"comtest"`
	UART       UARTStats      `json:"uart" yaml:"uart"`
	Math       []uint64       `json:"math,omitempty" yaml:"math,omitempty"`
	Duration   time.Duration  `json:"duration" yaml:"duration"`
	Preemptive bool           `json:"preemptive" yaml:"preemptive"`
}

// Passed reports whether no fault was ever latched.
func (r *Report) Passed() bool {
	return !r.Health.Latched
}

// LEDState is the final state of one LED.
type LEDState struct {
	Bank    string `json:"bank" yaml:"bank"`
	Toggles uint64 `json:"toggles" yaml:"toggles"`
	LED     int    `json:"led" yaml:"led"`
	On      bool   `json:"on" yaml:"on"`
}

// ChurnStats is a snapshot of the churn supervisor counters.
// Fields are ordered to minimize memory padding.
type ChurnStats struct {
	Activity       uint64 `json:"activity" yaml:"activity"`
	Spawned        uint64 `json:"spawned" yaml:"spawned"`
	CreateFailures uint64 `json:"createFailures" yaml:"create_failures"`
	DeleteFailures uint64 `json:"deleteFailures" yaml:"delete_failures"`
	Baseline       int    `json:"baseline" yaml:"baseline"`
	Population     int    `json:"population" yaml:"population"`
	Bound          int    `json:"bound" yaml:"bound"`
	OverboundPolls int    `json:"overboundPolls" yaml:"overbound_polls"`
	ComputeError   bool   `json:"computeError" yaml:"compute_error"`
}

// PollQueueStats is a snapshot of the queue liveness pair counters.
// Fields are ordered to minimize memory padding.
type PollQueueStats struct {
	Produced      uint64 `json:"produced" yaml:"produced"`
	Consumed      uint64 `json:"consumed" yaml:"consumed"`
	Dropped       uint64 `json:"dropped" yaml:"dropped"`
	Mismatches    uint64 `json:"mismatches" yaml:"mismatches"`
	QueueLen      int    `json:"queueLen" yaml:"queue_len"`
	ProducerError bool   `json:"producerError" yaml:"producer_error"`
	MismatchSeen  bool   `json:"mismatchSeen" yaml:"mismatch_seen"`
}

// ComTestStats is a snapshot of the serial loopback test counters.
// Fields are ordered to minimize memory padding.
type ComTestStats struct {
	Sent        uint64 `json:"sent" yaml:"sent"`
	Received    uint64 `json:"received" yaml:"received"`
	Strings     uint64 `json:"strings" yaml:"strings"`
	TxErrors    uint64 `json:"txErrors" yaml:"tx_errors"`
	OrderErrors uint64 `json:"orderErrors" yaml:"order_errors"`
	Timeouts    uint64 `json:"timeouts" yaml:"timeouts"`
}

// SerialStats holds channel counters.
// Fields are ordered to minimize memory padding.
type SerialStats struct {
	BytesWritten   uint64 `json:"bytesWritten" yaml:"bytes_written"`
	BytesRead      uint64 `json:"bytesRead" yaml:"bytes_read"`
	DirectWrites   uint64 `json:"directWrites" yaml:"direct_writes"`
	WriteFailures  uint64 `json:"writeFailures" yaml:"write_failures"`
	ReadTimeouts   uint64 `json:"readTimeouts" yaml:"read_timeouts"`
	RxDropped      uint64 `json:"rxDropped" yaml:"rx_dropped"`
	ISRYields      uint64 `json:"isrYields" yaml:"isr_yields"`
	InterruptCalls uint64 `json:"interruptCalls" yaml:"interrupt_calls"`
	BaudRequested  int    `json:"baudRequested" yaml:"baud_requested"`
	BaudActual     int    `json:"baudActual" yaml:"baud_actual"`
	RxQueued       int    `json:"rxQueued" yaml:"rx_queued"`
	TxQueued       int    `json:"txQueued" yaml:"tx_queued"`
	QueueDepth     int    `json:"queueDepth" yaml:"queue_depth"`
	BaudReload     uint8  `json:"baudReload" yaml:"baud_reload"`
	TxIdle         bool   `json:"txIdle" yaml:"tx_idle"`
}

// UARTStats holds UART counters.
// Fields are ordered to minimize memory padding.
type UARTStats struct {
	Transmitted uint64 `json:"transmitted" yaml:"transmitted"`
	Received    uint64 `json:"received" yaml:"received"`
	Overruns    uint64 `json:"overruns" yaml:"overruns"`
	Collisions  uint64 `json:"collisions" yaml:"collisions"`
	Interrupts  uint64 `json:"interrupts" yaml:"interrupts"`
}
