package domain

// TaskState represents the lifecycle state of a kernel task.
type TaskState string

const (
	TaskCreated         TaskState = "created"          // Created, entry not yet executed
	TaskRunning         TaskState = "running"          // Entry has started executing
	TaskDeleted         TaskState = "deleted"          // Deleted by another task, unwinding
	TaskSelfTerminating TaskState = "self_terminating" // Deleted itself, unwinding
	TaskTerminated      TaskState = "terminated"       // Removed from the scheduler, stack freed
)

// AllTaskStates returns all valid task states.
func AllTaskStates() []TaskState {
	return []TaskState{
		TaskCreated,
		TaskRunning,
		TaskDeleted,
		TaskSelfTerminating,
		TaskTerminated,
	}
}

// taskTransitions defines the allowed state transitions.
// Flow: created → running → self_terminating → terminated
//
//	   ↓            ↓
//	   └─────→ deleted ───────────→ terminated
var taskTransitions = map[TaskState][]TaskState{
	TaskCreated:         {TaskRunning, TaskDeleted},
	TaskRunning:         {TaskDeleted, TaskSelfTerminating},
	TaskDeleted:         {TaskTerminated},
	TaskSelfTerminating: {TaskTerminated},
	TaskTerminated:      {},
}

// CanTransitionTo returns true if the state can transition to the target state.
func (s TaskState) CanTransitionTo(target TaskState) bool {
	allowed, ok := taskTransitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsLive returns true while the task counts towards the population.
func (s TaskState) IsLive() bool {
	return s == TaskCreated || s == TaskRunning
}

// IsTerminal returns true if the state is terminal.
func (s TaskState) IsTerminal() bool {
	return s == TaskTerminated
}

// Display returns a human-readable representation of the state.
func (s TaskState) Display() string {
	switch s {
	case TaskCreated:
		return "Created"
	case TaskRunning:
		return "Running"
	case TaskDeleted:
		return "Deleted"
	case TaskSelfTerminating:
		return "Self-terminating"
	case TaskTerminated:
		return "Terminated"
	default:
		return string(s)
	}
}
