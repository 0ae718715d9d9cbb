package domain

import "errors"

// Domain errors.
var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrTaskDeleted      = errors.New("task already deleted")
	ErrInvalidPriority  = errors.New("invalid task priority")
	ErrNoEntry          = errors.New("task has no entry function")
	ErrOutOfMemory      = errors.New("not enough heap for task stack")
	ErrSchedulerStopped = errors.New("scheduler stopped")
	ErrQueueFull        = errors.New("queue full")
	ErrQueueEmpty       = errors.New("queue empty")
	ErrInvalidCapacity  = errors.New("queue capacity must be positive")
	ErrNoData           = errors.New("no data received")
	ErrInvalidBaud      = errors.New("baud rate not achievable")
	ErrInvalidLED       = errors.New("no such LED")
	ErrPortClosed       = errors.New("serial port closed")
	ErrUnknownBackend   = errors.New("unknown serial backend")
	ErrUnknownFormat    = errors.New("unknown report format")
	ErrConfigExists     = errors.New("config file already exists")
)
