package queue

import "github.com/runoshun/rtcheck/internal/domain"

// waiter is one blocked task.
type waiter struct {
	ready chan struct{}
	prio  domain.Priority
}

// waitList keeps blocked tasks ordered by priority, then arrival.
// All methods are called with the queue lock held.
type waitList struct {
	waiters []*waiter
}

func (l *waitList) add(prio domain.Priority) *waiter {
	w := &waiter{ready: make(chan struct{}, 1), prio: prio}

	i := len(l.waiters)
	for i > 0 && l.waiters[i-1].prio < prio {
		i--
	}
	l.waiters = append(l.waiters, nil)
	copy(l.waiters[i+1:], l.waiters[i:])
	l.waiters[i] = w
	return w
}

func (l *waitList) remove(w *waiter) {
	for i, x := range l.waiters {
		if x == w {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			return
		}
	}
}

// abandon removes w. A wake w already received is handed to the next waiter.
func (l *waitList) abandon(w *waiter) {
	l.remove(w)
	select {
	case <-w.ready:
		l.wakeOne()
	default:
	}
}

// wakeOne releases the first waiter. It reports whether there was one.
func (l *waitList) wakeOne() bool {
	if len(l.waiters) == 0 {
		return false
	}
	w := l.waiters[0]
	l.waiters = l.waiters[1:]
	w.ready <- struct{}{}
	return true
}

func (l *waitList) len() int {
	return len(l.waiters)
}
