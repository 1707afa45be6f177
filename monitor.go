package corosched

import "go.uber.org/multierr"

// ErrorHandler is one entry in a Monitor's handler list. It reports
// whether it claimed the error; if it did not, the error keeps climbing
// toward the parent monitor. A handler may also return a non-nil hookErr
// of its own (e.g. it tried to restart something and that itself
// failed) without claiming the original error — hookErr is folded into
// the diagnostic trail via multierr rather than discarded, so nothing a
// handler reports is silently lost even when it doesn't resolve the
// failure.
type ErrorHandler func(err error) (handled bool, hookErr error)

// Monitor is a node in a supervision tree. Errors raised synchronously
// by a job bubble up from the job's context's monitor toward the root,
// stopping at the first handler that claims them.
type Monitor struct {
	name     string
	parent   *Monitor
	handlers []ErrorHandler
}

// NewMonitor creates a monitor named name, supervised by parent. A nil
// parent makes the new monitor a root.
func NewMonitor(name string, parent *Monitor) *Monitor {
	return &Monitor{name: name, parent: parent}
}

// Name returns the monitor's name, useful only for logging/diagnostics.
func (m *Monitor) Name() string { return m.name }

// Parent returns the supervising monitor, or nil if m is a root.
func (m *Monitor) Parent() *Monitor { return m.parent }

// OnError appends h to m's handler list. Handlers registered earlier are
// consulted first.
func (m *Monitor) OnError(h ErrorHandler) {
	m.handlers = append(m.handlers, h)
}

// Detach clears m's parent link, so errors unhandled at m are never
// escalated further and simply remain unhandled from the scheduler's
// point of view.
func (m *Monitor) Detach() { m.parent = nil }

// sendExn delivers err starting at m, climbing toward the root until a
// handler claims it or the chain is exhausted. It returns whether the
// error was handled and a diagnostic error combining err with any
// non-claiming hookErr values handlers returned along the way.
func sendExn(m *Monitor, err error) (handled bool, diag error) {
	diag = err
	for cur := m; cur != nil; cur = cur.parent {
		for _, h := range cur.handlers {
			ok, hookErr := h(diag)
			if hookErr != nil {
				diag = multierr.Append(diag, hookErr)
			}
			if ok {
				return true, diag
			}
		}
	}
	return false, diag
}
