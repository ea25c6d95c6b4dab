package log

// MultiLogger fans events out to several sinks. Each sink may carry a Filter,
// so the console can follow transport exchanges while the trace file keeps
// everything.
type MultiLogger struct {
	sinks []sink
}

type sink struct {
	logger Logger
	filter Filter
}

// NewMultiLogger creates a MultiLogger sending every event to each logger.
// Nil loggers are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		m.Route(l, Filter{})
	}
	return m
}

// Route adds a sink that only receives events matching filter.
func (m *MultiLogger) Route(l Logger, filter Filter) {
	if l == nil {
		return
	}
	m.sinks = append(m.sinks, sink{logger: l, filter: filter})
}

// Len returns the number of sinks.
func (m *MultiLogger) Len() int {
	return len(m.sinks)
}

// Log sends the event to every matching sink in order.
func (m *MultiLogger) Log(event Event) {
	for i := range m.sinks {
		s := &m.sinks[i]
		if s.filter.matches(event) {
			s.logger.Log(event)
		}
	}
}

var _ Logger = (*MultiLogger)(nil)
