package monitor

// Journaler describes an event logger. One tick appends exactly one verdict
// event, plus warning events for non-fatal failures along the way.
type Journaler interface {
	Write(Event) error
}

// warn writes a warning event, dropping the journal error: a warning that
// cannot be journaled has nowhere left to go.
func warn(j Journaler, component string, err error) {
	if err == nil {
		return
	}

	j.Write(&EventWarning{
		Component: component,
		Error:     err.Error(),
	})
}
