package bhtsne

// IterationListener observes a fit. IterationDone runs on the fitting
// goroutine after every completed iteration; it must not modify the model.
type IterationListener interface {
	IterationDone(m *Model, iteration int)
}

// ListenerFunc adapts a function to IterationListener.
type ListenerFunc func(m *Model, iteration int)

func (f ListenerFunc) IterationDone(m *Model, iteration int) { f(m, iteration) }
