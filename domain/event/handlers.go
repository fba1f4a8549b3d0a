package event

// HandlerFunc adapts a function to an inbound event handler.
// Handlers of a channel are invoked in registration order.
type HandlerFunc func(evt Inbound) error

func (f HandlerFunc) Handle(evt Inbound) error {
	return f(evt)
}
