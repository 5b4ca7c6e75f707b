package formstate

// Listener couples a UI render callback to a form's notification channel.
// Construct it with the callback, then call Attach after the initial render
// has finished, never during widget construction: registering mid-render
// mutates render-affecting state while the renderer is still walking it.
type Listener struct {
	form       *Form
	render     func()
	updateWhen func(*Form) bool
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// UpdateWhen installs a predicate consulted before every refresh. When it
// returns false the notification is dropped and the UI is not rebuilt.
func UpdateWhen(pred func(*Form) bool) ListenerOption {
	return func(l *Listener) { l.updateWhen = pred }
}

// NewListener creates a bridge from form notifications to render. The
// listener is inert until Attach is called.
func NewListener(form *Form, render func(), opts ...ListenerOption) *Listener {
	l := &Listener{form: form, render: render}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Attach registers the listener with its form, replacing any previous one.
func (l *Listener) Attach() {
	l.form.bind(l)
}

// Update delivers one notification: a no-op when the UpdateWhen predicate
// rejects it, otherwise the render callback runs.
func (l *Listener) Update() {
	if l.updateWhen != nil && !l.updateWhen(l.form) {
		return
	}
	l.render()
}

// Close unregisters the listener so a dead renderer is never notified.
func (l *Listener) Close() {
	l.form.unbind(l)
}
