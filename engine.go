// Package formstate separates form validation and submission state from the
// widgets that render it: a Form tracks field values, memoizes validation,
// debounces callbacks, and batches UI notifications behind a listener bridge.
package formstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Defaults for the two engine debouncers. Callback dispatch waits for a
// quiet period in user input; listener notification runs at roughly one
// frame interval to batch UI work.
const (
	DefaultCallbackDebounce = 300 * time.Millisecond
	DefaultNotifyInterval   = 16 * time.Millisecond
)

// ErrFieldNotFound is returned when a value is addressed to an unregistered
// field name.
var ErrFieldNotFound = errors.New("formstate: field not found")

// Option configures a Form.
type Option func(*Form)

// WithAutoValidate toggles per-change validation. When disabled, changed
// fields still dispatch their callbacks but validators only run through
// SaveAndValidate.
func WithAutoValidate(enabled bool) Option {
	return func(f *Form) { f.autoValidate = enabled }
}

// WithCacheLimit sets the validation cache ceiling.
func WithCacheLimit(limit int) Option {
	return func(f *Form) { f.cache = newValidationCache(limit) }
}

// WithCallbackDebounce sets the quiet period for field callback dispatch.
func WithCallbackDebounce(delay time.Duration) Option {
	return func(f *Form) { f.callbacks = NewDebouncer(delay) }
}

// WithNotifyInterval sets the delay of the listener notification debouncer.
func WithNotifyInterval(delay time.Duration) Option {
	return func(f *Form) { f.notifier = NewDebouncer(delay) }
}

// WithLogger sets the logger used for engine diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Form) { f.logger = logger }
}

// Form coordinates one form's fields, validation, and state flags. All
// mutable state is mutex-guarded: the debouncers deliver callbacks on timer
// goroutines, so unlike a single-threaded UI event loop the engine cannot
// assume exclusive access.
type Form struct {
	mu     sync.Mutex
	spec   Spec
	logger *slog.Logger

	fields []*Field
	byName map[string]*Field

	values   Values
	previous Values
	// errors holds the engine-observed error message per field; absence
	// means the field is valid as far as the engine knows.
	errors map[string]string

	cache    *validationCache
	counters *counters

	autoValidate bool
	phase        Phase
	loading      bool
	hasErrors    bool
	success      bool

	callbacks *Debouncer
	notifier  *Debouncer
	listener  *Listener
}

// New builds a Form around spec and registers its fields.
func New(spec Spec, opts ...Option) *Form {
	f := &Form{
		spec:         spec,
		logger:       slog.Default(),
		byName:       make(map[string]*Field),
		values:       make(Values),
		previous:     make(Values),
		errors:       make(map[string]string),
		cache:        newValidationCache(DefaultCacheLimit),
		counters:     newCounters(),
		autoValidate: true,
		phase:        PhaseIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.callbacks == nil {
		f.callbacks = NewDebouncer(DefaultCallbackDebounce)
	}
	if f.notifier == nil {
		f.notifier = NewDebouncer(DefaultNotifyInterval)
	}
	f.SetFields(spec.Fields())
	return f
}

// SetFields registers the field list. Each field's initial value is copied
// into the tracked, previous, and instantaneous slots. Safe to call again
// with the same list: a field name always maps to exactly one slot.
func (f *Form) SetFields(fields []*Field) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = f.fields[:0]
	clear(f.byName)
	for _, fld := range fields {
		if _, ok := f.byName[fld.Name]; ok {
			continue
		}
		f.fields = append(f.fields, fld)
		f.byName[fld.Name] = fld
		f.values[fld.Name] = fld.InitialValue
		f.previous[fld.Name] = fld.InitialValue
		fld.Value = fld.InitialValue
		fld.instant = fld.InitialValue
	}
	// No orphan slots: values and previous hold exactly the registered set.
	for name := range f.values {
		if _, ok := f.byName[name]; !ok {
			delete(f.values, name)
			delete(f.previous, name)
			delete(f.errors, name)
		}
	}
}

// SetValue writes a field's instantaneous value and runs the change
// pipeline, the same path a UI binding takes.
func (f *Form) SetValue(name string, v any) error {
	f.mu.Lock()
	fld, ok := f.byName[name]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	fld.instant = v
	f.mu.Unlock()
	f.Changed()
	return nil
}

// SetValues bulk-writes instantaneous values (unknown names are ignored)
// and runs the change pipeline once.
func (f *Form) SetValues(values Values) {
	f.mu.Lock()
	for name, v := range values {
		if fld, ok := f.byName[name]; ok {
			fld.instant = v
		}
	}
	f.mu.Unlock()
	f.Changed()
}

// Changed is the change-pipeline entry point, invoked whenever a bound
// field's instantaneous value may differ from the engine-observed one.
// Fields are processed in registration order. Changed fields are
// re-validated (cache first) when auto-validate is on, their callbacks are
// dispatched through the callback debouncer, and a batched listener
// notification is scheduled only if something actually changed.
func (f *Form) Changed() {
	f.mu.Lock()
	changed := false
	var fire []func()
	for _, fld := range f.fields {
		cur := fld.instant
		name := fld.Name
		if valueEqual(cur, f.values[name]) {
			continue
		}
		changed = true
		f.previous[name] = f.values[name]
		f.values[name] = cur
		if f.autoValidate {
			f.validateLocked(fld, cur)
		}
		if cb := fld.OnChange; cb != nil {
			v := cur
			fire = append(fire, func() { cb(v) })
		}
		if cb := fld.OnValid; cb != nil && f.errors[name] == "" {
			v := cur
			fire = append(fire, func() { cb(v) })
		}
	}
	var validHook func(Values)
	var validValues Values
	if changed && len(f.errors) == 0 && f.formValidLocked() {
		if vn, ok := f.spec.(ValidNotifier); ok {
			validHook = vn.FormValid
			validValues = f.values.Clone()
		}
	}
	for _, fld := range f.fields {
		fld.Value = f.values[fld.Name]
	}
	if f.cache.cleanup() {
		f.counters.cacheCleanups++
		f.logger.Debug("validation cache cleaned up", "size", f.cache.size())
	}
	f.mu.Unlock()

	if len(fire) > 0 {
		_ = f.callbacks.Run(func() {
			for _, fn := range fire {
				fn()
			}
		})
	}
	if validHook != nil {
		validHook(validValues)
	}
	if changed {
		_ = f.notifier.Run(f.notifyListener)
	}
}

// SaveAndValidate syncs instantaneous values into the tracked slots and
// validates every field regardless of the auto-validate policy. Reports
// whole-form validity.
func (f *Form) SaveAndValidate() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fld := range f.fields {
		cur := fld.instant
		name := fld.Name
		if !valueEqual(cur, f.values[name]) {
			f.previous[name] = f.values[name]
			f.values[name] = cur
		}
		fld.Value = cur
		f.validateLocked(fld, cur)
	}
	if f.cache.cleanup() {
		f.counters.cacheCleanups++
	}
	return len(f.errors) == 0
}

// validateLocked runs a field's validator through the memoization cache and
// records the outcome. Caller holds f.mu.
func (f *Form) validateLocked(fld *Field, v any) {
	if fld.Validate == nil {
		delete(f.errors, fld.Name)
		return
	}
	s := stringify(v)
	res, ok := f.cache.get(fld.Name, s)
	if !ok {
		res = fld.Validate(s)
		f.counters.validations[fld.Name]++
		f.cache.put(fld.Name, s, res)
	} else {
		f.counters.cacheHits++
	}
	if res != nil {
		f.errors[fld.Name] = res.Error()
	} else {
		delete(f.errors, fld.Name)
	}
}

// formValidLocked reports whole-form validity: every field's validator must
// accept the field's current value, untouched fields included. Results go
// through the cache but are not recorded in f.errors, so a field the user
// never edited does not start displaying an error. With auto-validate off
// the engine falls back to last-known validity. Caller holds f.mu.
func (f *Form) formValidLocked() bool {
	if !f.autoValidate {
		return len(f.errors) == 0
	}
	for _, fld := range f.fields {
		if fld.Validate == nil {
			continue
		}
		s := stringify(f.values[fld.Name])
		res, ok := f.cache.get(fld.Name, s)
		if !ok {
			res = fld.Validate(s)
			f.counters.validations[fld.Name]++
			f.cache.put(fld.Name, s, res)
		}
		if res != nil {
			return false
		}
	}
	return true
}

// Submit runs the submission state machine: clear hasErrors and success,
// enter the submitting phase and notify, validate the whole form, then hand
// the values to the spec's Submit hook. A validation failure only sets
// hasErrors (never an error); a hook failure sets hasErrors and propagates.
// Success reflects the outcome of this attempt only, never a previous one.
// Exactly one idle restore plus notify runs on every exit path.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	f.hasErrors = false
	f.success = false
	f.phase = PhaseSubmitting
	f.mu.Unlock()
	f.notifyListener()
	defer func() {
		f.mu.Lock()
		f.phase = PhaseIdle
		f.mu.Unlock()
		f.notifyListener()
	}()

	if !f.SaveAndValidate() {
		f.mu.Lock()
		f.hasErrors = true
		f.mu.Unlock()
		return nil
	}
	if err := f.spec.Submit(ctx, f.Values()); err != nil {
		f.mu.Lock()
		f.hasErrors = true
		f.mu.Unlock()
		f.logger.Warn("form submit failed", "error", err)
		return fmt.Errorf("formstate: submit: %w", err)
	}
	f.mu.Lock()
	f.success = true
	f.mu.Unlock()
	return nil
}

// Reset restores every field to its initial value and clears the
// engine-observed errors, then calls the spec's FormReset hook once. The
// validation cache is deliberately left alone; call ClearValidationCache
// when the cached results must go too.
func (f *Form) Reset() {
	f.mu.Lock()
	for _, fld := range f.fields {
		f.values[fld.Name] = fld.InitialValue
		f.previous[fld.Name] = fld.InitialValue
		fld.Value = fld.InitialValue
		fld.instant = fld.InitialValue
	}
	clear(f.errors)
	f.hasErrors = false
	rn, _ := f.spec.(ResetNotifier)
	f.mu.Unlock()
	if rn != nil {
		rn.FormReset()
	}
}

// SetValidationErrors imposes errors produced outside the engine, e.g. by a
// remote call. Each named registered field is forced invalid with the first
// message of its list.
func (f *Form) SetValidationErrors(errs map[string][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hasErrors = true
	for name, msgs := range errs {
		if _, ok := f.byName[name]; !ok {
			continue
		}
		if len(msgs) == 0 {
			continue
		}
		f.errors[name] = msgs[0]
	}
}

// SetLoading mutates the loading flag. State setters do not notify the
// listener; the UI catches up on the next change- or submit-driven
// notification.
func (f *Form) SetLoading(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = v
}

// SetHasErrors mutates the error flag without notifying the listener.
func (f *Form) SetHasErrors(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hasErrors = v
}

// SetSuccess mutates the success flag without notifying the listener.
func (f *Form) SetSuccess(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.success = v
}

func (f *Form) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// Progressing reports whether a submit is in flight.
func (f *Form) Progressing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase == PhaseSubmitting
}

func (f *Form) HasErrors() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasErrors
}

func (f *Form) Success() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.success
}

func (f *Form) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Values returns a snapshot of the tracked values.
func (f *Form) Values() Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values.Clone()
}

// Value returns the tracked value of one field.
func (f *Form) Value(name string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[name]; !ok {
		return nil, false
	}
	return f.values[name], true
}

// PreviousValue returns the last value observed before the current one.
func (f *Form) PreviousValue(name string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[name]; !ok {
		return nil, false
	}
	return f.previous[name], true
}

// FieldError returns the engine-observed error message for a field, or ""
// when the field is valid.
func (f *Form) FieldError(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors[name]
}

// Errors lists the engine-observed errors in field registration order.
func (f *Form) Errors() []ValidationError {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ValidationError
	for _, fld := range f.fields {
		if msg, ok := f.errors[fld.Name]; ok {
			out = append(out, ValidationError{Field: fld.Name, Message: msg})
		}
	}
	return out
}

// MissingFields lists required fields whose current value is empty.
func (f *Form) MissingFields() []FieldInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []FieldInfo
	for _, fld := range f.fields {
		if fld.Required && stringify(f.values[fld.Name]) == "" {
			out = append(out, fld.Info())
		}
	}
	return out
}

// FieldNames returns the registered names in registration order.
func (f *Form) FieldNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.fields))
	for i, fld := range f.fields {
		names[i] = fld.Name
	}
	return names
}

// PerformanceMetrics returns a snapshot of the internal counters. No side
// effects.
func (f *Form) PerformanceMetrics() Metrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters.snapshot(f.cache.size())
}

// ClearValidationCache empties the memoization cache. Memory management is
// the caller's responsibility: Reset does not do this implicitly.
func (f *Form) ClearValidationCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.clear()
	f.counters.cacheClears++
}

// Dispose cancels the debouncers and detaches the listener. The form must
// not be used afterwards.
func (f *Form) Dispose() {
	f.callbacks.Dispose()
	f.notifier.Dispose()
	f.mu.Lock()
	f.listener = nil
	f.mu.Unlock()
}

func (f *Form) bind(l *Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
}

func (f *Form) unbind(l *Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listener == l {
		f.listener = nil
	}
}

func (f *Form) notifyListener() {
	f.mu.Lock()
	l := f.listener
	f.mu.Unlock()
	if l != nil {
		l.Update()
	}
}

func valueEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
