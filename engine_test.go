package formstate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testSpec is a configurable Spec with observable hook counters.
type testSpec struct {
	fields []*Field

	mu          sync.Mutex
	submitErr   error
	submitGate  chan struct{}
	submitCalls int
	validCalls  int
	lastValid   Values
	resetCalls  int
}

func (s *testSpec) Fields() []*Field { return s.fields }

func (s *testSpec) Submit(ctx context.Context, values Values) error {
	s.mu.Lock()
	s.submitCalls++
	gate := s.submitGate
	err := s.submitErr
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (s *testSpec) FormValid(values Values) {
	s.mu.Lock()
	s.validCalls++
	s.lastValid = values
	s.mu.Unlock()
}

func (s *testSpec) FormReset() {
	s.mu.Lock()
	s.resetCalls++
	s.mu.Unlock()
}

func emailField(calls *atomic.Int64) *Field {
	return &Field{
		Name:     "email",
		Required: true,
		Validate: func(v string) error {
			if calls != nil {
				calls.Add(1)
			}
			if v == "" || !strings.Contains(v, "@") {
				return errors.New("non-empty and contains '@'")
			}
			return nil
		},
	}
}

func newTestForm(spec *testSpec, opts ...Option) *Form {
	base := []Option{
		WithCallbackDebounce(10 * time.Millisecond),
		WithNotifyInterval(5 * time.Millisecond),
	}
	return New(spec, append(base, opts...)...)
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestEmailValidationScenario(t *testing.T) {
	t.Parallel()
	spec := &testSpec{fields: []*Field{emailField(nil)}}
	f := newTestForm(spec)

	if err := f.SetValue("email", "bad"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	if f.SaveAndValidate() {
		t.Error("expected invalid form for email \"bad\"")
	}
	if f.FieldError("email") == "" {
		t.Error("expected a non-empty email error")
	}

	if err := f.SetValue("email", "a@b.com"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	if !f.SaveAndValidate() {
		t.Error("expected valid form for email \"a@b.com\"")
	}
	if msg := f.FieldError("email"); msg != "" {
		t.Errorf("expected no email error, got %q", msg)
	}
}

func TestValidationCacheHitInvariant(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	spec := &testSpec{fields: []*Field{emailField(&calls)}}
	f := newTestForm(spec)

	_ = f.SetValue("email", "a@b.com")
	_ = f.SetValue("email", "other@b.com")
	_ = f.SetValue("email", "a@b.com")

	if n := calls.Load(); n != 2 {
		t.Errorf("expected 2 validator invocations (third is a cache hit), got %d", n)
	}
	m := f.PerformanceMetrics()
	if m.CacheHits != 1 {
		t.Errorf("expected 1 cache hit, got %d", m.CacheHits)
	}
	if m.ValidationCounts["email"] != 2 {
		t.Errorf("expected per-field count 2, got %d", m.ValidationCounts["email"])
	}
}

func TestSetFieldsIdempotence(t *testing.T) {
	t.Parallel()
	spec := &testSpec{fields: []*Field{
		{Name: "a", InitialValue: "1"},
		{Name: "b", InitialValue: "2"},
	}}
	f := New(spec)
	f.SetFields(spec.Fields())
	f.SetFields(spec.Fields())

	vals := f.Values()
	if len(vals) != 2 {
		t.Fatalf("expected one slot per field, got %d: %v", len(vals), vals)
	}
	if vals["a"] != "1" || vals["b"] != "2" {
		t.Errorf("initial values lost on re-registration: %v", vals)
	}
	if names := f.FieldNames(); len(names) != 2 {
		t.Errorf("expected 2 registered fields, got %v", names)
	}
}

func TestResetRestoresInitialValues(t *testing.T) {
	t.Parallel()
	spec := &testSpec{fields: []*Field{
		{Name: "email", InitialValue: "seed@b.com"},
		{Name: "count", InitialValue: 1},
	}}
	f := newTestForm(spec)

	_ = f.SetValue("email", "changed@b.com")
	_ = f.SetValue("count", 9)
	f.Reset()

	if v, _ := f.Value("email"); v != "seed@b.com" {
		t.Errorf("email not restored: %v", v)
	}
	if v, _ := f.Value("count"); v != 1 {
		t.Errorf("count not restored: %v", v)
	}
	if spec.resetCalls != 1 {
		t.Errorf("expected FormReset called exactly once, got %d", spec.resetCalls)
	}
	if len(f.Errors()) != 0 {
		t.Errorf("expected errors cleared on reset, got %v", f.Errors())
	}
}

func TestResetKeepsValidationCache(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	spec := &testSpec{fields: []*Field{emailField(&calls)}}
	f := newTestForm(spec)

	_ = f.SetValue("email", "a@b.com")
	f.Reset()
	_ = f.SetValue("email", "a@b.com")

	if n := calls.Load(); n != 1 {
		t.Errorf("reset must not clear the cache: validator ran %d times", n)
	}

	f.ClearValidationCache()
	_ = f.SetValue("email", "x@b.com")
	_ = f.SetValue("email", "a@b.com")
	if n := calls.Load(); n != 3 {
		t.Errorf("expected revalidation after explicit clear, got %d calls", n)
	}
	if m := f.PerformanceMetrics(); m.CacheClears != 1 {
		t.Errorf("expected 1 cache clear, got %d", m.CacheClears)
	}
}

func TestSubmitAlwaysEndsIdle(t *testing.T) {
	t.Parallel()

	t.Run("hook success", func(t *testing.T) {
		t.Parallel()
		spec := &testSpec{fields: []*Field{{Name: "n", InitialValue: "v"}}}
		f := newTestForm(spec)
		if err := f.Submit(context.Background()); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if f.Progressing() {
			t.Error("progressing must be false after submit")
		}
		if !f.Success() {
			t.Error("expected success flag after a clean submit")
		}
		if spec.submitCalls != 1 {
			t.Errorf("expected one hook call, got %d", spec.submitCalls)
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		t.Parallel()
		spec := &testSpec{fields: []*Field{emailField(nil)}}
		f := newTestForm(spec)
		_ = f.SetValue("email", "nope")
		if err := f.Submit(context.Background()); err != nil {
			t.Fatalf("validation failure must not be an error: %v", err)
		}
		if f.Progressing() {
			t.Error("progressing must be false after validation failure")
		}
		if !f.HasErrors() {
			t.Error("expected hasErrors after validation failure")
		}
		if spec.submitCalls != 0 {
			t.Errorf("hook must not run on validation failure, got %d calls", spec.submitCalls)
		}
	})

	t.Run("hook failure", func(t *testing.T) {
		t.Parallel()
		spec := &testSpec{
			fields:    []*Field{{Name: "n", InitialValue: "v"}},
			submitErr: errors.New("backend down"),
		}
		f := newTestForm(spec)
		err := f.Submit(context.Background())
		if err == nil || !strings.Contains(err.Error(), "backend down") {
			t.Fatalf("expected the hook error to propagate, got %v", err)
		}
		if f.Progressing() {
			t.Error("progressing must be false after hook failure")
		}
		if !f.HasErrors() {
			t.Error("expected hasErrors after hook failure")
		}
		if f.Success() {
			t.Error("success must stay false after hook failure")
		}
	})
}

func TestSubmitProgressingDuringHook(t *testing.T) {
	t.Parallel()
	gate := make(chan struct{})
	spec := &testSpec{
		fields:     []*Field{{Name: "n", InitialValue: "v"}},
		submitGate: gate,
	}
	f := newTestForm(spec)

	done := make(chan error, 1)
	go func() { done <- f.Submit(context.Background()) }()

	eventually(t, f.Progressing, "expected progressing=true while the hook is suspended")
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}
	if f.Progressing() {
		t.Error("progressing must be false once the hook returns")
	}
}

func TestConcurrentSetValueIsRaceFree(t *testing.T) {
	t.Parallel()
	spec := &testSpec{fields: []*Field{
		emailField(nil),
		{Name: "remember", InitialValue: false},
	}}
	f := newTestForm(spec)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if i%2 == 0 {
					_ = f.SetValue("email", "a@b.com")
				} else {
					_ = f.SetValue("remember", j%2 == 0)
				}
			}
		}(i)
	}
	wg.Wait()

	if got, _ := f.Value("email"); got != "a@b.com" {
		t.Errorf("expected email to settle at \"a@b.com\", got %v", got)
	}
}

func TestSubmitClearsStaleSuccess(t *testing.T) {
	t.Parallel()
	spec := &testSpec{fields: []*Field{{Name: "n", InitialValue: "v"}}}
	f := newTestForm(spec)

	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !f.Success() {
		t.Fatal("expected success after a clean submit")
	}

	spec.mu.Lock()
	spec.submitErr = errors.New("backend down")
	spec.mu.Unlock()

	if err := f.Submit(context.Background()); err == nil {
		t.Fatal("expected the hook error to propagate")
	}
	if f.Success() {
		t.Error("success must not survive a failing submit")
	}
	if !f.HasErrors() {
		t.Error("expected hasErrors after the failing submit")
	}
}

func TestChangedDispatchesDebouncedCallbacks(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var changes []any
	var valids []any
	spec := &testSpec{}
	spec.fields = []*Field{{
		Name: "email",
		Validate: func(v string) error {
			if !strings.Contains(v, "@") {
				return errors.New("bad email")
			}
			return nil
		},
		OnChange: func(v any) {
			mu.Lock()
			changes = append(changes, v)
			mu.Unlock()
		},
		OnValid: func(v any) {
			mu.Lock()
			valids = append(valids, v)
			mu.Unlock()
		},
	}}
	f := newTestForm(spec, WithCallbackDebounce(40*time.Millisecond))

	// Rapid successive edits: only the last value's callbacks may fire.
	_ = f.SetValue("email", "a")
	_ = f.SetValue("email", "ab")
	_ = f.SetValue("email", "a@b.com")

	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) > 0 && len(valids) > 0
	}, "callbacks never fired")

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 1 || changes[0] != "a@b.com" {
		t.Errorf("expected a single OnChange for the last value, got %v", changes)
	}
	if len(valids) != 1 || valids[0] != "a@b.com" {
		t.Errorf("expected OnValid only for the valid last value, got %v", valids)
	}
}

func TestFormLevelValidHook(t *testing.T) {
	t.Parallel()
	spec := &testSpec{fields: []*Field{emailField(nil)}}
	f := newTestForm(spec)

	_ = f.SetValue("email", "bad")
	if spec.validCalls != 0 {
		t.Fatalf("FormValid must not fire while invalid, got %d", spec.validCalls)
	}

	_ = f.SetValue("email", "a@b.com")
	if spec.validCalls != 1 {
		t.Fatalf("expected FormValid once the form turned valid, got %d", spec.validCalls)
	}
	if spec.lastValid["email"] != "a@b.com" {
		t.Errorf("FormValid got stale values: %v", spec.lastValid)
	}
}

func TestFormLevelValidHookRequiresWholeFormValidity(t *testing.T) {
	t.Parallel()
	spec := &testSpec{fields: []*Field{
		emailField(nil), // never touched, invalid while empty
		{Name: "remember", InitialValue: false},
	}}
	f := newTestForm(spec)

	// Changing an unrelated field must not report an invalid form as valid.
	_ = f.SetValue("remember", true)
	if spec.validCalls != 0 {
		t.Fatalf("FormValid fired %d times although email is invalid", spec.validCalls)
	}
	if f.SaveAndValidate() {
		t.Fatal("expected whole-form validity to be false")
	}

	// The untouched field's validity check must not surface an error.
	f2 := newTestForm(&testSpec{fields: []*Field{
		emailField(nil),
		{Name: "remember", InitialValue: false},
	}})
	_ = f2.SetValue("remember", true)
	if msg := f2.FieldError("email"); msg != "" {
		t.Errorf("untouched field must not display an error, got %q", msg)
	}

	// Once every field passes, the hook fires.
	_ = f.SetValue("email", "a@b.com")
	if spec.validCalls != 1 {
		t.Errorf("expected FormValid once the whole form is valid, got %d", spec.validCalls)
	}
}

func TestAutoValidateOffSkipsValidatorsButKeepsCallbacks(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	var fired atomic.Int64
	fld := emailField(&calls)
	fld.OnChange = func(any) { fired.Add(1) }
	spec := &testSpec{fields: []*Field{fld}}
	f := newTestForm(spec, WithAutoValidate(false), WithCallbackDebounce(5*time.Millisecond))

	_ = f.SetValue("email", "bad")
	if n := calls.Load(); n != 0 {
		t.Errorf("validator must not run with auto-validate off, got %d calls", n)
	}
	eventually(t, func() bool { return fired.Load() == 1 }, "OnChange must still dispatch")

	// SaveAndValidate validates regardless of the policy.
	if f.SaveAndValidate() {
		t.Error("expected invalid form")
	}
	if calls.Load() == 0 {
		t.Error("SaveAndValidate must run validators")
	}
}

func TestSetValidationErrors(t *testing.T) {
	t.Parallel()
	spec := &testSpec{fields: []*Field{
		{Name: "email"},
		{Name: "password"},
	}}
	f := newTestForm(spec)

	f.SetValidationErrors(map[string][]string{
		"email":   {"already registered", "second message ignored"},
		"ghost":   {"no such field"},
		"missing": {},
	})

	if !f.HasErrors() {
		t.Error("expected hasErrors after imposed errors")
	}
	if msg := f.FieldError("email"); msg != "already registered" {
		t.Errorf("expected the first message, got %q", msg)
	}
	if msg := f.FieldError("ghost"); msg != "" {
		t.Errorf("unregistered fields must be skipped, got %q", msg)
	}
	errs := f.Errors()
	if len(errs) != 1 || errs[0].Field != "email" {
		t.Errorf("unexpected error list: %v", errs)
	}
}

func TestListenerNotification(t *testing.T) {
	t.Parallel()
	spec := &testSpec{fields: []*Field{{Name: "n"}}}
	f := newTestForm(spec)

	var renders atomic.Int64
	l := NewListener(f, func() { renders.Add(1) })
	l.Attach()

	_ = f.SetValue("n", "x")
	eventually(t, func() bool { return renders.Load() >= 1 }, "listener never notified after a change")

	// No change, no notification.
	before := renders.Load()
	f.Changed()
	time.Sleep(30 * time.Millisecond)
	if renders.Load() != before {
		t.Error("a no-op change pass must not notify the listener")
	}

	l.Close()
	_ = f.SetValue("n", "y")
	time.Sleep(30 * time.Millisecond)
	if renders.Load() != before {
		t.Error("closed listener must not be notified")
	}
}

func TestListenerUpdateWhenPredicate(t *testing.T) {
	t.Parallel()
	spec := &testSpec{fields: []*Field{{Name: "n"}}}
	f := newTestForm(spec)

	var renders atomic.Int64
	l := NewListener(f, func() { renders.Add(1) }, UpdateWhen(func(form *Form) bool {
		return !form.Loading()
	}))
	l.Attach()

	f.SetLoading(true)
	_ = f.SetValue("n", "x")
	time.Sleep(30 * time.Millisecond)
	if renders.Load() != 0 {
		t.Error("predicate=false must skip the rebuild")
	}

	f.SetLoading(false)
	_ = f.SetValue("n", "y")
	eventually(t, func() bool { return renders.Load() == 1 }, "predicate=true must allow the rebuild")
}

func TestStateSettersDoNotNotify(t *testing.T) {
	t.Parallel()
	spec := &testSpec{fields: []*Field{{Name: "n"}}}
	f := newTestForm(spec)

	var renders atomic.Int64
	l := NewListener(f, func() { renders.Add(1) })
	l.Attach()

	f.SetLoading(true)
	f.SetHasErrors(true)
	f.SetSuccess(true)
	time.Sleep(30 * time.Millisecond)
	if renders.Load() != 0 {
		t.Errorf("state setters must not notify the listener, got %d renders", renders.Load())
	}
	if !f.Loading() || !f.HasErrors() || !f.Success() {
		t.Error("flags not recorded")
	}
}

func TestPreviousValueTracking(t *testing.T) {
	t.Parallel()
	spec := &testSpec{fields: []*Field{{Name: "n", InitialValue: "first"}}}
	f := newTestForm(spec)

	_ = f.SetValue("n", "second")
	if prev, _ := f.PreviousValue("n"); prev != "first" {
		t.Errorf("expected previous=first, got %v", prev)
	}
	_ = f.SetValue("n", "third")
	if prev, _ := f.PreviousValue("n"); prev != "second" {
		t.Errorf("expected previous=second, got %v", prev)
	}
	if cur, _ := f.Value("n"); cur != "third" {
		t.Errorf("expected current=third, got %v", cur)
	}
}

func TestSetValueUnknownField(t *testing.T) {
	t.Parallel()
	spec := &testSpec{fields: []*Field{{Name: "n"}}}
	f := newTestForm(spec)
	err := f.SetValue("nope", 1)
	if !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("expected ErrFieldNotFound, got %v", err)
	}
}

func TestMissingFields(t *testing.T) {
	t.Parallel()
	spec := &testSpec{fields: []*Field{
		{Name: "email", DisplayName: "Email", Required: true},
		{Name: "note"},
	}}
	f := newTestForm(spec)

	missing := f.MissingFields()
	if len(missing) != 1 || missing[0].Name != "email" {
		t.Fatalf("expected only email missing, got %v", missing)
	}
	_ = f.SetValue("email", "a@b.com")
	if missing := f.MissingFields(); len(missing) != 0 {
		t.Errorf("expected no missing fields, got %v", missing)
	}
}
