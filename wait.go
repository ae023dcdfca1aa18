package webcheck

import (
	"strings"
	"time"

	"github.com/golang/glog"
)

// Condition reports whether the state a caller is waiting for holds. An
// error whose WebDriver code is in the wait's ignored set counts as "not
// yet"; any other error aborts the wait.
type Condition func(d Driver) (bool, error)

// DefaultIgnored is the ignored set of a Poller that does not set one.
var DefaultIgnored = []string{CodeNoSuchElement, CodeStaleElement}

// Poller blocks until conditions over browser state hold.
type Poller struct {
	Timeout  time.Duration
	Interval time.Duration
	// Ignored lists WebDriver error codes treated as "not yet true". A nil
	// slice means DefaultIgnored.
	Ignored []string

	now   func() time.Time
	sleep func(time.Duration)
}

// NewPoller returns a Poller using the timing of cfg.
func NewPoller(cfg Config) *Poller {
	cfg = cfg.withDefaults()
	return &Poller{Timeout: cfg.Timeout, Interval: cfg.Interval}
}

// waitParams is the fully resolved description of one wait.
type waitParams struct {
	timeout  time.Duration
	interval time.Duration
	ignored  []string
}

// WaitOption overrides a Poller default for one call.
type WaitOption func(*waitParams)

// WithTimeout sets the deadline of one wait.
func WithTimeout(d time.Duration) WaitOption {
	return func(s *waitParams) { s.timeout = d }
}

// WithInterval sets the polling interval of one wait.
func WithInterval(d time.Duration) WaitOption {
	return func(s *waitParams) { s.interval = d }
}

// Ignoring replaces the ignored error codes of one wait. Calling it with no
// codes makes every error fatal.
func Ignoring(codes ...string) WaitOption {
	return func(s *waitParams) { s.ignored = codes }
}

// AlsoIgnoring adds error codes to the ignored set of one wait.
func AlsoIgnoring(codes ...string) WaitOption {
	return func(s *waitParams) {
		s.ignored = append(append([]string(nil), s.ignored...), codes...)
	}
}

func (p *Poller) params(opts []WaitOption) waitParams {
	s := waitParams{timeout: p.Timeout, interval: p.Interval, ignored: p.Ignored}
	if s.timeout == 0 {
		s.timeout = DefaultTimeout
	}
	if s.ignored == nil {
		s.ignored = DefaultIgnored
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	return s
}

func (p *Poller) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

func (p *Poller) pause(d time.Duration) {
	if p.sleep != nil {
		p.sleep(d)
		return
	}
	time.Sleep(d)
}

// Wait polls cond until it returns true, returns a non-ignored error, or the
// timeout elapses, in which case the error is a *TimeoutError. The condition
// is evaluated once immediately and last at the deadline.
func (p *Poller) Wait(d Driver, cond Condition, opts ...WaitOption) error {
	s := p.params(opts)
	start := p.clock()
	deadline := start.Add(s.timeout)
	var lastErr error
	for attempt := 1; ; attempt++ {
		ok, err := cond(d)
		if err == nil && ok {
			glog.V(2).Infof("wait satisfied after %d attempts", attempt)
			return nil
		}
		if err != nil {
			if !hasCode(err, s.ignored) {
				return err
			}
			lastErr = err
		}

		now := p.clock()
		if !now.Before(deadline) {
			return &TimeoutError{Timeout: s.timeout, Elapsed: now.Sub(start), LastErr: lastErr}
		}
		next := s.interval
		if remaining := deadline.Sub(now); remaining < next {
			next = remaining
		}
		glog.V(2).Infof("wait attempt %d not satisfied (err=%v), retrying in %v", attempt, err, next)
		p.pause(next)
	}
}

// WaitFor is Wait for predicates that produce a value: it returns the value
// from the first evaluation that reported found.
func WaitFor[T any](p *Poller, d Driver, pred func(Driver) (T, bool, error), opts ...WaitOption) (T, error) {
	var found T
	err := p.Wait(d, func(d Driver) (bool, error) {
		v, ok, err := pred(d)
		if err != nil || !ok {
			return false, err
		}
		found = v
		return true, nil
	}, opts...)
	return found, err
}

// URLContains is satisfied once the current URL contains fragment, compared
// case-insensitively.
func URLContains(fragment string) Condition {
	fragment = strings.ToLower(fragment)
	return func(d Driver) (bool, error) {
		u, err := d.CurrentURL()
		if err != nil {
			return false, err
		}
		return strings.Contains(strings.ToLower(u), fragment), nil
	}
}

// URLIs is satisfied once the current URL equals u.
func URLIs(u string) Condition {
	return func(d Driver) (bool, error) {
		cur, err := d.CurrentURL()
		if err != nil {
			return false, err
		}
		return cur == u, nil
	}
}

// URLChangedFrom is satisfied once the current URL differs from u.
func URLChangedFrom(u string) Condition {
	return func(d Driver) (bool, error) {
		cur, err := d.CurrentURL()
		if err != nil {
			return false, err
		}
		return cur != u, nil
	}
}

// TitleContains is satisfied once the page title contains s.
func TitleContains(s string) Condition {
	return func(d Driver) (bool, error) {
		title, err := d.Title()
		if err != nil {
			return false, err
		}
		return strings.Contains(title, s), nil
	}
}

// DocumentReady is satisfied once document.readyState is "complete".
func DocumentReady() Condition {
	return func(d Driver) (bool, error) {
		state, err := d.ExecuteScript("return document.readyState", nil)
		if err != nil {
			return false, err
		}
		s, _ := state.(string)
		return s == "complete", nil
	}
}
