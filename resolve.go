package webcheck

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/tebeka/selenium"
)

// Readiness is the state a found element must be in to be usable.
type Readiness int

const (
	// Present requires only that the element is in the DOM.
	Present Readiness = iota
	// Visible requires the element to be displayed.
	Visible
	// Clickable requires the element to be displayed and enabled.
	Clickable
)

func (r Readiness) String() string {
	switch r {
	case Present:
		return "present"
	case Visible:
		return "visible"
	case Clickable:
		return "clickable"
	}
	return fmt.Sprintf("Readiness(%d)", int(r))
}

// ready reports whether e satisfies r.
func (r Readiness) ready(e selenium.WebElement) (bool, error) {
	if r == Present {
		return true, nil
	}
	shown, err := e.IsDisplayed()
	if err != nil || !shown {
		return false, err
	}
	if r == Visible {
		return true, nil
	}
	return e.IsEnabled()
}

// Resolver finds the element a LocatorSet stands for.
type Resolver struct {
	d      Driver
	poller *Poller
}

// NewResolver returns a Resolver over d that waits with p.
func NewResolver(d Driver, p *Poller) *Resolver {
	return &Resolver{d: d, poller: p}
}

// pass walks set once. It returns the winning element, or nil when none is
// ready yet. A locator whose matches are not ready keeps priority: the pass
// stops there instead of falling through to lower-priority locators.
// attempts is updated in place with what each locator produced.
func (r *Resolver) pass(set LocatorSet, readiness Readiness, attempts []Attempt) (selenium.WebElement, error) {
	for i, l := range set {
		elems, err := r.d.FindElements(l.By, l.Value)
		if err != nil && ErrorCode(err) != CodeNoSuchElement {
			attempts[i] = Attempt{Locator: l, Queried: true, Err: err}
			return nil, err
		}
		attempts[i] = Attempt{Locator: l, Queried: true, Matched: len(elems)}
		if len(elems) == 0 {
			continue
		}
		for _, e := range elems {
			ok, err := readiness.ready(e)
			if err != nil {
				attempts[i].Err = err
				return nil, err
			}
			if ok {
				glog.V(2).Infof("resolved %s via %s", readiness, l)
				return e, nil
			}
		}
		return nil, nil
	}
	return nil, nil
}

func newAttempts(set LocatorSet) []Attempt {
	attempts := make([]Attempt, len(set))
	for i, l := range set {
		attempts[i].Locator = l
	}
	return attempts
}

// Resolve returns the first element, in set order, that satisfies
// readiness, polling until one does. On failure the error is an
// *ElementNotResolvedError describing every locator.
func (r *Resolver) Resolve(set LocatorSet, readiness Readiness, opts ...WaitOption) (selenium.WebElement, error) {
	attempts := newAttempts(set)
	if len(set) == 0 {
		return nil, &ElementNotResolvedError{Set: set, Readiness: readiness, Err: fmt.Errorf("empty locator set")}
	}
	elem, err := WaitFor(r.poller, r.d, func(Driver) (selenium.WebElement, bool, error) {
		e, err := r.pass(set, readiness, attempts)
		return e, e != nil, err
	}, opts...)
	if err != nil {
		return nil, &ElementNotResolvedError{Set: set, Readiness: readiness, Attempts: attempts, Err: err}
	}
	return elem, nil
}

// Probe is a single non-blocking pass of Resolve. It returns nil, nil when
// no locator currently yields a ready element. Errors the Poller would
// ignore are treated as "not found".
func (r *Resolver) Probe(set LocatorSet, readiness Readiness) (selenium.WebElement, error) {
	e, err := r.pass(set, readiness, newAttempts(set))
	if err != nil && hasCode(err, r.poller.params(nil).ignored) {
		return nil, nil
	}
	return e, err
}

// FindAll returns every element matched by the first locator of set that
// matches anything, waiting until one does.
func (r *Resolver) FindAll(set LocatorSet, opts ...WaitOption) ([]selenium.WebElement, error) {
	attempts := newAttempts(set)
	if len(set) == 0 {
		return nil, &ElementNotResolvedError{Set: set, Readiness: Present, Err: fmt.Errorf("empty locator set")}
	}
	elems, err := WaitFor(r.poller, r.d, func(d Driver) ([]selenium.WebElement, bool, error) {
		for i, l := range set {
			elems, err := d.FindElements(l.By, l.Value)
			if err != nil && ErrorCode(err) != CodeNoSuchElement {
				attempts[i] = Attempt{Locator: l, Queried: true, Err: err}
				return nil, false, err
			}
			attempts[i] = Attempt{Locator: l, Queried: true, Matched: len(elems)}
			if len(elems) > 0 {
				return elems, true, nil
			}
		}
		return nil, false, nil
	}, opts...)
	if err != nil {
		return nil, &ElementNotResolvedError{Set: set, Readiness: Present, Attempts: attempts, Err: err}
	}
	return elems, nil
}
