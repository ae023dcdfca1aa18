package webcheck

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"
)

const blankURL = "about:blank"

// WindowSet is a snapshot of the open window handles and the handle that
// had focus when it was taken.
type WindowSet struct {
	Origin  string
	Handles []string
}

// Contains reports whether h was open when the snapshot was taken.
func (s WindowSet) Contains(h string) bool {
	for _, x := range s.Handles {
		if x == h {
			return true
		}
	}
	return false
}

// Diff returns the handles that are not part of the snapshot, in the order
// given.
func (s WindowSet) Diff(handles []string) []string {
	var added []string
	for _, h := range handles {
		if !s.Contains(h) {
			added = append(added, h)
		}
	}
	return added
}

// WindowController verifies that activating a control navigates to an
// expected destination and puts the browser back the way it was.
//
// Only one verification may run per browser session at a time.
type WindowController struct {
	d        Driver
	poller   *Poller
	resolver *Resolver
	grace    time.Duration
}

// NewWindowController returns a controller that waits up to grace for a new
// window before looking for an in-place navigation.
func NewWindowController(d Driver, p *Poller, r *Resolver, grace time.Duration) *WindowController {
	if grace <= 0 {
		grace = DefaultNewWindowGrace
	}
	return &WindowController{d: d, poller: p, resolver: r, grace: grace}
}

// Snapshot captures the current WindowSet.
func (c *WindowController) Snapshot() (WindowSet, error) {
	origin, err := c.d.CurrentWindowHandle()
	if err != nil {
		return WindowSet{}, fmt.Errorf("reading current window: %w", err)
	}
	handles, err := c.d.WindowHandles()
	if err != nil {
		return WindowSet{}, fmt.Errorf("listing windows: %w", err)
	}
	return WindowSet{Origin: origin, Handles: handles}, nil
}

func (c *WindowController) newHandle(before WindowSet) func(Driver) (string, bool, error) {
	return func(d Driver) (string, bool, error) {
		handles, err := d.WindowHandles()
		if err != nil {
			return "", false, err
		}
		added := before.Diff(handles)
		if len(added) == 0 {
			return "", false, nil
		}
		return added[0], true, nil
	}
}

// VerifyExternalLink calls trigger, follows the navigation it causes into a
// new window or the current one, and checks that the resulting location
// contains fragment, ignoring case. A mismatch is a
// *VerificationFailedError.
//
// Whatever happens, every window opened after the call started is closed
// and focus returns to the original window; an in-place navigation is undone
// by walking history back, or by reloading the start location when history
// does not lead there. If that cannot be done the error includes a
// *WindowLifecycleError.
func (c *WindowController) VerifyExternalLink(trigger func() error, fragment string) (err error) {
	before, err := c.Snapshot()
	if err != nil {
		return err
	}
	startURL, err := c.d.CurrentURL()
	if err != nil {
		return fmt.Errorf("reading current URL: %w", err)
	}

	defer func() {
		if rerr := c.restore(before, startURL); rerr != nil {
			glog.Warningf("restoring windows after link check for %q: %v", fragment, rerr)
			if err == nil {
				err = rerr
			} else {
				err = errors.Join(rerr, err)
			}
		}
	}()

	if err := trigger(); err != nil {
		return fmt.Errorf("triggering navigation: %w", err)
	}

	var timeout *TimeoutError
	handle, err := WaitFor(c.poller, c.d, c.newHandle(before), WithTimeout(c.grace))
	if err != nil && !errors.As(err, &timeout) {
		return err
	}
	if handle == "" {
		handle, err = WaitFor(c.poller, c.d, func(d Driver) (string, bool, error) {
			if h, ok, err := c.newHandle(before)(d); err != nil || ok {
				return h, ok, err
			}
			cur, err := d.CurrentURL()
			if err != nil {
				return "", false, err
			}
			return "", cur != startURL, nil
		})
		if err != nil {
			return fmt.Errorf("no navigation from %q: %w", startURL, err)
		}
	}

	if handle != "" {
		glog.V(1).Infof("link opened window %s", handle)
		if err := c.d.SwitchWindow(handle); err != nil {
			return fmt.Errorf("switching to new window %q: %w", handle, err)
		}
		err := c.poller.Wait(c.d, func(d Driver) (bool, error) {
			u, err := d.CurrentURL()
			if err != nil {
				return false, err
			}
			return u != "" && u != blankURL, nil
		})
		if err != nil {
			return &VerificationFailedError{Expected: fragment, Actual: blankURL}
		}
	} else {
		glog.V(1).Infof("link navigated in place away from %s", startURL)
	}

	// Redirect chains usually finish with the load; a page that never reports
	// complete is still judged by where it is.
	if err := c.poller.Wait(c.d, DocumentReady(), AlsoIgnoring(CodeJavascriptError)); err != nil {
		glog.V(1).Infof("document not ready before verification: %v", err)
	}

	actual, err := c.d.CurrentURL()
	if err != nil {
		return fmt.Errorf("reading destination URL: %w", err)
	}
	if !strings.Contains(strings.ToLower(actual), strings.ToLower(fragment)) {
		return &VerificationFailedError{Expected: fragment, Actual: actual}
	}
	glog.V(1).Infof("verified %s contains %q", actual, fragment)
	return nil
}

// VerifyExternalLinkAt resolves a clickable element from set and verifies
// the navigation its click causes.
func (c *WindowController) VerifyExternalLinkAt(set LocatorSet, fragment string) error {
	elem, err := c.resolver.Resolve(set, Clickable)
	if err != nil {
		return err
	}
	return c.VerifyExternalLink(func() error {
		return clickElement(c.d, elem)
	}, fragment)
}

// restore closes windows opened since before, refocuses the origin and
// navigates it back if it left startURL.
func (c *WindowController) restore(before WindowSet, startURL string) error {
	handles, err := c.d.WindowHandles()
	if err != nil {
		return &WindowLifecycleError{Origin: before.Origin, Err: fmt.Errorf("listing windows: %w", err)}
	}
	originOpen := false
	for _, h := range handles {
		if h == before.Origin {
			originOpen = true
		}
	}
	if !originOpen {
		return &WindowLifecycleError{Origin: before.Origin, Err: errors.New("origin window was closed")}
	}

	var errs []error
	for _, h := range before.Diff(handles) {
		if err := c.d.SwitchWindow(h); err != nil {
			errs = append(errs, fmt.Errorf("switching to %q: %w", h, err))
			continue
		}
		if err := c.d.CloseWindow(h); err != nil {
			errs = append(errs, fmt.Errorf("closing %q: %w", h, err))
		}
		glog.V(1).Infof("closed window %s", h)
	}
	if err := c.d.SwitchWindow(before.Origin); err != nil {
		return &WindowLifecycleError{Origin: before.Origin, Err: errors.Join(append(errs, err)...)}
	}
	if len(errs) > 0 {
		return &WindowLifecycleError{Origin: before.Origin, Err: errors.Join(errs...)}
	}

	after, err := c.d.WindowHandles()
	if err != nil {
		return &WindowLifecycleError{Origin: before.Origin, Err: err}
	}
	if extra := before.Diff(after); len(extra) > 0 || len(after) != len(before.Handles) {
		return &WindowLifecycleError{
			Origin: before.Origin,
			Err:    fmt.Errorf("window set changed from %v to %v", before.Handles, after),
		}
	}

	cur, err := c.d.CurrentURL()
	if err != nil {
		return &WindowLifecycleError{Origin: before.Origin, Err: fmt.Errorf("reading origin URL: %w", err)}
	}
	if cur != startURL {
		if err := c.returnTo(startURL); err != nil {
			return &WindowLifecycleError{Origin: before.Origin, Err: err}
		}
	}
	return nil
}

// maxBackSteps bounds how many history entries restore walks back through
// before loading the start location directly.
const maxBackSteps = 5

var errTooManyBacks = fmt.Errorf("still away after %d history steps", maxBackSteps)

// returnTo walks the focused window's history back until it shows startURL.
// A new Back is issued only once the previous one has moved the window, so
// redirect chains are unwound one entry at a time. If that fails, startURL
// is loaded instead.
func (c *WindowController) returnTo(startURL string) error {
	backs := 0
	from := ""
	err := c.poller.Wait(c.d, func(d Driver) (bool, error) {
		u, err := d.CurrentURL()
		if err != nil {
			return false, err
		}
		switch {
		case u == startURL:
			return true, nil
		case u == from:
			return false, nil
		case backs == maxBackSteps:
			return false, errTooManyBacks
		}
		backs++
		from = u
		return false, d.Back()
	})
	if err == nil {
		glog.V(1).Infof("navigated back to %s in %d steps", startURL, backs)
		return nil
	}

	glog.Warningf("history back to %s failed after %d steps, reloading it: %v", startURL, backs, err)
	if gerr := c.d.Get(startURL); gerr != nil {
		return errors.Join(
			fmt.Errorf("navigating back to %q: %w", startURL, err),
			fmt.Errorf("reloading %q: %w", startURL, gerr))
	}
	if werr := c.poller.Wait(c.d, URLIs(startURL)); werr != nil {
		return fmt.Errorf("reloading %q: %w", startURL, werr)
	}
	return nil
}

// HostOf returns the host of rawURL, or "" if it does not parse.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
