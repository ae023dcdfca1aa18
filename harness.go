package webcheck

import (
	"fmt"

	"github.com/tebeka/selenium"
)

// Harness bundles the wait, resolution, window and session components over
// one browser session. It is not safe for concurrent use: a browser session
// runs one flow at a time.
type Harness struct {
	d Driver

	Poller   *Poller
	Resolver *Resolver
	Windows  *WindowController
	Session  *SessionController
}

// New returns a Harness driving d. Zero fields of cfg take their defaults.
func New(d Driver, cfg Config) *Harness {
	cfg = cfg.withDefaults()
	p := NewPoller(cfg)
	r := NewResolver(d, p)
	return &Harness{
		d:        d,
		Poller:   p,
		Resolver: r,
		Windows:  NewWindowController(d, p, r, cfg.NewWindowGrace),
		Session:  NewSessionController(d, p, r),
	}
}

// Driver returns the driver the harness was built on.
func (h *Harness) Driver() Driver { return h.d }

// Open navigates to u and waits for the document to finish loading.
func (h *Harness) Open(u string) error {
	if err := h.d.Get(u); err != nil {
		return fmt.Errorf("opening %q: %w", u, err)
	}
	return h.Poller.Wait(h.d, DocumentReady(), AlsoIgnoring(CodeJavascriptError))
}

// Resolve returns the first element of set, in order, that satisfies
// readiness. See Resolver.Resolve.
func (h *Harness) Resolve(set LocatorSet, readiness Readiness, opts ...WaitOption) (selenium.WebElement, error) {
	return h.Resolver.Resolve(set, readiness, opts...)
}

// Wait blocks until cond holds. See Poller.Wait.
func (h *Harness) Wait(cond Condition, opts ...WaitOption) error {
	return h.Poller.Wait(h.d, cond, opts...)
}

// VerifyExternalLink checks where trigger navigates. See
// WindowController.VerifyExternalLink.
func (h *Harness) VerifyExternalLink(trigger func() error, fragment string) error {
	return h.Windows.VerifyExternalLink(trigger, fragment)
}

// VerifyExternalLinkAt checks where clicking the control in set navigates.
func (h *Harness) VerifyExternalLinkAt(set LocatorSet, fragment string) error {
	return h.Windows.VerifyExternalLinkAt(set, fragment)
}

// SessionState observes the current SessionState.
func (h *Harness) SessionState(cfg LoginConfig) (SessionState, error) {
	return h.Session.State(cfg)
}

// EnsureLoggedIn logs in unless already logged in. See
// SessionController.EnsureLoggedIn.
func (h *Harness) EnsureLoggedIn(creds Credentials, cfg LoginConfig) (SessionState, error) {
	return h.Session.EnsureLoggedIn(creds, cfg)
}

// EnsureLoggedOut logs out if logged in.
func (h *Harness) EnsureLoggedOut(cfg LoginConfig) (SessionState, error) {
	return h.Session.EnsureLoggedOut(cfg)
}
