package webcheck

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/golang/glog"
)

// SessionState is the observed authentication state of the browser.
type SessionState int

const (
	// AnonymousOrLoggedOut means the logged-in marker is absent.
	AnonymousOrLoggedOut SessionState = iota
	// LoggedIn means the logged-in marker is present.
	LoggedIn
)

func (s SessionState) String() string {
	if s == LoggedIn {
		return "logged in"
	}
	return "anonymous or logged out"
}

// Credentials are used for one login attempt and not retained.
type Credentials struct {
	Identifier string
	Secret     string
}

// String omits the secret.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Identifier: %q}", c.Identifier)
}

// LoginConfig describes a site's login and logout controls.
type LoginConfig struct {
	// EntryURL is loaded before filling the form. Empty means the form is
	// expected on the current page.
	EntryURL string

	Username LocatorSet
	Password LocatorSet
	Submit   LocatorSet

	// LoggedInMarker is present only when authenticated, e.g. a logout link
	// or an account panel.
	LoggedInMarker LocatorSet
	// ErrorMarker is the site's message for rejected credentials.
	ErrorMarker LocatorSet

	// LogoutMenu, if set, is clicked to reveal Logout.
	LogoutMenu LocatorSet
	Logout     LocatorSet
	// LoggedOutMarker, if set, also confirms a logout when it appears, e.g.
	// the login form.
	LoggedOutMarker LocatorSet
}

// Validate reports missing locator sets.
func (c LoginConfig) Validate() error {
	var missing []string
	for name, set := range map[string]LocatorSet{
		"username":         c.Username,
		"password":         c.Password,
		"submit":           c.Submit,
		"logged-in marker": c.LoggedInMarker,
		"error marker":     c.ErrorMarker,
	} {
		if len(set) == 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("login config is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// SessionController brings the browser to a wanted SessionState. It never
// remembers the state: every decision is made from what the page shows.
type SessionController struct {
	d        Driver
	poller   *Poller
	resolver *Resolver
}

// NewSessionController returns a SessionController over d.
func NewSessionController(d Driver, p *Poller, r *Resolver) *SessionController {
	return &SessionController{d: d, poller: p, resolver: r}
}

// State observes whether the browser is logged in.
func (c *SessionController) State(cfg LoginConfig) (SessionState, error) {
	e, err := c.resolver.Probe(cfg.LoggedInMarker, Present)
	if err != nil {
		return AnonymousOrLoggedOut, fmt.Errorf("observing session state: %w", err)
	}
	if e != nil {
		return LoggedIn, nil
	}
	return AnonymousOrLoggedOut, nil
}

// loginOutcome is what became visible after a login submit.
type loginOutcome struct {
	state   SessionState
	message string
}

// EnsureLoggedIn logs in with creds unless the browser already is. When
// already logged in it neither navigates nor touches the login form.
//
// If the site shows its error marker the error is an
// *AuthenticationRejectedError; if neither marker appears in time, or the
// form cannot be found, it is an *AuthenticationIndeterminateError.
func (c *SessionController) EnsureLoggedIn(creds Credentials, cfg LoginConfig) (SessionState, error) {
	if err := cfg.Validate(); err != nil {
		return AnonymousOrLoggedOut, err
	}
	state, err := c.State(cfg)
	if err != nil {
		return state, err
	}
	if state == LoggedIn {
		glog.V(1).Infof("already logged in, skipping login of %s", creds.Identifier)
		return LoggedIn, nil
	}

	if cfg.EntryURL != "" {
		if err := c.d.Get(cfg.EntryURL); err != nil {
			return AnonymousOrLoggedOut, fmt.Errorf("opening login page %q: %w", cfg.EntryURL, err)
		}
	}
	if err := c.fill(cfg.Username, creds.Identifier); err != nil {
		return AnonymousOrLoggedOut, &AuthenticationIndeterminateError{Cause: fmt.Errorf("username field: %w", err)}
	}
	if err := c.fill(cfg.Password, creds.Secret); err != nil {
		return AnonymousOrLoggedOut, &AuthenticationIndeterminateError{Cause: fmt.Errorf("password field: %w", err)}
	}
	submit, err := c.resolver.Resolve(cfg.Submit, Clickable)
	if err != nil {
		return AnonymousOrLoggedOut, &AuthenticationIndeterminateError{Cause: fmt.Errorf("submit control: %w", err)}
	}
	if err := clickElement(c.d, submit); err != nil {
		return AnonymousOrLoggedOut, fmt.Errorf("submitting login form: %w", err)
	}
	glog.V(1).Infof("login submitted for %s", creds.Identifier)

	outcome, err := WaitFor(c.poller, c.d, func(Driver) (loginOutcome, bool, error) {
		marker, err := c.resolver.Probe(cfg.LoggedInMarker, Present)
		if err != nil {
			return loginOutcome{}, false, err
		}
		if marker != nil {
			return loginOutcome{state: LoggedIn}, true, nil
		}
		e, err := c.resolver.Probe(cfg.ErrorMarker, Visible)
		if err != nil || e == nil {
			return loginOutcome{}, false, err
		}
		msg, err := e.Text()
		if err != nil {
			return loginOutcome{}, false, err
		}
		return loginOutcome{state: AnonymousOrLoggedOut, message: strings.TrimSpace(msg)}, true, nil
	})
	if err != nil {
		var timeout *TimeoutError
		if errors.As(err, &timeout) {
			return AnonymousOrLoggedOut, &AuthenticationIndeterminateError{Cause: err}
		}
		return AnonymousOrLoggedOut, err
	}
	if outcome.state != LoggedIn {
		return AnonymousOrLoggedOut, &AuthenticationRejectedError{Message: outcome.message}
	}
	glog.V(1).Infof("logged in as %s", creds.Identifier)
	return LoggedIn, nil
}

// EnsureLoggedOut logs out if the browser is logged in.
func (c *SessionController) EnsureLoggedOut(cfg LoginConfig) (SessionState, error) {
	if len(cfg.LoggedInMarker) == 0 || len(cfg.Logout) == 0 {
		return AnonymousOrLoggedOut, errors.New("login config needs a logged-in marker and a logout control to log out")
	}
	state, err := c.State(cfg)
	if err != nil {
		return state, err
	}
	if state != LoggedIn {
		return AnonymousOrLoggedOut, nil
	}

	if len(cfg.LogoutMenu) > 0 {
		if err := c.click(cfg.LogoutMenu); err != nil {
			return LoggedIn, fmt.Errorf("opening logout menu: %w", err)
		}
	}
	if err := c.click(cfg.Logout); err != nil {
		return LoggedIn, fmt.Errorf("logging out: %w", err)
	}

	err = c.poller.Wait(c.d, func(Driver) (bool, error) {
		if len(cfg.LoggedOutMarker) > 0 {
			e, err := c.resolver.Probe(cfg.LoggedOutMarker, Present)
			if err != nil || e != nil {
				return e != nil, err
			}
		}
		e, err := c.resolver.Probe(cfg.LoggedInMarker, Present)
		return e == nil, err
	})
	if err != nil {
		return LoggedIn, fmt.Errorf("waiting for logout: %w", err)
	}
	glog.V(1).Infof("logged out")
	return AnonymousOrLoggedOut, nil
}

func (c *SessionController) fill(set LocatorSet, text string) error {
	e, err := c.resolver.Resolve(set, Visible)
	if err != nil {
		return err
	}
	return typeInto(e, text)
}

func (c *SessionController) click(set LocatorSet) error {
	e, err := c.resolver.Resolve(set, Clickable)
	if err != nil {
		return err
	}
	return clickElement(c.d, e)
}
