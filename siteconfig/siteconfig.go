// Package siteconfig loads per-site definitions for the webcheck harness
// from YAML: timeouts, the login and logout controls, and the external
// links a site is expected to carry.
//
// Locators are written in the compact "strategy=query" notation accepted by
// webcheck.ParseLocator, either as one string or as a list in priority
// order:
//
//	login:
//	  username: [id=user-name, name=username]
//	  submit: id=login-button
package siteconfig

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/wanmail/webcheck"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted by Credentials.
const (
	UserEnv     = "WEBCHECK_USER"
	PasswordEnv = "WEBCHECK_PASSWORD"
)

// Site is one site definition.
type Site struct {
	Name     string   `yaml:"name"`
	BaseURL  string   `yaml:"base_url"`
	Timeouts Timeouts `yaml:"timeouts"`
	Login    *Login   `yaml:"login"`
	Links    []Link   `yaml:"links"`
}

// Timeouts override the harness defaults. Zero values keep the default.
type Timeouts struct {
	Wait      Duration `yaml:"wait"`
	Poll      Duration `yaml:"poll"`
	NewWindow Duration `yaml:"new_window"`
}

// Login describes the site's authentication controls.
type Login struct {
	// URL may be relative to the site's base URL.
	URL       string   `yaml:"url"`
	Username  Locators `yaml:"username"`
	Password  Locators `yaml:"password"`
	Submit    Locators `yaml:"submit"`
	LoggedIn  Locators `yaml:"logged_in"`
	Error     Locators `yaml:"error"`
	Menu      Locators `yaml:"logout_menu"`
	Logout    Locators `yaml:"logout"`
	LoggedOut Locators `yaml:"logged_out"`
}

// Link is an external link check: clicking Trigger must lead to a location
// containing Expect.
type Link struct {
	Name    string   `yaml:"name"`
	Trigger Locators `yaml:"trigger"`
	Expect  string   `yaml:"expect"`
}

// Duration is a time.Duration written as a Go duration string, e.g. "15s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// Locators is a LocatorSet written as a string or a list of strings.
type Locators webcheck.LocatorSet

func (l *Locators) UnmarshalYAML(value *yaml.Node) error {
	var entries []string
	switch value.Kind {
	case yaml.ScalarNode:
		entries = []string{value.Value}
	case yaml.SequenceNode:
		if err := value.Decode(&entries); err != nil {
			return err
		}
	default:
		return fmt.Errorf("line %d: locators must be a string or a list of strings", value.Line)
	}
	set, err := webcheck.ParseLocatorSet(entries...)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*l = Locators(set)
	return nil
}

// Set returns the locators as a webcheck.LocatorSet.
func (l Locators) Set() webcheck.LocatorSet { return webcheck.LocatorSet(l) }

// Load reads and parses the site definition at path.
func Load(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site definition: %w", err)
	}
	site, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return site, nil
}

// Parse parses and validates a site definition. Unknown keys are errors.
func Parse(data []byte) (*Site, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var site Site
	if err := dec.Decode(&site); err != nil {
		return nil, fmt.Errorf("failed to parse site definition: %w", err)
	}
	if err := site.Validate(); err != nil {
		return nil, fmt.Errorf("invalid site definition: %w", err)
	}
	return &site, nil
}

// Validate checks that required fields are present and consistent.
func (s *Site) Validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if u, err := url.Parse(s.BaseURL); err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Errorf("base_url must be an absolute URL, got %q", s.BaseURL))
	}
	if err := s.HarnessConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("timeouts: %w", err))
	}
	if s.Login != nil {
		if err := s.LoginConfig().Validate(); err != nil {
			errs = append(errs, err)
		}
		if len(s.Login.Logout) > 0 && len(s.Login.LoggedIn) == 0 {
			errs = append(errs, errors.New("login.logout needs login.logged_in"))
		}
	}
	for i, l := range s.Links {
		if len(l.Trigger) == 0 {
			errs = append(errs, fmt.Errorf("links[%d] (%s): trigger is required", i, l.Name))
		}
		if strings.TrimSpace(l.Expect) == "" {
			errs = append(errs, fmt.Errorf("links[%d] (%s): expect is required", i, l.Name))
		}
	}
	return errors.Join(errs...)
}

// HarnessConfig returns the harness timing for the site.
func (s *Site) HarnessConfig() webcheck.Config {
	return webcheck.Config{
		Timeout:        time.Duration(s.Timeouts.Wait),
		Interval:       time.Duration(s.Timeouts.Poll),
		NewWindowGrace: time.Duration(s.Timeouts.NewWindow),
	}
}

// LoginConfig returns the site's login controls with the entry URL resolved
// against the base URL. It returns the zero LoginConfig for sites without
// a login section.
func (s *Site) LoginConfig() webcheck.LoginConfig {
	if s.Login == nil {
		return webcheck.LoginConfig{}
	}
	return webcheck.LoginConfig{
		EntryURL:        s.resolve(s.Login.URL),
		Username:        s.Login.Username.Set(),
		Password:        s.Login.Password.Set(),
		Submit:          s.Login.Submit.Set(),
		LoggedInMarker:  s.Login.LoggedIn.Set(),
		ErrorMarker:     s.Login.Error.Set(),
		LogoutMenu:      s.Login.Menu.Set(),
		Logout:          s.Login.Logout.Set(),
		LoggedOutMarker: s.Login.LoggedOut.Set(),
	}
}

// HasLogin reports whether the site defines a login.
func (s *Site) HasLogin() bool { return s.Login != nil }

// CanLogout reports whether the site defines a logout control.
func (s *Site) CanLogout() bool { return s.Login != nil && len(s.Login.Logout) > 0 }

func (s *Site) resolve(ref string) string {
	if ref == "" {
		return s.BaseURL
	}
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}

// Credentials returns the given user and password, falling back to the
// WEBCHECK_USER and WEBCHECK_PASSWORD environment variables for empty
// values. Site files never hold credentials.
func Credentials(user, password string) webcheck.Credentials {
	if user == "" {
		user = os.Getenv(UserEnv)
	}
	if password == "" {
		password = os.Getenv(PasswordEnv)
	}
	return webcheck.Credentials{Identifier: user, Secret: password}
}
