// Package launch starts a browser session for the webcheck harness: a local
// ChromeDriver or GeckoDriver service on a free port, or a session on a
// remote WebDriver executor.
package launch

import (
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"

	"github.com/blang/semver"
	"github.com/golang/glog"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	"github.com/tebeka/selenium/log"
)

// Supported browsers.
const (
	Chrome  = "chrome"
	Firefox = "firefox"
)

// Options describes how to start a browser.
type Options struct {
	// Browser is Chrome or Firefox.
	Browser string
	// BrowserPath is the browser binary. Empty means the driver's default.
	BrowserPath string
	// DriverPath is the chromedriver or geckodriver binary. Ignored when
	// Executor is set.
	DriverPath string
	// Port for the local driver service. Zero picks an unused port.
	Port int
	// Headless runs the browser without a display.
	Headless bool
	// Executor is the URL of a remote WebDriver server, e.g.
	// "http://localhost:4444/wd/hub". When set no local service is started.
	Executor string
	// MinBrowserVersion, if set, is the lowest accepted browser version.
	MinBrowserVersion string
	// FrameBuffer starts an Xvfb display for the driver service.
	FrameBuffer bool
	// Output receives the driver service's logs.
	Output io.Writer
}

// Validate reports whether the options can start a browser.
func (o Options) Validate() error {
	switch o.Browser {
	case Chrome, Firefox:
	default:
		return fmt.Errorf("unsupported browser %q, want %q or %q", o.Browser, Chrome, Firefox)
	}
	if o.Executor == "" && o.DriverPath == "" {
		return errors.New("either a driver path or a remote executor is required")
	}
	if o.MinBrowserVersion != "" {
		if _, err := semver.ParseTolerant(o.MinBrowserVersion); err != nil {
			return fmt.Errorf("invalid minimum browser version %q: %v", o.MinBrowserVersion, err)
		}
	}
	return nil
}

// Capabilities returns the session capabilities for o.
func (o Options) Capabilities() (selenium.Capabilities, error) {
	caps := selenium.Capabilities{"browserName": o.Browser}
	switch o.Browser {
	case Chrome:
		chrCaps := chrome.Capabilities{
			Path: o.BrowserPath,
			// Non-default Chrome installs lack the setuid sandbox helper.
			Args: []string{"--no-sandbox"},
			W3C:  true,
		}
		if o.Headless {
			chrCaps.Args = append(chrCaps.Args, "--headless", "--window-size=1280,1024")
		}
		caps.AddChrome(chrCaps)
	case Firefox:
		f := firefox.Capabilities{}
		if o.BrowserPath != "" {
			p, err := filepath.Abs(o.BrowserPath)
			if err != nil {
				return nil, err
			}
			f.Binary = p
		}
		if glog.V(2) {
			f.Log = &firefox.Log{Level: firefox.Trace}
		}
		if o.Headless {
			f.Args = append(f.Args, "-headless")
		}
		caps.AddFirefox(f)
	default:
		return nil, fmt.Errorf("unsupported browser %q", o.Browser)
	}
	caps.SetLogLevel(log.Browser, log.Severe)
	return caps, nil
}

// Browser is a running browser session.
type Browser struct {
	WebDriver selenium.WebDriver

	// Version is the browser version the session reported.
	Version semver.Version

	service *selenium.Service
}

// Start launches the browser described by o.
func Start(o Options) (*Browser, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	caps, err := o.Capabilities()
	if err != nil {
		return nil, err
	}
	return StartWithCapabilities(o, caps)
}

// StartWithCapabilities is Start with caller-adjusted capabilities, e.g. with
// a proxy added.
func StartWithCapabilities(o Options, caps selenium.Capabilities) (*Browser, error) {
	b := &Browser{}
	addr := o.Executor
	if addr == "" {
		var err error
		if b.service, addr, err = StartService(o); err != nil {
			return nil, err
		}
	}

	wd, err := selenium.NewRemote(caps, addr)
	if err != nil {
		b.stopService()
		return nil, fmt.Errorf("selenium.NewRemote(_, %q): %v", addr, err)
	}
	b.WebDriver = wd

	got, err := wd.Capabilities()
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("reading session capabilities: %v", err)
	}
	b.Version, err = BrowserVersion(got)
	if err != nil {
		glog.Warningf("cannot determine %s version: %v", o.Browser, err)
	}
	if o.MinBrowserVersion != "" {
		if err := CheckVersion(b.Version, o.MinBrowserVersion); err != nil {
			b.Close()
			return nil, err
		}
	}
	glog.V(1).Infof("%s %s session %s ready", o.Browser, b.Version, wd.SessionID())
	return b, nil
}

// StartService starts the local driver service for o and returns it with
// the URL sessions are created on.
func StartService(o Options) (*selenium.Service, string, error) {
	port := o.Port
	if port == 0 {
		var err error
		if port, err = PickUnusedPort(); err != nil {
			return nil, "", fmt.Errorf("picking a port for %s: %v", o.Browser, err)
		}
	}
	var opts []selenium.ServiceOption
	if o.FrameBuffer {
		opts = append(opts, selenium.StartFrameBuffer())
	}
	if o.Output != nil {
		opts = append(opts, selenium.Output(o.Output))
	}
	var (
		s    *selenium.Service
		addr string
		err  error
	)
	switch o.Browser {
	case Chrome:
		s, err = selenium.NewChromeDriverService(o.DriverPath, port, opts...)
		addr = fmt.Sprintf("http://127.0.0.1:%d/wd/hub", port)
	case Firefox:
		s, err = selenium.NewGeckoDriverService(o.DriverPath, port, opts...)
		addr = fmt.Sprintf("http://127.0.0.1:%d", port)
	default:
		return nil, "", fmt.Errorf("unsupported browser %q", o.Browser)
	}
	if err != nil {
		return nil, "", fmt.Errorf("starting %s driver service: %v", o.Browser, err)
	}
	glog.V(1).Infof("started %s driver %s on port %d", o.Browser, o.DriverPath, port)
	return s, addr, nil
}

func (b *Browser) stopService() error {
	if b.service == nil {
		return nil
	}
	err := b.service.Stop()
	b.service = nil
	return err
}

// Close ends the session and stops the driver service, if one was started.
func (b *Browser) Close() error {
	var errs []error
	if b.WebDriver != nil {
		if err := b.WebDriver.Quit(); err != nil {
			errs = append(errs, fmt.Errorf("quitting session: %w", err))
		}
	}
	if err := b.stopService(); err != nil {
		errs = append(errs, fmt.Errorf("stopping driver service: %w", err))
	}
	return errors.Join(errs...)
}

// BrowserVersion extracts the browser version from session capabilities,
// reading the W3C "browserVersion" key and falling back to the legacy
// "version" key.
func BrowserVersion(caps map[string]interface{}) (semver.Version, error) {
	for _, key := range []string{"browserVersion", "version"} {
		if v, ok := caps[key].(string); ok && v != "" {
			return semver.ParseTolerant(trimBuild(v))
		}
	}
	return semver.Version{}, errors.New("no browser version in capabilities")
}

// trimBuild reduces Chrome's four-part versions, e.g. "118.0.5993.70", to
// the three parts semver accepts.
func trimBuild(v string) string {
	dots := 0
	for i, r := range v {
		if r == '.' {
			dots++
			if dots == 3 {
				return v[:i]
			}
		}
	}
	return v
}

// CheckVersion returns an error if got is older than minVersion.
func CheckVersion(got semver.Version, minVersion string) error {
	want, err := semver.ParseTolerant(minVersion)
	if err != nil {
		return fmt.Errorf("invalid minimum browser version %q: %v", minVersion, err)
	}
	if got.LT(want) {
		return fmt.Errorf("browser version %s is older than the required %s", got, want)
	}
	return nil
}

// PickUnusedPort returns a TCP port that was free when it was checked.
func PickUnusedPort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, err
	}
	return port, nil
}
