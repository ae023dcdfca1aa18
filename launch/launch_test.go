package launch

import (
	"net"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/blang/semver"
	"github.com/google/go-cmp/cmp"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	"github.com/tebeka/selenium/log"
)

func TestChromeCapabilities(t *testing.T) {
	o := Options{Browser: Chrome, BrowserPath: "/opt/chrome/chrome", Headless: true}
	caps, err := o.Capabilities()
	if err != nil {
		t.Fatalf("o.Capabilities() returned error: %v", err)
	}
	if got := caps["browserName"]; got != Chrome {
		t.Errorf(`caps["browserName"] = %v, want %q`, got, Chrome)
	}
	got, ok := caps[chrome.CapabilitiesKey].(chrome.Capabilities)
	if !ok {
		t.Fatalf("caps[%q] is %T, want chrome.Capabilities", chrome.CapabilitiesKey, caps[chrome.CapabilitiesKey])
	}
	want := chrome.Capabilities{
		Path: "/opt/chrome/chrome",
		Args: []string{"--no-sandbox", "--headless", "--window-size=1280,1024"},
		W3C:  true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("chrome capabilities returned diff (-want/+got):\n%s", diff)
	}
	logging, ok := caps[log.CapabilitiesKey].(log.Capabilities)
	if !ok || logging[log.Browser] != log.Severe {
		t.Errorf("caps[%q] = %v, want browser logging at %s", log.CapabilitiesKey, caps[log.CapabilitiesKey], log.Severe)
	}
}

func TestFirefoxCapabilities(t *testing.T) {
	o := Options{Browser: Firefox, BrowserPath: "vendor/firefox/firefox", Headless: true}
	caps, err := o.Capabilities()
	if err != nil {
		t.Fatalf("o.Capabilities() returned error: %v", err)
	}
	got, ok := caps[firefox.CapabilitiesKey].(firefox.Capabilities)
	if !ok {
		t.Fatalf("caps[%q] is %T, want firefox.Capabilities", firefox.CapabilitiesKey, caps[firefox.CapabilitiesKey])
	}
	if !filepath.IsAbs(got.Binary) {
		t.Errorf("firefox binary %q is not absolute", got.Binary)
	}
	if diff := cmp.Diff([]string{"-headless"}, got.Args); diff != "" {
		t.Errorf("firefox args returned diff (-want/+got):\n%s", diff)
	}
}

func TestCapabilitiesUnsupportedBrowser(t *testing.T) {
	if _, err := (Options{Browser: "safari"}).Capabilities(); err == nil {
		t.Error(`Options{Browser: "safari"}.Capabilities() returned nil error`)
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		o       Options
		wantErr bool
	}{
		{"local chrome", Options{Browser: Chrome, DriverPath: "vendor/chromedriver"}, false},
		{"remote firefox", Options{Browser: Firefox, Executor: "http://localhost:4444/wd/hub"}, false},
		{"no driver", Options{Browser: Chrome}, true},
		{"unknown browser", Options{Browser: "htmlunit", DriverPath: "x"}, true},
		{"bad version", Options{Browser: Chrome, DriverPath: "x", MinBrowserVersion: "latest"}, true},
		{"version", Options{Browser: Chrome, DriverPath: "x", MinBrowserVersion: "100"}, false},
	} {
		if err := tc.o.Validate(); (err != nil) != tc.wantErr {
			t.Errorf("%s: Validate() returned %v, want error: %t", tc.name, err, tc.wantErr)
		}
	}
}

func TestStartRejectsInvalidOptions(t *testing.T) {
	if _, err := Start(Options{Browser: Chrome}); err == nil {
		t.Error("Start() without a driver or executor returned nil error")
	}
}

func TestBrowserVersion(t *testing.T) {
	for _, tc := range []struct {
		caps map[string]interface{}
		want string
	}{
		{map[string]interface{}{"browserVersion": "118.0.5993.70"}, "118.0.5993"},
		{map[string]interface{}{"browserVersion": "", "version": "v115.3"}, "115.3.0"},
		{map[string]interface{}{"version": "76.0"}, "76.0.0"},
	} {
		got, err := BrowserVersion(tc.caps)
		if err != nil {
			t.Errorf("BrowserVersion(%v) returned error: %v", tc.caps, err)
			continue
		}
		if got.String() != tc.want {
			t.Errorf("BrowserVersion(%v) = %s, want %s", tc.caps, got, tc.want)
		}
	}
	if _, err := BrowserVersion(map[string]interface{}{"browserName": "chrome"}); err == nil {
		t.Error("BrowserVersion() without a version returned nil error")
	}
}

func TestCheckVersion(t *testing.T) {
	got := semver.MustParse("118.0.5993")
	if err := CheckVersion(got, "100"); err != nil {
		t.Errorf("CheckVersion(%s, 100) returned error: %v", got, err)
	}
	if err := CheckVersion(got, "118.0.5993"); err != nil {
		t.Errorf("CheckVersion(%s, 118.0.5993) returned error: %v", got, err)
	}
	if err := CheckVersion(got, "119"); err == nil {
		t.Errorf("CheckVersion(%s, 119) returned nil error", got)
	}
}

func TestPickUnusedPort(t *testing.T) {
	port, err := PickUnusedPort()
	if err != nil {
		t.Fatalf("PickUnusedPort() returned error: %v", err)
	}
	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("port %d from PickUnusedPort() cannot be listened on: %v", port, err)
	}
	l.Close()
}

func TestStartServiceUnsupportedBrowser(t *testing.T) {
	if _, _, err := StartService(Options{Browser: "safari", DriverPath: "safaridriver"}); err == nil {
		t.Error(`StartService(safari) returned nil error`)
	}
}
