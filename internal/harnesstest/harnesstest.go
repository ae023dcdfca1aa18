// Package harnesstest exercises the webcheck harness against a real browser.
// The browser reaches a local page server for every host, external ones
// included, through a SOCKS5 proxy that rewrites all addresses. These tests
// are in a separate package so each browser's test binary can run them.
package harnesstest

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	socks5 "github.com/armon/go-socks5"
	"github.com/google/go-cmp/cmp"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	"github.com/wanmail/webcheck"
	"github.com/wanmail/webcheck/launch"
)

// Config selects the browser the suite runs against. Options.Executor must
// point at a running driver service or Selenium server.
type Config struct {
	Options launch.Options
}

// ShopLogin is the login configuration of the test shop.
var ShopLogin = webcheck.LoginConfig{
	EntryURL:       shopURL,
	Username:       webcheck.Set(webcheck.ID("user-name"), webcheck.Name("username")),
	Password:       webcheck.Set(webcheck.ID("password")),
	Submit:         webcheck.Set(webcheck.ID("login-button"), webcheck.CSS("input[type=submit]")),
	LoggedInMarker: webcheck.Set(webcheck.ID("logout_sidebar_link")),
	ErrorMarker:    webcheck.Set(webcheck.CSS("h3[data-test='error']"), webcheck.CSS(".error-message")),
	LogoutMenu:     webcheck.Set(webcheck.ID("react-burger-menu-btn")),
	Logout:         webcheck.Set(webcheck.ID("logout_sidebar_link")),
}

var goodCreds = webcheck.Credentials{Identifier: User, Secret: Password}

type env struct {
	c     Config
	proxy string
}

func runTest(f func(*testing.T, env), e env) func(*testing.T) {
	return func(t *testing.T) {
		f(t, e)
	}
}

// RunHarnessTests runs every harness test against the browser described
// by c.
func RunHarnessTests(t *testing.T, c Config) {
	s := httptest.NewServer(Handler)
	defer s.Close()
	u, err := url.Parse(s.URL)
	if err != nil {
		t.Fatalf("url.Parse(%q) returned error: %v", s.URL, err)
	}

	socks, err := socks5.New(&socks5.Config{
		Rewriter: &addrRewriter{u},
	})
	if err != nil {
		t.Fatalf("socks5.New(_) returned error: %v", err)
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen(_, _) return error: %v", err)
	}
	// Serve SOCKS connections, but don't fail once the listener is closed at
	// the end of the run.
	done := make(chan struct{})
	go func() {
		err := socks.Serve(l)
		select {
		case <-done:
			return
		default:
		}
		if err != nil {
			t.Errorf("socks.Serve(_) returned error: %v", err)
		}
	}()
	defer func() {
		close(done)
		l.Close()
	}()

	e := env{c: c, proxy: l.Addr().String()}
	t.Run("ResolveFallback", runTest(testResolveFallback, e))
	t.Run("LoginRejected", runTest(testLoginRejected, e))
	t.Run("LoginIdempotent", runTest(testLoginIdempotent, e))
	t.Run("Logout", runTest(testLogout, e))
	t.Run("ExternalLinkNewTab", runTest(testExternalLinkNewTab, e))
	t.Run("ExternalLinkWrongDomain", runTest(testExternalLinkWrongDomain, e))
	t.Run("ExternalLinkInPlace", runTest(testExternalLinkInPlace, e))
	t.Run("SelectSort", runTest(testSelectSort, e))
	t.Run("Texts", runTest(testTexts, e))
}

// addrRewriter rewrites all requested addresses to the one specified by the
// URL.
type addrRewriter struct{ u *url.URL }

func (a *addrRewriter) Rewrite(ctx context.Context, _ *socks5.Request) (context.Context, *socks5.AddrSpec) {
	port, err := strconv.Atoi(a.u.Port())
	if err != nil {
		panic(err)
	}
	return ctx, &socks5.AddrSpec{
		FQDN: a.u.Hostname(),
		Port: port,
	}
}

func newCapabilities(t *testing.T, e env) selenium.Capabilities {
	caps, err := e.c.Options.Capabilities()
	if err != nil {
		t.Fatalf("Capabilities() returned error: %v", err)
	}
	caps.AddProxy(selenium.Proxy{
		Type:         selenium.Manual,
		SOCKS:        e.proxy,
		SOCKSVersion: 5,
	})
	switch e.c.Options.Browser {
	case launch.Firefox:
		ff := caps[firefox.CapabilitiesKey].(firefox.Capabilities)
		if ff.Prefs == nil {
			ff.Prefs = make(map[string]interface{})
		}
		// Let the proxy resolve the fake hosts.
		ff.Prefs["network.proxy.socks_remote_dns"] = true
		ff.Prefs["network.proxy.no_proxies_on"] = ""
		ff.Prefs["network.proxy.allow_hijacking_localhost"] = true
		caps.AddFirefox(ff)
	case launch.Chrome:
		ch := caps[chrome.CapabilitiesKey].(chrome.Capabilities)
		// https://crbug.com/899126
		ch.Args = append(ch.Args, "--proxy-bypass-list=<-loopback>")
		caps.AddChrome(ch)
	}
	return caps
}

// newHarness starts a fresh browser session and returns a harness over it.
func newHarness(t *testing.T, e env) (*webcheck.Harness, selenium.WebDriver) {
	b, err := launch.StartWithCapabilities(e.c.Options, newCapabilities(t, e))
	if err != nil {
		t.Fatalf("launch.StartWithCapabilities(%+v, _) returned error: %v", e.c.Options, err)
	}
	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Errorf("b.Close() returned error: %v", err)
		}
	})
	return webcheck.New(b.WebDriver, webcheck.Config{Timeout: 10 * time.Second}), b.WebDriver
}

func open(t *testing.T, h *webcheck.Harness, u string) {
	if err := h.Open(u); err != nil {
		t.Fatalf("h.Open(%q) returned error: %v", u, err)
	}
}

func login(t *testing.T, h *webcheck.Harness) {
	if _, err := h.EnsureLoggedIn(goodCreds, ShopLogin); err != nil {
		t.Fatalf("h.EnsureLoggedIn(%s) returned error: %v", goodCreds, err)
	}
}

func testResolveFallback(t *testing.T, e env) {
	h, _ := newHarness(t, e)
	open(t, h, shopURL)

	set := webcheck.Set(webcheck.ID("nonexistent"), webcheck.ID("user-name"))
	el, err := h.Resolve(set, webcheck.Visible)
	if err != nil {
		t.Fatalf("h.Resolve(%s) returned error: %v", set, err)
	}
	if id, err := el.GetAttribute("id"); err != nil || id != "user-name" {
		t.Errorf("resolved element id = %q, %v; want %q", id, err, "user-name")
	}

	_, err = h.Resolve(webcheck.Set(webcheck.ID("nonexistent")), webcheck.Present, webcheck.WithTimeout(500*time.Millisecond))
	var nr *webcheck.ElementNotResolvedError
	if !errors.As(err, &nr) {
		t.Errorf("h.Resolve(missing) returned %v, want an *ElementNotResolvedError", err)
	}
}

func testLoginRejected(t *testing.T, e env) {
	h, _ := newHarness(t, e)
	start := time.Now()
	_, err := h.EnsureLoggedIn(webcheck.Credentials{Identifier: "user", Secret: "wrong"}, ShopLogin)
	var rejected *webcheck.AuthenticationRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("h.EnsureLoggedIn(wrong) returned %v, want an *AuthenticationRejectedError", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("rejection took %v, want well under the 10s timeout", elapsed)
	}
}

func testLoginIdempotent(t *testing.T, e env) {
	h, wd := newHarness(t, e)
	login(t, h)
	u, err := wd.CurrentURL()
	if err != nil {
		t.Fatalf("wd.CurrentURL() returned error: %v", err)
	}

	state, err := h.EnsureLoggedIn(goodCreds, ShopLogin)
	if err != nil || state != webcheck.LoggedIn {
		t.Fatalf("second h.EnsureLoggedIn() = %s, %v; want %s", state, err, webcheck.LoggedIn)
	}
	after, err := wd.CurrentURL()
	if err != nil {
		t.Fatalf("wd.CurrentURL() returned error: %v", err)
	}
	if after != u {
		t.Errorf("second h.EnsureLoggedIn() navigated from %q to %q", u, after)
	}
}

func testLogout(t *testing.T, e env) {
	h, _ := newHarness(t, e)
	login(t, h)

	state, err := h.EnsureLoggedOut(ShopLogin)
	if err != nil || state != webcheck.AnonymousOrLoggedOut {
		t.Fatalf("h.EnsureLoggedOut() = %s, %v; want %s", state, err, webcheck.AnonymousOrLoggedOut)
	}
	if state, err := h.SessionState(ShopLogin); err != nil || state != webcheck.AnonymousOrLoggedOut {
		t.Errorf("h.SessionState() after logout = %s, %v", state, err)
	}
}

type windows struct {
	current string
	handles []string
}

func snapshot(t *testing.T, wd selenium.WebDriver) windows {
	cur, err := wd.CurrentWindowHandle()
	if err != nil {
		t.Fatalf("wd.CurrentWindowHandle() returned error: %v", err)
	}
	handles, err := wd.WindowHandles()
	if err != nil {
		t.Fatalf("wd.WindowHandles() returned error: %v", err)
	}
	return windows{cur, handles}
}

func checkRestored(t *testing.T, wd selenium.WebDriver, before windows) {
	after := snapshot(t, wd)
	if diff := cmp.Diff(before, after, cmp.AllowUnexported(windows{})); diff != "" {
		t.Errorf("windows not restored (-before/+after):\n%s", diff)
	}
}

func testExternalLinkNewTab(t *testing.T, e env) {
	h, wd := newHarness(t, e)
	login(t, h)
	before := snapshot(t, wd)

	if err := h.VerifyExternalLinkAt(webcheck.Set(webcheck.CSS(".social_twitter a")), TwitterHost); err != nil {
		t.Errorf("h.VerifyExternalLinkAt(twitter) returned error: %v", err)
	}
	checkRestored(t, wd, before)
}

func testExternalLinkWrongDomain(t *testing.T, e env) {
	h, wd := newHarness(t, e)
	login(t, h)
	before := snapshot(t, wd)

	err := h.VerifyExternalLinkAt(webcheck.Set(webcheck.CSS(".social_evil a")), TwitterHost)
	var vf *webcheck.VerificationFailedError
	if !errors.As(err, &vf) {
		t.Errorf("h.VerifyExternalLinkAt(evil) returned %v, want a *VerificationFailedError", err)
	} else if webcheck.HostOf(vf.Actual) != EvilHost {
		t.Errorf("VerificationFailedError.Actual = %q, want a URL on %s", vf.Actual, EvilHost)
	}
	checkRestored(t, wd, before)
}

func testExternalLinkInPlace(t *testing.T, e env) {
	h, wd := newHarness(t, e)
	login(t, h)
	before := snapshot(t, wd)
	start, err := wd.CurrentURL()
	if err != nil {
		t.Fatalf("wd.CurrentURL() returned error: %v", err)
	}

	if err := h.VerifyExternalLinkAt(webcheck.Set(webcheck.CSS(".social_inplace a")), TwitterHost); err != nil {
		t.Errorf("h.VerifyExternalLinkAt(in place) returned error: %v", err)
	}
	checkRestored(t, wd, before)
	if u, err := wd.CurrentURL(); err != nil || u != start {
		t.Errorf("after an in-place link check the page is %q (%v), want %q", u, err, start)
	}
}

func testSelectSort(t *testing.T, e env) {
	h, _ := newHarness(t, e)
	login(t, h)

	set := webcheck.Set(webcheck.CSS("select[data-test='product_sort_container']"), webcheck.CSS(".product_sort_container"))
	if err := h.SelectByText(set, "Price (low to high)"); err != nil {
		t.Fatalf("h.SelectByText() returned error: %v", err)
	}
	el, err := h.Resolve(set, webcheck.Visible)
	if err != nil {
		t.Fatalf("h.Resolve(%s) returned error: %v", set, err)
	}
	dd, err := webcheck.NewDropdown(el)
	if err != nil {
		t.Fatalf("webcheck.NewDropdown() returned error: %v", err)
	}
	if got, err := dd.SelectedText(); err != nil || got != "Price (low to high)" {
		t.Errorf("dd.SelectedText() = %q, %v; want %q", got, err, "Price (low to high)")
	}
}

func testTexts(t *testing.T, e env) {
	h, _ := newHarness(t, e)
	login(t, h)

	got, err := h.Texts(webcheck.Set(webcheck.CSS(".inventory_item_name")))
	if err != nil {
		t.Fatalf("h.Texts() returned error: %v", err)
	}
	want := []string{"Sauce Labs Backpack", "Sauce Labs Bike Light", "Sauce Labs Onesie"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("h.Texts() returned diff (-want/+got):\n%s", diff)
	}
}
