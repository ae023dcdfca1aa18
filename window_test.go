package webcheck

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tebeka/selenium"
	"github.com/wanmail/webcheck/internal/fakebrowser"
	"pgregory.net/rapid"
)

const (
	twitterURL = "https://twitter.com/saucelabs"
	evilURL    = "https://evil.example/phish"
)

// footer serves a shop page whose footer link runs onClick, and focuses it.
func footer(b *fakebrowser.Browser, onClick func(b *fakebrowser.Browser)) *fakebrowser.Element {
	link := fakebrowser.NewElement("a", "Twitter")
	link.OnClick = onClick
	b.Serve(&fakebrowser.Page{URL: shopURL}).Add(selenium.ByCSSSelector, ".social_twitter a", link)
	b.Navigate(shopURL)
	return link
}

var footerLink = Set(CSS(".social_twitter a"))

// requireRestored checks the window set and focus match the snapshot.
func requireRestored(t require.TestingT, b *fakebrowser.Browser, before WindowSet) {
	require.Equal(t, before.Handles, b.Handles(), "open windows")
	require.Equal(t, before.Origin, b.Focused(), "focused window")
}

func TestVerifyExternalLinkNewTab(t *testing.T) {
	b, h := newFake(Config{})
	footer(b, func(b *fakebrowser.Browser) { b.OpenWindow(twitterURL) })
	before, err := h.Windows.Snapshot()
	require.NoError(t, err)

	require.NoError(t, h.VerifyExternalLinkAt(footerLink, "twitter.com"))
	requireRestored(t, b, before)
	require.Equal(t, 1, b.Calls("CloseWindow"))
	require.Less(t, b.Clock.Elapsed(), DefaultNewWindowGrace, "a new tab should be noticed before the grace period ends")
}

func TestVerifyExternalLinkWrongDestination(t *testing.T) {
	b, h := newFake(Config{})
	footer(b, func(b *fakebrowser.Browser) { b.OpenWindow(evilURL) })
	before, err := h.Windows.Snapshot()
	require.NoError(t, err)

	err = h.VerifyExternalLinkAt(footerLink, "twitter.com")
	var vf *VerificationFailedError
	require.ErrorAs(t, err, &vf)
	require.Equal(t, "twitter.com", vf.Expected)
	require.Equal(t, evilURL, vf.Actual)
	requireRestored(t, b, before)
}

func TestVerifyExternalLinkCaseInsensitive(t *testing.T) {
	b, h := newFake(Config{})
	footer(b, func(b *fakebrowser.Browser) { b.OpenWindow("https://Twitter.COM/SauceLabs") })
	require.NoError(t, h.VerifyExternalLinkAt(footerLink, "twitter.com"))
}

func TestVerifyExternalLinkInPlace(t *testing.T) {
	b, h := newFake(Config{})
	footer(b, func(b *fakebrowser.Browser) { b.Navigate(twitterURL) })
	before, err := h.Windows.Snapshot()
	require.NoError(t, err)

	require.NoError(t, h.VerifyExternalLinkAt(footerLink, "twitter.com"))
	requireRestored(t, b, before)
	require.Equal(t, 1, b.Calls("Back"))
	url, err := b.CurrentURL()
	require.NoError(t, err)
	require.Equal(t, shopURL, url)
	require.GreaterOrEqual(t, b.Clock.Elapsed(), DefaultNewWindowGrace)
}

func TestVerifyExternalLinkInPlaceRedirectChain(t *testing.T) {
	b, h := newFake(Config{})
	footer(b, func(b *fakebrowser.Browser) {
		b.Navigate("https://t.co/abc")
		b.Navigate(twitterURL)
	})
	before, err := h.Windows.Snapshot()
	require.NoError(t, err)

	require.NoError(t, h.VerifyExternalLinkAt(footerLink, "twitter.com"))
	requireRestored(t, b, before)
	require.Equal(t, 2, b.Calls("Back"))
	require.Zero(t, b.Calls("Get"))
	url, err := b.CurrentURL()
	require.NoError(t, err)
	require.Equal(t, shopURL, url)
}

func TestVerifyExternalLinkInPlaceReloadsAfterLongChain(t *testing.T) {
	b, h := newFake(Config{})
	footer(b, func(b *fakebrowser.Browser) {
		for i := 0; i < maxBackSteps+2; i++ {
			b.Navigate(fmt.Sprintf("https://t.co/hop%d", i))
		}
		b.Navigate(twitterURL)
	})

	require.NoError(t, h.VerifyExternalLinkAt(footerLink, "twitter.com"))
	require.Equal(t, maxBackSteps, b.Calls("Back"))
	require.Equal(t, 1, b.Calls("Get"))
	url, err := b.CurrentURL()
	require.NoError(t, err)
	require.Equal(t, shopURL, url)
}

func TestVerifyExternalLinkInPlaceReloadsWhenBackFails(t *testing.T) {
	b, h := newFake(Config{})
	footer(b, func(b *fakebrowser.Browser) { b.Navigate(twitterURL) })
	b.Fail = func(method string) error {
		if method == "Back" {
			return fakebrowser.Errorf("unknown error", "history unavailable")
		}
		return nil
	}

	require.NoError(t, h.VerifyExternalLinkAt(footerLink, "twitter.com"))
	require.Equal(t, 1, b.Calls("Get"))
	url, err := b.CurrentURL()
	require.NoError(t, err)
	require.Equal(t, shopURL, url)
}

func TestVerifyExternalLinkInPlaceCannotReturn(t *testing.T) {
	b, h := newFake(Config{})
	footer(b, func(b *fakebrowser.Browser) { b.Navigate(twitterURL) })
	b.Fail = func(method string) error {
		if method == "Back" || method == "Get" {
			return fakebrowser.Errorf("unknown error", "browser is wedged")
		}
		return nil
	}

	err := h.VerifyExternalLinkAt(footerLink, "twitter.com")
	var wl *WindowLifecycleError
	require.ErrorAs(t, err, &wl)
	require.Equal(t, b.Focused(), wl.Origin)
}

func TestVerifyExternalLinkBlankTab(t *testing.T) {
	b, h := newFake(Config{Timeout: 3 * time.Second})
	footer(b, func(b *fakebrowser.Browser) { b.OpenWindow("about:blank") })
	before, err := h.Windows.Snapshot()
	require.NoError(t, err)

	err = h.VerifyExternalLinkAt(footerLink, "twitter.com")
	var vf *VerificationFailedError
	require.ErrorAs(t, err, &vf)
	require.Equal(t, "about:blank", vf.Actual)
	requireRestored(t, b, before)
}

func TestVerifyExternalLinkClosesEveryNewWindow(t *testing.T) {
	b, h := newFake(Config{})
	footer(b, func(b *fakebrowser.Browser) {
		b.OpenWindow(twitterURL)
		b.OpenWindow("https://ads.example/popup")
	})
	before, err := h.Windows.Snapshot()
	require.NoError(t, err)

	require.NoError(t, h.VerifyExternalLinkAt(footerLink, "twitter.com"))
	requireRestored(t, b, before)
	require.Equal(t, 2, b.Calls("CloseWindow"))
}

func TestVerifyExternalLinkNoNavigation(t *testing.T) {
	b, h := newFake(Config{Timeout: 3 * time.Second})
	footer(b, func(*fakebrowser.Browser) {})
	before, err := h.Windows.Snapshot()
	require.NoError(t, err)

	err = h.VerifyExternalLinkAt(footerLink, "twitter.com")
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	requireRestored(t, b, before)
	require.Zero(t, b.Calls("Back"))
}

func TestVerifyExternalLinkTriggerFails(t *testing.T) {
	b, h := newFake(Config{})
	b.Navigate(shopURL)
	before, err := h.Windows.Snapshot()
	require.NoError(t, err)

	clickErr := fakebrowser.Errorf(CodeClickIntercepted, "cookie banner")
	err = h.VerifyExternalLink(func() error {
		b.OpenWindow(twitterURL)
		return clickErr
	}, "twitter.com")
	require.ErrorIs(t, err, clickErr)
	requireRestored(t, b, before)
}

func TestVerifyExternalLinkOriginClosed(t *testing.T) {
	b, h := newFake(Config{})
	origin := b.Focused()
	footer(b, func(b *fakebrowser.Browser) {
		b.OpenWindow(twitterURL)
		b.CloseByPage(origin)
	})

	err := h.VerifyExternalLinkAt(footerLink, "twitter.com")
	var wl *WindowLifecycleError
	require.ErrorAs(t, err, &wl)
	require.Equal(t, origin, wl.Origin)
}

func TestVerifyExternalLinkResolveFailure(t *testing.T) {
	b, h := newFake(Config{Timeout: time.Second})
	b.Navigate(shopURL)
	err := h.VerifyExternalLinkAt(Set(LinkText("Facebook")), "facebook.com")
	var nr *ElementNotResolvedError
	require.ErrorAs(t, err, &nr)
	require.Zero(t, b.Calls("SwitchWindow"))
}

func TestWindowSetDiff(t *testing.T) {
	s := WindowSet{Origin: "a", Handles: []string{"a", "b"}}
	require.True(t, s.Contains("b"))
	require.False(t, s.Contains("c"))
	require.Equal(t, []string{"c", "d"}, s.Diff([]string{"a", "c", "b", "d"}))
	require.Empty(t, s.Diff([]string{"b", "a"}))
}

func TestHostOf(t *testing.T) {
	for in, want := range map[string]string{
		"https://twitter.com/saucelabs":      "twitter.com",
		"https://www.LinkedIn.com:443/x?y=z": "www.LinkedIn.com",
		"about:blank":                        "",
		"://bad":                             "",
	} {
		require.Equal(t, want, HostOf(in), "HostOf(%q)", in)
	}
}

// However the link behaves, the browser ends with the windows and focus it
// started with.
func TestVerifyExternalLinkRestoresWindows(t *testing.T) {
	behaviours := []func(b *fakebrowser.Browser){
		func(b *fakebrowser.Browser) { b.OpenWindow(twitterURL) },
		func(b *fakebrowser.Browser) { b.OpenWindow(evilURL) },
		func(b *fakebrowser.Browser) { b.OpenWindow("about:blank") },
		func(b *fakebrowser.Browser) { b.Navigate(twitterURL) },
		func(b *fakebrowser.Browser) { b.Navigate(evilURL) },
		func(b *fakebrowser.Browser) {
			b.Navigate("https://t.co/abc")
			b.Navigate(twitterURL)
		},
		func(b *fakebrowser.Browser) {},
	}
	rapid.Check(t, func(rt *rapid.T) {
		b, h := newFake(Config{Timeout: 3 * time.Second})
		extra := rapid.IntRange(0, 3).Draw(rt, "preexisting")
		for i := 0; i < extra; i++ {
			b.OpenWindow("https://shop.test/help")
		}
		behaviour := behaviours[rapid.IntRange(0, len(behaviours)-1).Draw(rt, "behaviour")]
		popups := rapid.IntRange(0, 2).Draw(rt, "popups")
		footer(b, func(b *fakebrowser.Browser) {
			behaviour(b)
			for i := 0; i < popups; i++ {
				b.OpenWindow("https://ads.example/")
			}
		})
		before, err := h.Windows.Snapshot()
		if err != nil {
			rt.Fatalf("Snapshot() returned error: %v", err)
		}

		err = h.VerifyExternalLinkAt(footerLink, "twitter.com")
		var wl *WindowLifecycleError
		if errors.As(err, &wl) {
			rt.Fatalf("VerifyExternalLinkAt() could not restore windows: %v", err)
		}
		requireRestored(rt, b, before)
		url, err := b.CurrentURL()
		if err != nil || url != shopURL {
			rt.Fatalf("ended on %q (%v), want %q", url, err, shopURL)
		}
	})
}
