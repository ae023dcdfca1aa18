/*
Package webcheck provides a verification harness for browser end-to-end
tests driven through Selenium WebDriver.

It is built from four pieces, each usable on its own:

  - Poller: bounded, predicate-based waiting (no fixed sleeps).
  - Resolver: finds the element an ordered LocatorSet stands for, so one
    scenario can run against sites with different markup.
  - WindowController: checks that a link leads to an expected external
    site and always puts window focus back where it was.
  - SessionController: logs in or out from whatever state the browser is
    in, deciding by what the page shows rather than by remembered flags.

The harness talks to any selenium.WebDriver from github.com/tebeka/selenium.
Starting the browser is left to the caller; package launch has helpers.

Example usage:

	wd, _ := selenium.NewRemote(caps, "http://localhost:4444/wd/hub")
	defer wd.Quit()

	h := webcheck.New(wd, webcheck.DefaultConfig())
	login := webcheck.LoginConfig{
		EntryURL:       "https://www.saucedemo.com/",
		Username:       webcheck.Set(webcheck.ID("user-name"), webcheck.Name("username")),
		Password:       webcheck.Set(webcheck.ID("password")),
		Submit:         webcheck.Set(webcheck.ID("login-button"), webcheck.CSS("input[type=submit]")),
		LoggedInMarker: webcheck.Set(webcheck.ID("logout_sidebar_link")),
		ErrorMarker:    webcheck.Set(webcheck.CSS("h3[data-test='error']"), webcheck.CSS(".error-message")),
		LogoutMenu:     webcheck.Set(webcheck.ID("react-burger-menu-btn")),
		Logout:         webcheck.Set(webcheck.ID("logout_sidebar_link")),
	}
	if _, err := h.EnsureLoggedIn(webcheck.Credentials{Identifier: "standard_user", Secret: "secret_sauce"}, login); err != nil {
		// *AuthenticationRejectedError or *AuthenticationIndeterminateError
	}
	err := h.VerifyExternalLinkAt(webcheck.Set(webcheck.CSS("a[href*='twitter.com']")), "twitter.com")
*/
package webcheck
