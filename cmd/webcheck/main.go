// Binary webcheck runs the checks of a site definition against a browser:
// it logs in when credentials are given, verifies every external link and
// logs out again. It exits with status 1 if any check failed.
//
//	webcheck -site saucedemo.yaml -browser chrome -driver_path vendor/chromedriver -user standard_user
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/wanmail/webcheck"
	"github.com/wanmail/webcheck/launch"
	"github.com/wanmail/webcheck/siteconfig"
)

var (
	sitePath          = flag.String("site", "", "The path to the site definition YAML file.")
	browser           = flag.String("browser", launch.Chrome, "The browser to run: chrome or firefox.")
	browserPath       = flag.String("browser_path", "", "The path to the browser binary. If empty, the driver's default is used.")
	driverPath        = flag.String("driver_path", "", "The path to the chromedriver or geckodriver binary.")
	executor          = flag.String("executor", "", "The URL of a remote WebDriver server. If set, no local driver is started.")
	headless          = flag.Bool("headless", true, "If true, run the browser headless.")
	startFrameBuffer  = flag.Bool("start_frame_buffer", false, "If true, start an Xvfb subprocess and run the browser in that X server.")
	user              = flag.String("user", "", "The login identifier. Defaults to $"+siteconfig.UserEnv+"; if empty, no login is attempted.")
	password          = flag.String("password", "", "The login secret. Defaults to $"+siteconfig.PasswordEnv+".")
	minBrowserVersion = flag.String("min_browser_version", "", "If set, fail unless the browser is at least this version.")
)

// result is the outcome of one check.
type result struct {
	check string
	err   error
}

// runChecks opens the site and performs its checks in order. Login failures
// skip the checks that need a session but not the link checks.
func runChecks(h *webcheck.Harness, site *siteconfig.Site, creds webcheck.Credentials) []result {
	if err := h.Open(site.BaseURL); err != nil {
		return []result{{"open " + site.BaseURL, err}}
	}

	var results []result
	loggedIn := false
	if site.HasLogin() && creds.Identifier != "" {
		_, err := h.EnsureLoggedIn(creds, site.LoginConfig())
		results = append(results, result{"login as " + creds.Identifier, err})
		loggedIn = err == nil
	}
	for _, l := range site.Links {
		err := h.VerifyExternalLinkAt(l.Trigger.Set(), l.Expect)
		results = append(results, result{fmt.Sprintf("link %s -> %s", l.Name, l.Expect), err})
	}
	if loggedIn && site.CanLogout() {
		_, err := h.EnsureLoggedOut(site.LoginConfig())
		results = append(results, result{"logout", err})
	}
	return results
}

// report prints one line per result and returns the number of failures.
func report(w io.Writer, site string, results []result) int {
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(w, "FAIL\t%s\t%s: %v\n", site, r.check, r.err)
			continue
		}
		fmt.Fprintf(w, "ok\t%s\t%s\n", site, r.check)
	}
	return failed
}

func main() {
	flag.Parse()
	defer glog.Flush()
	if *sitePath == "" {
		fmt.Fprintln(os.Stderr, "webcheck: -site is required")
		flag.Usage()
		os.Exit(2)
	}
	site, err := siteconfig.Load(*sitePath)
	if err != nil {
		glog.Exitf("Unable to load site definition: %v", err)
	}

	o := launch.Options{
		Browser:           *browser,
		BrowserPath:       *browserPath,
		DriverPath:        *driverPath,
		Headless:          *headless,
		FrameBuffer:       *startFrameBuffer,
		Executor:          *executor,
		MinBrowserVersion: *minBrowserVersion,
	}
	if glog.V(2) {
		o.Output = os.Stderr
	}
	b, err := launch.Start(o)
	if err != nil {
		glog.Exitf("Unable to start %s: %v", *browser, err)
	}

	h := webcheck.New(b.WebDriver, site.HarnessConfig())
	failed := report(os.Stdout, site.Name, runChecks(h, site, siteconfig.Credentials(*user, *password)))
	if err := b.Close(); err != nil {
		glog.Warningf("Error closing %s: %v", *browser, err)
	}
	if failed > 0 {
		glog.Flush()
		os.Exit(1)
	}
}
