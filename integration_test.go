package webcheck_test

import (
	"flag"
	"os"
	"os/exec"
	"testing"

	"github.com/golang/glog"
	"github.com/wanmail/webcheck/internal/harnesstest"
	"github.com/wanmail/webcheck/launch"
)

var (
	chromeDriverPath = flag.String("chrome_driver_path", "", "The path to the ChromeDriver binary. If empty or the file is not present, Chrome tests will not be run.")
	chromeBinary     = flag.String("chrome_binary", "vendor/chrome-linux/chrome", "The name of the Chrome binary or the path to it. If name is not an exact path, the PATH will be searched.")

	geckoDriverPath = flag.String("geckodriver_path", "", "The path to the geckodriver binary. If empty or the file is not present, the Firefox tests will not be run.")
	firefoxBinary   = flag.String("firefox_binary", "vendor/firefox/firefox", "The name of the Firefox binary or the path to it. If the name does not contain directory separators, the PATH will be searched.")

	headless         = flag.Bool("headless", true, "If true, run the browsers headless.")
	startFrameBuffer = flag.Bool("start_frame_buffer", false, "If true, start an Xvfb subprocess and run the browsers in that X server.")
)

// lookBinary resolves name to an existing file, searching the PATH for bare
// names.
func lookBinary(name string) (string, bool) {
	if _, err := os.Stat(name); err == nil {
		return name, true
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}

func runBrowser(t *testing.T, o launch.Options) {
	o.Headless = *headless
	o.FrameBuffer = *startFrameBuffer
	if testing.Verbose() {
		o.Output = os.Stderr
	}
	s, addr, err := launch.StartService(o)
	if err != nil {
		t.Fatalf("launch.StartService(%+v) returned error: %v", o, err)
	}
	defer func() {
		if err := s.Stop(); err != nil {
			t.Errorf("Error stopping the %s driver service: %v", o.Browser, err)
		}
	}()
	glog.V(1).Infof("%s driver listening at %s", o.Browser, addr)

	o.Executor = addr
	harnesstest.RunHarnessTests(t, harnesstest.Config{Options: o})
}

func TestChrome(t *testing.T) {
	path, ok := lookBinary(*chromeBinary)
	if !ok {
		t.Skipf("Skipping Chrome tests because binary %q not found", *chromeBinary)
	}
	if _, err := os.Stat(*chromeDriverPath); err != nil {
		t.Skipf("Skipping Chrome tests because ChromeDriver not found at path %q", *chromeDriverPath)
	}
	runBrowser(t, launch.Options{Browser: launch.Chrome, BrowserPath: path, DriverPath: *chromeDriverPath})
}

func TestFirefox(t *testing.T) {
	path, ok := lookBinary(*firefoxBinary)
	if !ok {
		t.Skipf("Skipping Firefox tests because binary %q not found", *firefoxBinary)
	}
	if _, err := os.Stat(*geckoDriverPath); err != nil {
		t.Skipf("Skipping Firefox tests because geckodriver binary %q not found", *geckoDriverPath)
	}
	runBrowser(t, launch.Options{Browser: launch.Firefox, BrowserPath: path, DriverPath: *geckoDriverPath})
}
