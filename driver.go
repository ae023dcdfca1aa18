package webcheck

import "github.com/tebeka/selenium"

// Driver is the part of selenium.WebDriver the harness drives. Any
// selenium.WebDriver returned by selenium.NewRemote satisfies it.
type Driver interface {
	// FindElements finds potentially many elements in the current page's DOM.
	FindElements(by, value string) ([]selenium.WebElement, error)

	// CurrentWindowHandle returns the ID of current window handle.
	CurrentWindowHandle() (string, error)
	// WindowHandles returns the IDs of current open windows.
	WindowHandles() ([]string, error)
	// SwitchWindow switches the context to the specified window.
	SwitchWindow(name string) error
	// CloseWindow closes the specified window.
	CloseWindow(name string) error

	// CurrentURL returns the browser's current URL.
	CurrentURL() (string, error)
	// Title returns the current page's title.
	Title() (string, error)
	// Get navigates the browser to the provided URL.
	Get(url string) error
	// Back moves backward in history.
	Back() error

	// ExecuteScript executes a script.
	ExecuteScript(script string, args []interface{}) (interface{}, error)
}

var _ Driver = selenium.WebDriver(nil)
