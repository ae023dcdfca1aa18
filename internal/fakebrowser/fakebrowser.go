// Package fakebrowser is an in-memory stand-in for a WebDriver session. It
// models pages as fixed element tables keyed by locator, windows with
// history, and counts every call so tests can assert what a flow touched.
package fakebrowser

import (
	"fmt"
	"strings"

	"github.com/tebeka/selenium"
)

// ReadyStateScript is the script the harness uses to read document.readyState.
const ReadyStateScript = "return document.readyState"

// Page is the content served at one URL.
type Page struct {
	URL   string
	Title string
	// ReadyState defaults to "complete".
	ReadyState string
	// Elements maps Key(by, value) to the elements that locator matches.
	Elements map[string][]*Element
}

// Add registers elements under a locator and returns the page.
func (p *Page) Add(by, value string, elems ...*Element) *Page {
	if p.Elements == nil {
		p.Elements = make(map[string][]*Element)
	}
	p.Elements[Key(by, value)] = append(p.Elements[Key(by, value)], elems...)
	return p
}

// Key is the element table key of a locator.
func Key(by, value string) string { return by + "=" + value }

type window struct {
	history []string
}

func (w *window) url() string { return w.history[len(w.history)-1] }

// Browser implements the harness Driver interface.
type Browser struct {
	Clock *Clock

	pages   map[string]*Page
	windows map[string]*window
	order   []string
	current string
	nextID  int

	calls map[string]int
	finds map[string]int

	// Scripts answers ExecuteScript calls other than the readyState and
	// scroll scripts.
	Scripts map[string]func(args []interface{}) (interface{}, error)
	// Fail, if set, is consulted on every call; a non-nil error is returned
	// instead of performing it.
	Fail func(method string) error
}

// New returns a browser with one window showing about:blank.
func New() *Browser {
	b := &Browser{
		Clock:   NewClock(),
		pages:   make(map[string]*Page),
		windows: make(map[string]*window),
		calls:   make(map[string]int),
		finds:   make(map[string]int),
	}
	b.current = b.newWindow("about:blank")
	return b
}

func (b *Browser) newWindow(url string) string {
	b.nextID++
	h := fmt.Sprintf("window-%d", b.nextID)
	b.windows[h] = &window{history: []string{url}}
	b.order = append(b.order, h)
	return h
}

// Serve registers p at p.URL.
func (b *Browser) Serve(p *Page) *Page {
	b.pages[p.URL] = p
	return p
}

// Page returns the page registered at url, creating an empty one if needed.
func (b *Browser) Page(url string) *Page {
	p, ok := b.pages[url]
	if !ok {
		p = &Page{URL: url}
		b.pages[url] = p
	}
	return p
}

// Navigate loads url in the focused window, as a followed link would.
func (b *Browser) Navigate(url string) {
	w := b.windows[b.current]
	if w == nil {
		return
	}
	w.history = append(w.history, url)
}

// OpenWindow opens url in a new window without moving focus, as a
// target=_blank link does, and returns the new handle.
func (b *Browser) OpenWindow(url string) string {
	return b.newWindow(url)
}

// CloseByPage closes a window without the harness asking, as a site script
// calling window.close() would.
func (b *Browser) CloseByPage(handle string) {
	b.closeWindow(handle)
}

func (b *Browser) closeWindow(handle string) {
	delete(b.windows, handle)
	for i, h := range b.order {
		if h == handle {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Focused returns the focused handle.
func (b *Browser) Focused() string { return b.current }

// Handles returns the open handles in creation order.
func (b *Browser) Handles() []string { return append([]string(nil), b.order...) }

// Calls returns how many times method was called.
func (b *Browser) Calls(method string) int { return b.calls[method] }

// Finds returns how many times FindElements was called with by and value.
func (b *Browser) Finds(by, value string) int { return b.finds[Key(by, value)] }

// ResetCounts zeroes every call counter.
func (b *Browser) ResetCounts() {
	b.calls = make(map[string]int)
	b.finds = make(map[string]int)
}

func (b *Browser) record(method string) error {
	b.calls[method]++
	if b.Fail != nil {
		return b.Fail(method)
	}
	return nil
}

// Errorf returns a structured WebDriver error with the given code.
func Errorf(code, format string, args ...interface{}) error {
	return &selenium.Error{Err: code, Message: fmt.Sprintf(format, args...)}
}

func (b *Browser) focused() (*window, error) {
	w, ok := b.windows[b.current]
	if !ok {
		return nil, Errorf("no such window", "window %q was closed", b.current)
	}
	return w, nil
}

func (b *Browser) page() (*Page, error) {
	w, err := b.focused()
	if err != nil {
		return nil, err
	}
	return b.Page(w.url()), nil
}

// FindElements returns the attached elements registered for the locator on
// the current page.
func (b *Browser) FindElements(by, value string) ([]selenium.WebElement, error) {
	b.finds[Key(by, value)]++
	if err := b.record("FindElements"); err != nil {
		return nil, err
	}
	p, err := b.page()
	if err != nil {
		return nil, err
	}
	var out []selenium.WebElement
	for _, e := range p.Elements[Key(by, value)] {
		if e.Detached {
			continue
		}
		e.browser = b
		out = append(out, e)
	}
	return out, nil
}

func (b *Browser) CurrentWindowHandle() (string, error) {
	if err := b.record("CurrentWindowHandle"); err != nil {
		return "", err
	}
	if _, err := b.focused(); err != nil {
		return "", err
	}
	return b.current, nil
}

func (b *Browser) WindowHandles() ([]string, error) {
	if err := b.record("WindowHandles"); err != nil {
		return nil, err
	}
	return b.Handles(), nil
}

func (b *Browser) SwitchWindow(name string) error {
	if err := b.record("SwitchWindow"); err != nil {
		return err
	}
	if _, ok := b.windows[name]; !ok {
		return Errorf("no such window", "no window %q", name)
	}
	b.current = name
	return nil
}

// CloseWindow closes the focused window, as the remote client does; name
// must be that window.
func (b *Browser) CloseWindow(name string) error {
	if err := b.record("CloseWindow"); err != nil {
		return err
	}
	if name != b.current {
		return fmt.Errorf("fakebrowser: CloseWindow(%q) while %q is focused", name, b.current)
	}
	if _, err := b.focused(); err != nil {
		return err
	}
	b.closeWindow(name)
	return nil
}

func (b *Browser) CurrentURL() (string, error) {
	if err := b.record("CurrentURL"); err != nil {
		return "", err
	}
	w, err := b.focused()
	if err != nil {
		return "", err
	}
	return w.url(), nil
}

func (b *Browser) Title() (string, error) {
	if err := b.record("Title"); err != nil {
		return "", err
	}
	p, err := b.page()
	if err != nil {
		return "", err
	}
	return p.Title, nil
}

func (b *Browser) Get(url string) error {
	if err := b.record("Get"); err != nil {
		return err
	}
	w, err := b.focused()
	if err != nil {
		return err
	}
	w.history = append(w.history, url)
	return nil
}

func (b *Browser) Back() error {
	if err := b.record("Back"); err != nil {
		return err
	}
	w, err := b.focused()
	if err != nil {
		return err
	}
	if len(w.history) > 1 {
		w.history = w.history[:len(w.history)-1]
	}
	return nil
}

func (b *Browser) ExecuteScript(script string, args []interface{}) (interface{}, error) {
	if err := b.record("ExecuteScript"); err != nil {
		return nil, err
	}
	switch {
	case script == ReadyStateScript:
		p, err := b.page()
		if err != nil {
			return nil, err
		}
		if p.ReadyState == "" {
			return "complete", nil
		}
		return p.ReadyState, nil
	case strings.Contains(script, "scrollIntoView"):
		return nil, nil
	}
	if fn, ok := b.Scripts[script]; ok {
		return fn(args)
	}
	return nil, Errorf("javascript error", "fakebrowser: no handler for script %q", script)
}
