package fakebrowser

import (
	"regexp"
	"strings"

	"github.com/tebeka/selenium"
)

// Element is a fake page element. Methods the harness never calls are left
// to the embedded nil interface and panic if used.
type Element struct {
	selenium.WebElement

	Tag      string
	Label    string
	Value    string
	Attrs    map[string]string
	Hidden   bool
	Disabled bool
	Selected bool
	// Stale makes every call fail with a stale element reference.
	Stale bool
	// Detached elements are skipped by FindElements.
	Detached bool
	// Covered makes Click fail as if another element received it.
	Covered bool
	// TextFailures is how many Text calls fail with a stale element
	// reference before Text succeeds.
	TextFailures int
	// Options are the <option> children of a <select>.
	Options []*Element
	// OnClick runs after a successful click.
	OnClick func(b *Browser)

	Clicks int
	Typed  []string

	browser *Browser
	parent  *Element
}

// NewElement returns a visible, enabled element.
func NewElement(tag, text string) *Element {
	return &Element{Tag: tag, Label: text}
}

// NewSelect returns a <select> with one option per label. The first option
// is selected.
func NewSelect(labels ...string) *Element {
	s := NewElement("select", "")
	for i, l := range labels {
		o := NewElement("option", l)
		o.Value = strings.ToLower(strings.ReplaceAll(l, " ", "-"))
		o.Selected = i == 0
		o.parent = s
		s.Options = append(s.Options, o)
	}
	return s
}

func (e *Element) stale() error {
	if e.Stale {
		return Errorf("stale element reference", "element is not attached to the page document")
	}
	return nil
}

func (e *Element) Click() error {
	if err := e.stale(); err != nil {
		return err
	}
	switch {
	case e.Hidden:
		return Errorf("element not interactable", "element is not visible")
	case e.Covered:
		return Errorf("element click intercepted", "other element would receive the click")
	}
	e.Clicks++
	if e.Tag == "option" && e.parent != nil {
		if e.parent.Attrs["multiple"] == "" {
			for _, o := range e.parent.Options {
				o.Selected = false
			}
			e.Selected = true
		} else {
			e.Selected = !e.Selected
		}
	}
	if e.OnClick != nil && e.browser != nil {
		e.OnClick(e.browser)
	}
	return nil
}

func (e *Element) SendKeys(keys string) error {
	if err := e.stale(); err != nil {
		return err
	}
	if e.browser != nil {
		e.browser.calls["SendKeys"]++
	}
	if e.Hidden || e.Disabled {
		return Errorf("element not interactable", "element cannot take input")
	}
	e.Typed = append(e.Typed, keys)
	e.Value += keys
	return nil
}

func (e *Element) Clear() error {
	if err := e.stale(); err != nil {
		return err
	}
	e.Value = ""
	return nil
}

func (e *Element) TagName() (string, error) {
	if err := e.stale(); err != nil {
		return "", err
	}
	return e.Tag, nil
}

func (e *Element) Text() (string, error) {
	if err := e.stale(); err != nil {
		return "", err
	}
	if e.TextFailures > 0 {
		e.TextFailures--
		return "", Errorf("stale element reference", "element was replaced while reading its text")
	}
	if e.Hidden {
		return "", nil
	}
	return e.Label, nil
}

func (e *Element) IsSelected() (bool, error) {
	if err := e.stale(); err != nil {
		return false, err
	}
	return e.Selected, nil
}

func (e *Element) IsEnabled() (bool, error) {
	if err := e.stale(); err != nil {
		return false, err
	}
	return !e.Disabled, nil
}

func (e *Element) IsDisplayed() (bool, error) {
	if err := e.stale(); err != nil {
		return false, err
	}
	return !e.Hidden, nil
}

func (e *Element) GetAttribute(name string) (string, error) {
	if err := e.stale(); err != nil {
		return "", err
	}
	if name == "value" {
		return e.Value, nil
	}
	v, ok := e.Attrs[name]
	if !ok {
		return "", Errorf("unknown error", "nil return value")
	}
	return v, nil
}

var literal = regexp.MustCompile(`= ["']([^"']*)["']\]$`)

// FindElements supports the option queries a <select> needs: by tag name
// "option", and XPath matching normalised text or @value.
func (e *Element) FindElements(by, value string) ([]selenium.WebElement, error) {
	if err := e.stale(); err != nil {
		return nil, err
	}
	var out []selenium.WebElement
	switch {
	case by == selenium.ByTagName && value == "option":
		for _, o := range e.Options {
			out = append(out, o)
		}
	case by == selenium.ByXPATH:
		m := literal.FindStringSubmatch(value)
		if m == nil {
			return nil, Errorf("invalid selector", "fakebrowser: unsupported xpath %q", value)
		}
		for _, o := range e.Options {
			got := strings.Join(strings.Fields(o.Label), " ")
			if strings.Contains(value, "@value") {
				got = o.Value
			}
			if got == m[1] {
				out = append(out, o)
			}
		}
	default:
		return nil, Errorf("invalid selector", "fakebrowser: unsupported child query %s=%s", by, value)
	}
	for _, o := range e.Options {
		o.browser = e.browser
	}
	return out, nil
}

func (e *Element) FindElement(by, value string) (selenium.WebElement, error) {
	els, err := e.FindElements(by, value)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, Errorf("no such element", "no child matching %s=%s", by, value)
	}
	return els[0], nil
}
