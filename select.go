package webcheck

import (
	"fmt"
	"strings"

	"github.com/tebeka/selenium"
)

// Dropdown wraps a <select> element, such as the sort control of a product
// listing.
type Dropdown struct {
	element  selenium.WebElement
	multiple bool
}

// NewDropdown wraps el, which must be a <select>.
func NewDropdown(el selenium.WebElement) (*Dropdown, error) {
	tag, err := el.TagName()
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(tag, "select") {
		return nil, fmt.Errorf(`element should have been "select" but was %q`, tag)
	}
	// The attribute is absent (an error on some drivers) for single selects.
	mult, err := el.GetAttribute("multiple")
	multiple := err == nil && mult != "" && !strings.EqualFold(mult, "false")
	return &Dropdown{element: el, multiple: multiple}, nil
}

// Element returns the wrapped <select>.
func (s *Dropdown) Element() selenium.WebElement { return s.element }

// Multiple reports whether several options can be selected at once.
func (s *Dropdown) Multiple() bool { return s.multiple }

// Options returns every <option> of the dropdown.
func (s *Dropdown) Options() ([]selenium.WebElement, error) {
	return s.element.FindElements(selenium.ByTagName, "option")
}

// Selected returns the selected options.
func (s *Dropdown) Selected() ([]selenium.WebElement, error) {
	opts, err := s.Options()
	if err != nil {
		return nil, err
	}
	var selected []selenium.WebElement
	for _, o := range opts {
		ok, err := o.IsSelected()
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, o)
		}
	}
	return selected, nil
}

// SelectedText returns the trimmed text of the first selected option.
func (s *Dropdown) SelectedText() (string, error) {
	selected, err := s.Selected()
	if err != nil {
		return "", err
	}
	if len(selected) == 0 {
		return "", fmt.Errorf("no option is selected")
	}
	text, err := selected[0].Text()
	return strings.TrimSpace(text), err
}

// SelectByVisibleText selects the options whose whitespace-normalised text
// equals text.
func (s *Dropdown) SelectByVisibleText(text string) error {
	opts, err := s.element.FindElements(selenium.ByXPATH, `.//option[normalize-space(.) = `+xpathLiteral(strings.TrimSpace(text))+`]`)
	if err != nil {
		return err
	}
	if len(opts) == 0 {
		// Some drivers disagree with XPath about whitespace; compare the
		// rendered text instead.
		all, err := s.Options()
		if err != nil {
			return err
		}
		want := strings.Join(strings.Fields(text), " ")
		for _, o := range all {
			t, err := o.Text()
			if err != nil {
				return err
			}
			if strings.Join(strings.Fields(t), " ") == want {
				opts = append(opts, o)
			}
		}
	}
	if len(opts) == 0 {
		return fmt.Errorf("cannot locate option with text %q", text)
	}
	return s.selectAll(opts)
}

// SelectByValue selects the options whose value attribute equals value.
func (s *Dropdown) SelectByValue(value string) error {
	opts, err := s.element.FindElements(selenium.ByXPATH, `.//option[@value = `+xpathLiteral(value)+`]`)
	if err != nil {
		return err
	}
	if len(opts) == 0 {
		return fmt.Errorf("cannot locate option with value %q", value)
	}
	return s.selectAll(opts)
}

// SelectByIndex selects the option at position idx, counting from zero.
func (s *Dropdown) SelectByIndex(idx int) error {
	opts, err := s.Options()
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(opts) {
		return fmt.Errorf("option index %d out of range [0, %d)", idx, len(opts))
	}
	return setSelected(opts[idx], true)
}

func (s *Dropdown) selectAll(opts []selenium.WebElement) error {
	for _, o := range opts {
		if err := setSelected(o, true); err != nil {
			return err
		}
		if !s.multiple {
			return nil
		}
	}
	return nil
}

func setSelected(option selenium.WebElement, selected bool) error {
	sel, err := option.IsSelected()
	if err != nil {
		return err
	}
	if sel != selected {
		return option.Click()
	}
	return nil
}

// xpathLiteral quotes s as an XPath string literal. XPath 1.0 has no escape
// sequences, so strings holding both quote kinds are built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// SelectByText resolves a dropdown from set and selects the option showing
// text.
func (h *Harness) SelectByText(set LocatorSet, text string, opts ...WaitOption) error {
	e, err := h.Resolver.Resolve(set, Clickable, opts...)
	if err != nil {
		return err
	}
	dd, err := NewDropdown(e)
	if err != nil {
		return err
	}
	return dd.SelectByVisibleText(text)
}
