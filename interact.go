package webcheck

import (
	"strings"

	"github.com/golang/glog"
	"github.com/tebeka/selenium"
)

const scrollIntoViewScript = "arguments[0].scrollIntoView({block:'center'});"

// clickElement scrolls e into the middle of the viewport and clicks it.
// Sticky headers on several sites cover elements the driver scrolled to the
// top edge, so the scroll is done explicitly.
func clickElement(d Driver, e selenium.WebElement) error {
	if _, err := d.ExecuteScript(scrollIntoViewScript, []interface{}{e}); err != nil {
		glog.V(2).Infof("scrollIntoView failed, clicking in place: %v", err)
	}
	return e.Click()
}

// typeInto replaces the value of e with text.
func typeInto(e selenium.WebElement, text string) error {
	if err := e.Clear(); err != nil {
		return err
	}
	return e.SendKeys(text)
}

// Click resolves a clickable element from set and clicks it.
func (h *Harness) Click(set LocatorSet, opts ...WaitOption) error {
	e, err := h.Resolver.Resolve(set, Clickable, opts...)
	if err != nil {
		return err
	}
	return clickElement(h.d, e)
}

// Type resolves a visible element from set, clears it and types text.
func (h *Harness) Type(set LocatorSet, text string, opts ...WaitOption) error {
	e, err := h.Resolver.Resolve(set, Visible, opts...)
	if err != nil {
		return err
	}
	return typeInto(e, text)
}

// Text resolves a visible element from set and returns its trimmed text.
func (h *Harness) Text(set LocatorSet, opts ...WaitOption) (string, error) {
	e, err := h.Resolver.Resolve(set, Visible, opts...)
	if err != nil {
		return "", err
	}
	text, err := e.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Texts returns the trimmed texts of every element matched by the first
// matching locator of set, e.g. the names in a product list.
func (h *Harness) Texts(set LocatorSet, opts ...WaitOption) ([]string, error) {
	elems, err := h.Resolver.FindAll(set, opts...)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(elems))
	for _, e := range elems {
		t, err := e.Text()
		if err != nil {
			return nil, err
		}
		texts = append(texts, strings.TrimSpace(t))
	}
	return texts, nil
}
