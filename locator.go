package webcheck

import (
	"fmt"
	"strings"

	"github.com/tebeka/selenium"
)

// Locator describes one way of finding an element: a WebDriver strategy
// (selenium.ByID, selenium.ByCSSSelector, ...) and its query.
type Locator struct {
	By    string
	Value string
}

// ID locates elements by their id attribute.
func ID(id string) Locator { return Locator{selenium.ByID, id} }

// CSS locates elements by CSS selector.
func CSS(selector string) Locator { return Locator{selenium.ByCSSSelector, selector} }

// XPath locates elements by XPath expression.
func XPath(expr string) Locator { return Locator{selenium.ByXPATH, expr} }

// LinkText locates anchors by their exact visible text.
func LinkText(text string) Locator { return Locator{selenium.ByLinkText, text} }

// PartialLinkText locates anchors whose visible text contains text.
func PartialLinkText(text string) Locator { return Locator{selenium.ByPartialLinkText, text} }

// Name locates elements by their name attribute.
func Name(name string) Locator { return Locator{selenium.ByName, name} }

// TagName locates elements by tag.
func TagName(tag string) Locator { return Locator{selenium.ByTagName, tag} }

// ClassName locates elements by a single class name.
func ClassName(class string) Locator { return Locator{selenium.ByClassName, class} }

func (l Locator) String() string {
	return fmt.Sprintf("%s(%q)", l.By, l.Value)
}

// strategies maps the short prefixes of the compact notation onto WebDriver
// strategies.
var strategies = map[string]string{
	"id":           selenium.ByID,
	"css":          selenium.ByCSSSelector,
	"xpath":        selenium.ByXPATH,
	"link":         selenium.ByLinkText,
	"partial-link": selenium.ByPartialLinkText,
	"name":         selenium.ByName,
	"tag":          selenium.ByTagName,
	"class":        selenium.ByClassName,
}

// ParseLocator parses the compact "strategy=query" notation, e.g.
// "id=user-name" or "xpath=//button[.='Login']". A string without a known
// strategy prefix is taken as a CSS selector in full, so "input[name=q]"
// parses as CSS.
func ParseLocator(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locator{}, fmt.Errorf("empty locator")
	}
	if i := strings.Index(s, "="); i > 0 {
		if by, ok := strategies[strings.ToLower(strings.TrimSpace(s[:i]))]; ok {
			value := strings.TrimSpace(s[i+1:])
			if value == "" {
				return Locator{}, fmt.Errorf("locator %q has an empty query", s)
			}
			return Locator{by, value}, nil
		}
	}
	return CSS(s), nil
}

// LocatorSet is an ordered list of fallback locators for one logical
// control. Earlier locators have priority.
type LocatorSet []Locator

// Set builds a LocatorSet from locators in priority order.
func Set(locators ...Locator) LocatorSet { return LocatorSet(locators) }

// ParseLocatorSet parses every entry with ParseLocator.
func ParseLocatorSet(entries ...string) (LocatorSet, error) {
	set := make(LocatorSet, 0, len(entries))
	for _, e := range entries {
		l, err := ParseLocator(e)
		if err != nil {
			return nil, err
		}
		set = append(set, l)
	}
	return set, nil
}

func (s LocatorSet) String() string {
	parts := make([]string, len(s))
	for i, l := range s {
		parts[i] = l.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
