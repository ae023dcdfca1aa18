package webcheck

import (
	"testing"

	"github.com/tebeka/selenium"
	"github.com/wanmail/webcheck/internal/fakebrowser"
)

func TestXPathLiteral(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{"Price (low to high)", `"Price (low to high)"`},
		{`Say "hi"`, `'Say "hi"'`},
		{`It's "fine"`, `concat("It's ", '"', "fine", '"')`},
		{"", `""`},
	} {
		if got := xpathLiteral(tc.in); got != tc.want {
			t.Errorf("xpathLiteral(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func serveSortSelect(b *fakebrowser.Browser) *fakebrowser.Element {
	sel := fakebrowser.NewSelect("Name (A to Z)", "Name (Z to A)", "Price (low to high)", "Price (high to low)")
	b.Serve(&fakebrowser.Page{URL: inventoryURL}).Add(selenium.ByCSSSelector, ".product_sort_container", sel)
	b.Navigate(inventoryURL)
	return sel
}

func TestSelectByText(t *testing.T) {
	b, h := newFake(Config{})
	sel := serveSortSelect(b)

	if err := h.SelectByText(Set(CSS("select[data-test='product_sort_container']"), CSS(".product_sort_container")), " Price (low to high) "); err != nil {
		t.Fatalf("h.SelectByText() returned error: %v", err)
	}
	for i, o := range sel.Options {
		if want := i == 2; o.Selected != want {
			t.Errorf("option %q selected = %t, want %t", o.Label, o.Selected, want)
		}
	}
}

func TestDropdown(t *testing.T) {
	b, h := newFake(Config{})
	serveSortSelect(b)
	e, err := h.Resolve(Set(CSS(".product_sort_container")), Clickable)
	if err != nil {
		t.Fatalf("h.Resolve() returned error: %v", err)
	}
	dd, err := NewDropdown(e)
	if err != nil {
		t.Fatalf("NewDropdown() returned error: %v", err)
	}
	if dd.Multiple() {
		t.Error("dd.Multiple() = true for a single select")
	}
	if dd.Element() != e {
		t.Errorf("dd.Element() = %v, want the resolved <select>", dd.Element())
	}

	if got, err := dd.SelectedText(); err != nil || got != "Name (A to Z)" {
		t.Errorf("dd.SelectedText() = %q, %v; want the first option", got, err)
	}
	if err := dd.SelectByValue("price-(high-to-low)"); err != nil {
		t.Fatalf("dd.SelectByValue() returned error: %v", err)
	}
	if got, _ := dd.SelectedText(); got != "Price (high to low)" {
		t.Errorf("after SelectByValue, dd.SelectedText() = %q", got)
	}
	if err := dd.SelectByIndex(1); err != nil {
		t.Fatalf("dd.SelectByIndex(1) returned error: %v", err)
	}
	if got, _ := dd.SelectedText(); got != "Name (Z to A)" {
		t.Errorf("after SelectByIndex(1), dd.SelectedText() = %q", got)
	}
	if err := dd.SelectByIndex(4); err == nil {
		t.Error("dd.SelectByIndex(4) returned nil error for a four-option select")
	}
	if err := dd.SelectByVisibleText("Popularity"); err == nil {
		t.Error("dd.SelectByVisibleText() returned nil error for a missing option")
	}
}

func TestNewDropdownRejectsOtherTags(t *testing.T) {
	if _, err := NewDropdown(fakebrowser.NewElement("div", "")); err == nil {
		t.Error("NewDropdown(<div>) returned nil error")
	}
}
