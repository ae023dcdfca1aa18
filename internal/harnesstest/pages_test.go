package harnesstest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func get(t *testing.T, host, path string, cookie *http.Cookie) *http.Response {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "http://"+host+path, nil)
	if cookie != nil {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	Handler.ServeHTTP(w, r)
	return w.Result()
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("io.ReadAll() returned error: %v", err)
	}
	return string(b)
}

func TestHandlerRoutesByHost(t *testing.T) {
	for _, tc := range []struct {
		host, path, want string
	}{
		{ShopHost, "/", `id="login-button"`},
		{TwitterHost, "/saucelabs", "Sauce Labs on Twitter"},
		{EvilHost + ":80", "/saucelabs", "Totally Twitter"},
	} {
		resp := get(t, tc.host, tc.path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s%s: status %d", tc.host, tc.path, resp.StatusCode)
			continue
		}
		if got := body(t, resp); !strings.Contains(got, tc.want) {
			t.Errorf("GET %s%s: body does not contain %q", tc.host, tc.path, tc.want)
		}
	}
}

func TestHandlerInventoryNeedsSession(t *testing.T) {
	resp := get(t, ShopHost, "/inventory.html", nil)
	if resp.StatusCode != http.StatusFound {
		t.Errorf("GET /inventory.html without a session: status %d, want %d", resp.StatusCode, http.StatusFound)
	}
	resp = get(t, ShopHost, "/inventory.html", &http.Cookie{Name: sessionCookie, Value: User})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /inventory.html with a session: status %d", resp.StatusCode)
	}
	if got := body(t, resp); !strings.Contains(got, `id="logout_sidebar_link"`) {
		t.Error("inventory page has no logout link")
	}
	if resp := get(t, ShopHost, "/missing", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /missing: status %d, want 404", resp.StatusCode)
	}
}
