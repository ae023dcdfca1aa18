package harnesstest

import (
	"fmt"
	"net"
	"net/http"
)

// Hosts served by Handler. Every host is routed to the same test server by
// the SOCKS proxy, so the handler tells them apart by the Host header.
const (
	ShopHost    = "shop.test"
	TwitterHost = "twitter.com"
	EvilHost    = "evil.example"

	shopURL = "http://" + ShopHost + "/"
)

// Test account of the shop.
const (
	User     = "standard_user"
	Password = "secret_sauce"
)

const sessionCookie = "session"

const loginPage = `<!DOCTYPE html>
<html>
<head><title>Swag Labs</title></head>
<body>
<form id="login" onsubmit="return login()">
  <input id="user-name" name="user-name" type="text">
  <input id="password" name="password" type="password">
  <input id="login-button" type="submit" value="Login">
  <h3 data-test="error" style="display:none"></h3>
</form>
<script>
function login() {
  var user = document.getElementById('user-name').value;
  var pass = document.getElementById('password').value;
  if (user === '` + User + `' && pass === '` + Password + `') {
    document.cookie = '` + sessionCookie + `=' + user + '; path=/';
    setTimeout(function() { window.location = '/inventory.html'; }, 300);
  } else {
    setTimeout(function() {
      var e = document.querySelector('h3[data-test=error]');
      e.textContent = 'Epic sadface: Username and password do not match any user in this service';
      e.style.display = 'block';
    }, 300);
  }
  return false;
}
</script>
</body>
</html>`

const inventoryPage = `<!DOCTYPE html>
<html>
<head><title>Swag Labs</title></head>
<body>
<button id="react-burger-menu-btn" onclick="document.getElementById('menu').style.display='block'">Open Menu</button>
<nav id="menu" style="display:none">
  <a id="inventory_sidebar_link" href="/inventory.html">All Items</a>
  <a id="logout_sidebar_link" href="#" onclick="return logout()">Logout</a>
</nav>
<select class="product_sort_container">
  <option value="az">Name (A to Z)</option>
  <option value="za">Name (Z to A)</option>
  <option value="lohi">Price (low to high)</option>
  <option value="hilo">Price (high to low)</option>
</select>
<div class="inventory_list">
  <div class="inventory_item_name">Sauce Labs Backpack</div>
  <div class="inventory_item_name">Sauce Labs Bike Light</div>
  <div class="inventory_item_name">Sauce Labs Onesie</div>
</div>
<footer>
  <ul>
    <li class="social_twitter"><a href="http://` + TwitterHost + `/saucelabs" target="_blank" rel="noreferrer">Twitter</a></li>
    <li class="social_evil"><a href="http://` + EvilHost + `/saucelabs" target="_blank" rel="noreferrer">Also Twitter</a></li>
    <li class="social_inplace"><a href="http://` + TwitterHost + `/saucelabs">Twitter here</a></li>
  </ul>
</footer>
<script>
function logout() {
  document.cookie = '` + sessionCookie + `=; path=/; expires=Thu, 01 Jan 1970 00:00:00 GMT';
  window.location = '/';
  return false;
}
</script>
</body>
</html>`

// Handler serves the shop and the external sites its footer links to.
var Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	switch {
	case host == TwitterHost:
		fmt.Fprintf(w, "<html><head><title>Sauce Labs on Twitter</title></head><body>%s</body></html>", r.URL.Path)
	case host == EvilHost:
		fmt.Fprint(w, "<html><head><title>Totally Twitter</title></head><body>phish</body></html>")
	case r.URL.Path == "/inventory.html":
		if c, err := r.Cookie(sessionCookie); err != nil || c.Value == "" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		fmt.Fprint(w, inventoryPage)
	case r.URL.Path == "/":
		fmt.Fprint(w, loginPage)
	default:
		http.NotFound(w, r)
	}
})
