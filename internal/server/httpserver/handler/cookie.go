package handler

import (
	"net/http"
	"strings"
	"time"
)

// Cookie describes the session cookie.
type Cookie struct {
	Name     string
	Path     string
	Secure   bool
	SameSite http.SameSite

	// MaxAge is the cookie lifetime. Zero issues a browser-session cookie.
	MaxAge time.Duration
}

// ParseSameSite converts "lax", "strict" or "none". Anything else is Lax.
func ParseSameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Set writes the cookie carrying sessionID.
func (c Cookie) Set(w http.ResponseWriter, sessionID string) {
	ck := c.base()
	ck.Value = sessionID
	if c.MaxAge > 0 {
		ck.MaxAge = int(c.MaxAge / time.Second)
		ck.Expires = time.Now().Add(c.MaxAge)
	}
	http.SetCookie(w, ck)
}

// Clear instructs the browser to drop the cookie.
func (c Cookie) Clear(w http.ResponseWriter) {
	ck := c.base()
	ck.MaxAge = -1
	ck.Expires = time.Unix(0, 0)
	http.SetCookie(w, ck)
}

func (c Cookie) base() *http.Cookie {
	path := c.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     c.Name,
		Path:     path,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: c.SameSite,
	}
}
