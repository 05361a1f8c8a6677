package server

import (
	"net/http"
	"net/url"
	"strings"
)

func (s *Service) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// redirectWithFlash sends the user to path with a one-line message in the
// query string. key is "notice" or "error". Existing query values on path
// are kept.
func (s *Service) redirectWithFlash(w http.ResponseWriter, r *http.Request, path, key, msg string) {
	target, err := url.Parse(path)
	if err != nil || !strings.HasPrefix(target.Path, "/") {
		target = &url.URL{Path: "/"}
	}

	v := target.Query()
	v.Set(key, msg)
	target.RawQuery = v.Encode()

	http.Redirect(w, r, target.String(), http.StatusSeeOther)
}

func (s *Service) redirectWithNotice(w http.ResponseWriter, r *http.Request, notice string) {
	s.redirectWithFlash(w, r, "/", "notice", notice)
}

func (s *Service) redirectWithError(w http.ResponseWriter, r *http.Request, msg string) {
	s.redirectWithFlash(w, r, "/", "error", msg)
}
