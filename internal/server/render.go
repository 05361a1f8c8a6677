package server

import (
	"campusstay/pkg/types"
	"net/http"
)

func (s *Service) renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) error {
	if setter, ok := data.(types.NavbarDataSetter); ok {
		nav := types.NavbarData{}
		if user, err := s.userFromContext(r.Context()); err == nil {
			nav = types.NavbarData{
				IsAuthenticated: true,
				IsAdmin:         user.IsAdmin,
				UserID:          user.ID,
				UserEmail:       user.EmailAddress(),
				UserName:        user.DisplayName(),
			}
		}
		setter.SetNavbarData(nav)
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}

	return s.templates.ExecuteTemplate(w, templateName, data)
}
