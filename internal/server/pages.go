package server

import (
	"net/http"
	"strings"

	"campusstay/pkg/types"
)

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {
	data := &types.HomePageData{
		BasePageData: flashPageData("", r),
	}

	if err := s.renderTemplate(w, r, "page.home", data); err != nil {
		s.logger.WithError(err).Error("failed to render home page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// flashPageData reads the notice and error set by a previous redirect.
func flashPageData(title string, r *http.Request) types.BasePageData {
	return types.BasePageData{
		Title:  title,
		Notice: strings.TrimSpace(r.URL.Query().Get("notice")),
		Error:  strings.TrimSpace(r.URL.Query().Get("error")),
	}
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
