package http

import (
	"net/http"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	dash, err := s.svc.Dashboard.Dashboard(ctx, currentUser(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, dash)
}

func (s *Server) handleHealthScore(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	report, err := s.svc.Dashboard.Health(ctx, currentUser(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, report)
}

// handleOverview fetches the dashboard and the health score concurrently;
// a failure of either fails the whole response.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	overview, err := s.svc.Dashboard.Overview(ctx, currentUser(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, overview)
}
