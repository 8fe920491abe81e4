package server

import "net/http"

func (s *Server) initRoutes() {
	api := s.APIMiddleware()

	s.RegisterRouteFunc("GET "+RouteBankConnect, ChainMiddleware(s.BankConnectHandler(), api...))
	s.RegisterRouteFunc("GET "+RouteBankCallback, ChainMiddleware(s.BankCallbackHandler(), api...))
	s.RegisterRouteFunc("GET "+RouteBankStatus, ChainMiddleware(s.BankStatusHandler(), api...))
	s.RegisterRouteFunc("GET "+RouteAssessment, ChainMiddleware(s.AssessmentHandler(), api...))
	s.RegisterRouteFunc("GET "+RouteApplication, ChainMiddleware(s.GetApplicationHandler(), api...))
	s.RegisterRouteFunc("POST "+RouteApplication, ChainMiddleware(s.SubmitApplicationHandler(), api...))
	s.RegisterRouteFunc("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), api...))
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}

// HealthHandler reports process liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
