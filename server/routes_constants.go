package server

const (
	RouteBankConnect  = "/api/bank/connect"
	RouteBankCallback = "/api/bank/callback"
	RouteBankStatus   = "/api/bank/status"
	RouteAssessment   = "/api/assessment"
	RouteApplication  = "/api/application"
	RouteLogout       = "/api/logout"
	RouteHealth       = "/healthz"

	// RouteAppPage is where callback redirects land; the page itself is an
	// external collaborator, not part of this service.
	RouteAppPage = "/"
)
