package conversation

// Route names a node of the turn state machine.
type Route string

const (
	RouteRouter      Route = "router"
	RouteChat        Route = "chat"
	RouteSubjectInfo Route = "subject_info"
	RouteRAGReview   Route = "rag_review"
)

// HandlerRoutes returns the routes a classifier may select.
func HandlerRoutes() []Route {
	return []Route{RouteChat, RouteSubjectInfo, RouteRAGReview}
}

// ParseRoute accepts only the handler routes.
func ParseRoute(s string) (Route, bool) {
	r := Route(s)
	return r, r.Valid()
}

// Valid reports whether r is a handler route.
func (r Route) Valid() bool {
	switch r {
	case RouteChat, RouteSubjectInfo, RouteRAGReview:
		return true
	case RouteRouter:
		return false
	default:
		return false
	}
}

func (r Route) String() string {
	return string(r)
}
