package workflow

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/Iron-Ham/gentle/internal/event"
	"github.com/Iron-Ham/gentle/internal/logging"
)

// RouteKind names a screen.
type RouteKind string

const (
	RouteWelcome    RouteKind = "welcome"
	RouteTaskList   RouteKind = "tasks"
	RouteTaskDetail RouteKind = "task"
	RouteDecompose  RouteKind = "decompose"
	RouteCelebrate  RouteKind = "celebrate"
)

// Route is a navigation target. TaskID is set for task detail and
// celebration routes; TaskCompleted only for celebration.
type Route struct {
	Kind          RouteKind
	TaskID        string
	TaskCompleted bool
}

// WelcomeRoute returns the route of the landing screen.
func WelcomeRoute() Route { return Route{Kind: RouteWelcome} }

// TaskListRoute returns the route of the task list.
func TaskListRoute() Route { return Route{Kind: RouteTaskList} }

// TaskDetailRoute returns the route of one task.
func TaskDetailRoute(taskID string) Route { return Route{Kind: RouteTaskDetail, TaskID: taskID} }

// DecomposeRoute returns the route of the inline decompose flow.
func DecomposeRoute() Route { return Route{Kind: RouteDecompose} }

// CelebrateRoute returns the celebration route for a task.
func CelebrateRoute(taskID string, completed bool) Route {
	return Route{Kind: RouteCelebrate, TaskID: taskID, TaskCompleted: completed}
}

// String renders the route as a path, e.g. "/tasks/3f2a" or
// "/celebrate?taskCompleted=true&taskId=3f2a".
func (r Route) String() string {
	switch r.Kind {
	case RouteWelcome:
		return "/"
	case RouteTaskList:
		return "/tasks"
	case RouteTaskDetail:
		return "/tasks/" + url.PathEscape(r.TaskID)
	case RouteDecompose:
		return "/decompose"
	case RouteCelebrate:
		q := url.Values{}
		if r.TaskID != "" {
			q.Set("taskId", r.TaskID)
		}
		q.Set("taskCompleted", fmt.Sprint(r.TaskCompleted))
		return "/celebrate?" + q.Encode()
	default:
		return "/" + string(r.Kind)
	}
}

// Navigator moves the application to another screen.
type Navigator interface {
	Navigate(Route)
}

// Router is the Navigator used by the application. It keeps the history of
// visited routes and publishes a route.changed event on every move.
type Router struct {
	mu      sync.Mutex
	history []Route
	bus     *event.Bus
	logger  *logging.Logger
}

// NewRouter creates a router positioned at start. bus and logger may be nil.
func NewRouter(start Route, bus *event.Bus, logger *logging.Logger) *Router {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Router{history: []Route{start}, bus: bus, logger: logger}
}

// Navigate implements Navigator.
func (r *Router) Navigate(to Route) {
	r.mu.Lock()
	r.history = append(r.history, to)
	r.mu.Unlock()

	r.logger.Info("navigate", "route", to.String())
	if r.bus != nil {
		r.bus.Publish(event.NewRouteChangedEvent(string(to.Kind), to.TaskID, to.TaskCompleted))
	}
}

// Current returns the active route.
func (r *Router) Current() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history[len(r.history)-1]
}

// Back returns to the previous route. It reports false at the first route.
func (r *Router) Back() (Route, bool) {
	r.mu.Lock()
	if len(r.history) < 2 {
		cur := r.history[0]
		r.mu.Unlock()
		return cur, false
	}
	r.history = r.history[:len(r.history)-1]
	to := r.history[len(r.history)-1]
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(event.NewRouteChangedEvent(string(to.Kind), to.TaskID, to.TaskCompleted))
	}
	return to, true
}

// History returns a copy of the visited routes, oldest first.
func (r *Router) History() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Route(nil), r.history...)
}

// Reset drops the history and moves to to, as after a sign-out.
func (r *Router) Reset(to Route) {
	r.mu.Lock()
	r.history = []Route{to}
	r.mu.Unlock()

	r.logger.Info("navigate", "route", to.String(), "reset", true)
	if r.bus != nil {
		r.bus.Publish(event.NewRouteChangedEvent(string(to.Kind), to.TaskID, to.TaskCompleted))
	}
}
