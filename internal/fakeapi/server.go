// Package fakeapi is an in-memory stand-in for the gentle backend: the
// versioned task REST API, the identity provider's one-time-code sign-in
// and the realtime celebration socket. It backs `gentle dev-server` and the
// integration tests of the client packages.
package fakeapi

import (
	"bufio"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/logging"
	"github.com/Iron-Ham/gentle/internal/task"
)

// DevUserID is the user anonymous requests act as when the dev user is
// enabled.
const DevUserID = "12345678-1234-1234-1234-123456789012"

// Route names, usable with InjectFault.
const (
	RouteListTasks   = "list_tasks"
	RouteCreateTask  = "create_task"
	RouteGetTask     = "get_task"
	RouteDeleteTask  = "delete_task"
	RouteBreakdown   = "breakdown_task"
	RouteComplete    = "complete_step"
	RouteTooBig      = "too_big"
	RouteMoodCheckin = "mood_checkin"
	RouteRealtime    = "realtime"
	RouteOTP         = "auth_otp"
	RouteVerify      = "auth_verify"
	RouteLogout      = "auth_logout"
)

// TooBigShape selects the wire shape of too-big responses.
type TooBigShape string

const (
	// ShapeList is a bare list of step objects, as the backend sends it.
	ShapeList TooBigShape = "list"
	// ShapeWrapped wraps the list under "steps".
	ShapeWrapped TooBigShape = "wrapped"
	// ShapeStepID is a bare list whose items carry "step_id" instead of "id".
	ShapeStepID TooBigShape = "step_id"
)

// ParseTooBigShape parses a shape name.
func ParseTooBigShape(s string) (TooBigShape, error) {
	switch shape := TooBigShape(strings.ToLower(strings.TrimSpace(s))); shape {
	case ShapeList, ShapeWrapped, ShapeStepID:
		return shape, nil
	case "":
		return ShapeList, nil
	default:
		return "", errors.NewValidationError("unknown too-big shape").WithField("shape").WithValue(s)
	}
}

// Fault replaces the normal handling of a route.
type Fault struct {
	// Status is the response status. Zero leaves the handler in charge,
	// which is useful with Delay alone.
	Status int
	// Detail is sent as {"detail": Detail} unless Body is set.
	Detail string
	// Body is sent verbatim.
	Body string
	// Delay is waited before responding.
	Delay time.Duration
	// Times limits how often the fault fires. Zero means every time.
	Times int
}

// Server is the fake backend.
type Server struct {
	router *mux.Router
	store  *Store
	hub    *Hub
	auth   *identity
	logger *logging.Logger

	devUser bool
	shape   TooBigShape

	mu     sync.Mutex
	faults map[string]*Fault
}

// Option configures a Server.
type Option func(*Server)

// WithDevUser makes requests without a bearer token act as DevUserID.
func WithDevUser(enabled bool) Option {
	return func(s *Server) { s.devUser = enabled }
}

// WithTooBigShape sets the too-big response shape.
func WithTooBigShape(shape TooBigShape) Option {
	return func(s *Server) { s.shape = shape }
}

// WithOTPCode sets the one-time code every sign-in accepts.
func WithOTPCode(code string) Option {
	return func(s *Server) { s.auth.code = code }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.store.now = now }
}

// New creates a fake backend.
func New(opts ...Option) *Server {
	s := &Server{
		store:  NewStore(nil),
		auth:   newIdentity(DefaultOTPCode),
		logger: logging.NopLogger(),
		shape:  ShapeList,
		faults: make(map[string]*Fault),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.logger)
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Store returns the task store.
func (s *Server) Store() *Store { return s.store }

// Hub returns the realtime hub.
func (s *Server) Hub() *Hub { return s.hub }

// SetTooBigShape changes the too-big response shape.
func (s *Server) SetTooBigShape(shape TooBigShape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shape = shape
}

// InjectFault makes the named route misbehave.
func (s *Server) InjectFault(route string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = &f
}

// ClearFaults removes all injected faults.
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]*Fault)
}

// SignIn creates (or reuses) the account for email and returns a fresh
// access token with the account's user id.
func (s *Server) SignIn(email string) (token, userID string) {
	return s.auth.issue(email)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.injectFaults)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	authAPI := r.PathPrefix("/auth/v1").Subrouter()
	authAPI.HandleFunc("/otp", s.handleOTP).Methods(http.MethodPost).Name(RouteOTP)
	authAPI.HandleFunc("/verify", s.handleVerify).Methods(http.MethodPost).Name(RouteVerify)
	authAPI.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost).Name(RouteLogout)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(s.authenticate)
	v1.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet).Name(RouteListTasks)
	v1.HandleFunc("/tasks", s.handleCreateTask).Methods(http.MethodPost).Name(RouteCreateTask)
	v1.HandleFunc("/tasks/{id}", s.handleGetTask).Methods(http.MethodGet).Name(RouteGetTask)
	v1.HandleFunc("/tasks/{id}", s.handleDeleteTask).Methods(http.MethodDelete).Name(RouteDeleteTask)
	v1.HandleFunc("/tasks/{id}/breakdown", s.handleBreakdown).Methods(http.MethodPost).Name(RouteBreakdown)
	v1.HandleFunc("/steps/{id}/complete", s.handleComplete).Methods(http.MethodPost).Name(RouteComplete)
	v1.HandleFunc("/steps/{id}/too-big", s.handleTooBig).Methods(http.MethodPost).Name(RouteTooBig)
	v1.HandleFunc("/mood/checkin", s.handleMoodCheckin).Methods(http.MethodPost).Name(RouteMoodCheckin)
	v1.HandleFunc("/realtime", s.handleRealtime).Methods(http.MethodGet).Name(RouteRealtime)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, hasBearer := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		var userID string
		switch {
		case hasBearer && token != "":
			id, ok := s.auth.user(token)
			if !ok {
				writeDetail(w, http.StatusUnauthorized, "Invalid authentication credentials")
				return
			}
			userID = id
		case s.devUser:
			userID = DevUserID
		default:
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), userID)))
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := mux.CurrentRoute(r)
		if route == nil || route.GetName() == "" {
			next.ServeHTTP(w, r)
			return
		}
		f, ok := s.takeFault(route.GetName())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		if f.Delay > 0 {
			select {
			case <-time.After(f.Delay):
			case <-r.Context().Done():
				return
			}
		}
		switch {
		case f.Status == 0:
			next.ServeHTTP(w, r)
		case f.Body != "":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.Status)
			_, _ = w.Write([]byte(f.Body))
		case f.Detail != "":
			writeDetail(w, f.Status, f.Detail)
		default:
			w.WriteHeader(f.Status)
		}
	})
}

func (s *Server) takeFault(route string) (Fault, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.faults[route]
	if !ok {
		return Fault{}, false
	}
	if f.Times > 0 {
		f.Times--
		if f.Times == 0 {
			delete(s.faults, route)
		}
	}
	return *f, true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrade through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer cannot hijack")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", name,
			"status", rec.status,
			"request_id", r.Header.Get("X-Request-ID"),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// -----------------------------------------------------------------------------
// Tasks and steps
// -----------------------------------------------------------------------------

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListTasks(userFrom(r.Context())))
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeValidation(w, "body", "Invalid JSON body")
		return
	}
	title, err := task.ValidateTitle(body.Title)
	if err != nil {
		writeValidation(w, "title", errors.UserMessage(err, "Invalid title"))
		return
	}
	writeJSON(w, http.StatusOK, s.store.CreateTask(userFrom(r.Context()), title))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	detail, ok := s.store.GetTask(userFrom(r.Context()), mux.Vars(r)["id"])
	if !ok {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if !s.store.DeleteTask(userFrom(r.Context()), mux.Vars(r)["id"]) {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("energy"); raw != "" {
		energy, err := strconv.Atoi(raw)
		if err != nil || energy < task.MinEnergy || energy > task.MaxEnergy {
			writeValidation(w, "energy", "Input should be a valid integer between 0 and 5")
			return
		}
	}

	userID := userFrom(r.Context())
	detail, ok := s.store.GetTask(userID, mux.Vars(r)["id"])
	if !ok {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	steps, _ := s.store.AddSteps(userID, detail.ID, breakdownTemplate(detail.Title))
	writeJSON(w, http.StatusOK, steps)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context())
	result, ok := s.store.CompleteStep(userID, mux.Vars(r)["id"])
	if !ok {
		writeDetail(w, http.StatusNotFound, "Step not found")
		return
	}

	// An empty message lets the client show its default text.
	message := ""
	if result.TaskCompleted {
		message = celebrationMessage(result.Task.Title, result.Finished)
	}
	s.hub.Celebrate(userID, message)

	writeJSON(w, http.StatusOK, map[string]any{
		"kind":          "confetti",
		"message":       "You did it! 🎉",
		"taskCompleted": result.TaskCompleted,
	})
}

type tooBigItem struct {
	task.Step
	Rationale string `json:"rationale,omitempty"`
}

type tooBigStepIDItem struct {
	StepID    string `json:"step_id"`
	Content   string `json:"content"`
	Rationale string `json:"rationale,omitempty"`
}

func (s *Server) handleTooBig(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context())
	parent, _, ok := s.store.Step(userID, mux.Vars(r)["id"])
	if !ok {
		writeDetail(w, http.StatusNotFound, "Step not found")
		return
	}

	templates := tooBigTemplate(parent.Content)
	contents := make([]string, len(templates))
	for i, t := range templates {
		contents[i] = t.content
	}
	created, ok := s.store.SplitStep(userID, parent.ID, contents)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Step not found")
		return
	}

	s.mu.Lock()
	shape := s.shape
	s.mu.Unlock()

	switch shape {
	case ShapeStepID:
		items := make([]tooBigStepIDItem, len(created))
		for i, st := range created {
			items[i] = tooBigStepIDItem{StepID: st.ID, Content: st.Content, Rationale: templates[i].rationale}
		}
		writeJSON(w, http.StatusOK, items)
	default:
		items := make([]tooBigItem, len(created))
		for i, st := range created {
			items[i] = tooBigItem{Step: st, Rationale: templates[i].rationale}
		}
		if shape == ShapeWrapped {
			writeJSON(w, http.StatusOK, map[string]any{"steps": items})
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (s *Server) handleMoodCheckin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Energy  *int   `json:"energy"`
		Emotion string `json:"emotion"`
		Note    string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeValidation(w, "body", "Invalid JSON body")
		return
	}
	if body.Energy == nil || *body.Energy < task.MinEnergy || *body.Energy > task.MaxEnergy {
		writeValidation(w, "energy", "Input should be a valid integer between 0 and 5")
		return
	}
	if strings.TrimSpace(body.Emotion) == "" {
		writeValidation(w, "emotion", "Field required")
		return
	}

	step := s.store.CheckinTask(userFrom(r.Context()), moodStepContent)
	writeJSON(w, http.StatusOK, map[string]string{
		"step_id":   step.ID,
		"content":   moodStepContent,
		"rationale": moodStepRationale,
	})
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context())
	if want := r.URL.Query().Get("user_id"); want != "" && want != userID {
		writeDetail(w, http.StatusForbidden, "Cannot subscribe to another user")
		return
	}
	s.hub.Serve(w, r, userID)
}

// -----------------------------------------------------------------------------
// Responses
// -----------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeValidation answers 422 in the list form of detail.
func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{"loc": []string{"body", field}, "msg": msg}},
	})
}
