package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"liveclass/pkg/interfaces"
	"liveclass/pkg/types"
)

// Registry interface avoids tight coupling to the websocket package.
type Registry interface {
	GetStats() map[string]int
}

// Server is the HTTP surface over the coordinator. No business logic lives
// here, only routing, JSON serialization and error mapping.
type Server struct {
	alerts    interfaces.AlertCoordinator
	rooms     interfaces.RoomCoordinator
	registry  Registry
	router    *http.ServeMux
	startedAt time.Time
}

// NewServer wires the coordinator entry points into HTTP routes.
func NewServer(alerts interfaces.AlertCoordinator, rooms interfaces.RoomCoordinator, registry Registry) *Server {
	s := &Server{
		alerts:    alerts,
		rooms:     rooms,
		registry:  registry,
		router:    http.NewServeMux(),
		startedAt: time.Now(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/api/classrooms/", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleClassrooms))))
	s.router.Handle("/api/alerts/", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleAlertAction))))
	s.router.Handle("/api/rooms/", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleRoomAction))))
	s.router.Handle("/health", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.healthCheck))))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Request/response types for JSON serialization.

type actorRequest struct {
	ActorID string `json:"actor_id"`
}

type participantRequest struct {
	ParticipantID string `json:"participant_id"`
}

type createRoomsRequest struct {
	Rooms []types.RoomSpec `json:"rooms"`
}

type alertListResponse struct {
	Alerts []*types.HelpAlert `json:"alerts"`
}

type roomListResponse struct {
	Rooms       []*types.BreakoutRoom `json:"rooms"`
	Assignments map[string]string     `json:"assignments"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// handleClassrooms routes /api/classrooms/{id}[/alerts[/counts]|/rooms[/{rid}/assign]]
func (s *Server) handleClassrooms(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/classrooms/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		s.sendError(w, "Classroom ID required", http.StatusBadRequest)
		return
	}
	classroomID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.clearSession(w, r, classroomID)
	case len(parts) == 2 && parts[1] == "alerts" && r.Method == http.MethodPost:
		s.createAlert(w, r, classroomID)
	case len(parts) == 2 && parts[1] == "alerts" && r.Method == http.MethodGet:
		s.listAlerts(w, r, classroomID)
	case len(parts) == 3 && parts[1] == "alerts" && parts[2] == "counts" && r.Method == http.MethodGet:
		s.alertCounts(w, r, classroomID)
	case len(parts) == 2 && parts[1] == "rooms" && r.Method == http.MethodPost:
		s.createRooms(w, r, classroomID)
	case len(parts) == 2 && parts[1] == "rooms" && r.Method == http.MethodGet:
		s.listRooms(w, r, classroomID)
	case len(parts) == 4 && parts[1] == "rooms" && parts[3] == "assign" && r.Method == http.MethodPost:
		s.assignParticipant(w, r, classroomID, parts[2])
	default:
		s.sendError(w, "Not found", http.StatusNotFound)
	}
}

// handleAlertAction routes POST /api/alerts/{id}/{acknowledge|resolve|dismiss}
func (s *Server) handleAlertAction(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/alerts/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		s.sendError(w, "Expected /api/alerts/{id}/{action}", http.StatusBadRequest)
		return
	}
	alertID, action := parts[0], parts[1]

	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	var alert *types.HelpAlert
	var err error
	switch action {
	case "acknowledge":
		alert, err = s.alerts.AcknowledgeAlert(r.Context(), alertID, req.ActorID)
	case "resolve":
		alert, err = s.alerts.ResolveAlert(r.Context(), alertID, req.ActorID)
	case "dismiss":
		alert, err = s.alerts.DismissAlert(r.Context(), alertID, req.ActorID)
	default:
		s.sendError(w, "Unknown alert action", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	json.NewEncoder(w).Encode(alert)
}

// handleRoomAction routes POST /api/rooms/{id}/{close|join|leave}
func (s *Server) handleRoomAction(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		s.sendError(w, "Expected /api/rooms/{id}/{action}", http.StatusBadRequest)
		return
	}
	roomID, action := parts[0], parts[1]

	switch action {
	case "close":
		room, err := s.rooms.CloseRoom(r.Context(), roomID)
		if err != nil {
			s.sendDomainError(w, err)
			return
		}
		json.NewEncoder(w).Encode(room)

	case "join", "leave":
		var req participantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.sendError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.ParticipantID == "" {
			s.sendError(w, "participant_id is required", http.StatusBadRequest)
			return
		}

		var err error
		if action == "join" {
			err = s.rooms.JoinRoom(r.Context(), roomID, req.ParticipantID)
		} else {
			err = s.rooms.LeaveRoom(r.Context(), roomID, req.ParticipantID)
		}
		if err != nil {
			s.sendDomainError(w, err)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})

	default:
		s.sendError(w, "Unknown room action", http.StatusBadRequest)
	}
}

// POST /api/classrooms/{id}/alerts — entry point for the transcript-analysis
// collaborator.
func (s *Server) createAlert(w http.ResponseWriter, r *http.Request, classroomID string) {
	var params types.CreateAlertParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	params.ClassroomSessionID = classroomID

	alert, err := s.alerts.CreateAlert(r.Context(), params)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(alert)
}

// GET /api/classrooms/{id}/alerts?status=&urgency=&breakout_room=
func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request, classroomID string) {
	filter := types.AlertFilter{
		Status:       types.AlertStatus(r.URL.Query().Get("status")),
		Urgency:      types.Urgency(r.URL.Query().Get("urgency")),
		BreakoutRoom: r.URL.Query().Get("breakout_room"),
	}

	alerts, err := s.alerts.GetAlerts(r.Context(), classroomID, filter)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	json.NewEncoder(w).Encode(alertListResponse{Alerts: alerts})
}

// GET /api/classrooms/{id}/alerts/counts
func (s *Server) alertCounts(w http.ResponseWriter, r *http.Request, classroomID string) {
	counts, err := s.alerts.GetAlertCounts(r.Context(), classroomID)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	json.NewEncoder(w).Encode(counts)
}

// POST /api/classrooms/{id}/rooms
func (s *Server) createRooms(w http.ResponseWriter, r *http.Request, classroomID string) {
	var req createRoomsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	rooms, err := s.rooms.CreateRooms(r.Context(), classroomID, req.Rooms)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(roomListResponse{Rooms: rooms})
}

// GET /api/classrooms/{id}/rooms
func (s *Server) listRooms(w http.ResponseWriter, r *http.Request, classroomID string) {
	json.NewEncoder(w).Encode(roomListResponse{
		Rooms:       s.rooms.ActiveRooms(classroomID),
		Assignments: s.rooms.ParticipantAssignments(classroomID),
	})
}

// POST /api/classrooms/{id}/rooms/{rid}/assign
func (s *Server) assignParticipant(w http.ResponseWriter, r *http.Request, classroomID, roomID string) {
	var req participantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.ParticipantID == "" {
		s.sendError(w, "participant_id is required", http.StatusBadRequest)
		return
	}

	room, err := s.rooms.AssignParticipant(r.Context(), classroomID, req.ParticipantID, roomID)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	json.NewEncoder(w).Encode(room)
}

// DELETE /api/classrooms/{id} — session teardown drops rooms and alerts.
// Rooms go first: if that half fails, the alert record (the harder half to
// reconstruct) is still intact and the delete can be retried.
func (s *Server) clearSession(w http.ResponseWriter, r *http.Request, classroomID string) {
	if err := s.rooms.ClearSession(r.Context(), classroomID); err != nil {
		s.sendDomainError(w, err)
		return
	}
	if err := s.alerts.ClearSession(r.Context(), classroomID); err != nil {
		s.sendDomainError(w, err)
		return
	}

	log.Printf("Session cleared via API: classroom=%s", classroomID)
	json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
}

// GET /health
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":         "healthy",
		"timestamp":      time.Now(),
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
	}
	if s.registry != nil {
		response["connections"] = s.registry.GetStats()
	}
	json.NewEncoder(w).Encode(response)
}

// sendDomainError maps the coordinator error taxonomy onto HTTP statuses.
func (s *Server) sendDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrAlertNotFound), errors.Is(err, types.ErrRoomNotFound):
		s.sendError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, types.ErrInvalidTransition),
		errors.Is(err, types.ErrCapacityExceeded),
		errors.Is(err, types.ErrDuplicateName),
		types.IsValidationError(err):
		s.sendError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, types.ErrLockTimeout):
		s.sendError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		log.Printf("Unhandled API error: %v", err)
		s.sendError(w, "Internal error", http.StatusInternalServerError)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
