package http

import (
	"net/http"

	"emergency-triage/internal/delivery/http/handler"
	"emergency-triage/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router          *mux.Router
	healthHandler   *handler.HealthHandler
	patientHandler  *handler.PatientHandler
	roomHandler     *handler.RoomHandler
	queueHandler    *handler.QueueHandler
	streamHandler   *handler.StreamHandler
	auditLogHandler *handler.AuditLogHandler
	authMiddleware  *middleware.AuthMiddleware
	corsMiddleware  *middleware.CORSMiddleware
}

func NewRouter(
	healthHandler *handler.HealthHandler,
	patientHandler *handler.PatientHandler,
	roomHandler *handler.RoomHandler,
	queueHandler *handler.QueueHandler,
	streamHandler *handler.StreamHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:          mux.NewRouter(),
		healthHandler:   healthHandler,
		patientHandler:  patientHandler,
		roomHandler:     roomHandler,
		queueHandler:    queueHandler,
		streamHandler:   streamHandler,
		auditLogHandler: auditLogHandler,
		authMiddleware:  authMiddleware,
		corsMiddleware:  corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check (public)
	api.HandleFunc("/health", r.healthHandler.Health).Methods(http.MethodGet)

	// Station routes (any staff role)
	station := api.NewRoute().Subrouter()
	station.Use(r.authMiddleware.Authenticate)
	station.Use(middleware.RequireClinical)

	station.HandleFunc("/patients", r.patientHandler.RegisterPatient).Methods(http.MethodPost)
	station.HandleFunc("/patients", r.patientHandler.SearchPatients).Methods(http.MethodGet)
	station.HandleFunc("/patients/{id}", r.patientHandler.GetPatient).Methods(http.MethodGet)
	station.HandleFunc("/patients/{id}/discharge", r.patientHandler.DischargePatient).Methods(http.MethodPost)
	station.HandleFunc("/patients/{id}/status", r.patientHandler.UpdateStatus).Methods(http.MethodPatch)
	station.HandleFunc("/triage/analyze", r.patientHandler.Analyze).Methods(http.MethodPost)

	station.HandleFunc("/queue", r.queueHandler.GetQueue).Methods(http.MethodGet)
	station.HandleFunc("/statistics", r.queueHandler.GetStatistics).Methods(http.MethodGet)
	station.HandleFunc("/board", r.queueHandler.GetBoard).Methods(http.MethodGet)
	station.HandleFunc("/stream", r.streamHandler.Stream).Methods(http.MethodGet)

	station.HandleFunc("/rooms", r.roomHandler.GetAllRooms).Methods(http.MethodGet)
	station.HandleFunc("/rooms/available", r.roomHandler.GetAvailableRooms).Methods(http.MethodGet)
	station.HandleFunc("/rooms/{id}/assign", r.roomHandler.AssignRoom).Methods(http.MethodPost)
	station.HandleFunc("/rooms/{id}/release", r.roomHandler.ReleaseRoom).Methods(http.MethodPost)

	// Admin routes
	admin := api.NewRoute().Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)

	admin.HandleFunc("/rooms", r.roomHandler.CreateRoom).Methods(http.MethodPost)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	// Preflight requests match no API route, give them one so CORS runs
	r.router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, req *http.Request) {})

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}
