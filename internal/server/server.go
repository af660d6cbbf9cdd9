package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/okanlawon/pawdispatch/internal/domain"
	"github.com/okanlawon/pawdispatch/internal/events"
	"github.com/okanlawon/pawdispatch/internal/logging"
	"github.com/okanlawon/pawdispatch/internal/store"
)

// Dispatcher is the coordinator capability the HTTP layer depends on.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *domain.EmergencyRequest) (*domain.DispatchResult, error)
}

// Server exposes the emergency submission endpoint, the monitoring reads and
// the health probe the client's connectivity monitor polls.
type Server struct {
	dispatcher Dispatcher
	results    store.DispatchResultStore
	hub        *events.Hub
}

func New(dispatcher Dispatcher, results store.DispatchResultStore, hub *events.Hub) *Server {
	return &Server{dispatcher: dispatcher, results: results, hub: hub}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)

	v1 := r.Group("/api/v1")
	v1.POST("/emergencies", s.handleSubmit)
	v1.GET("/dispatches/:requestID", s.handleGetDispatch)
	v1.GET("/dispatches/:requestID/events", s.handleStreamEvents)
	v1.GET("/dispatches", s.handleListDispatches)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleSubmit accepts an EmergencyRequest and returns its DispatchResult.
// A request ID seen before returns the original result with an identical
// shape, so the client's acknowledgement path has no special case.
func (s *Server) handleSubmit(c *gin.Context) {
	var req domain.EmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	if err := req.Validate(); err != nil {
		// Terminal for the client: a malformed request must not be retried.
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := logging.WithRequestID(c.Request.Context(), req.RequestID)

	result, err := s.dispatcher.Dispatch(ctx, &req)
	if err != nil {
		logging.FromContext(ctx).Error("dispatch failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dispatch failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetDispatch(c *gin.Context) {
	requestID := c.Param("requestID")

	result, err := s.results.Get(c.Request.Context(), requestID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no dispatch for request id"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleStreamEvents streams attempt and completion events for one request
// ID as server-sent events, until the client disconnects.
func (s *Server) handleStreamEvents(c *gin.Context) {
	sub := &events.Subscriber{
		ID:        uuid.New().String(),
		RequestID: c.Param("requestID"),
		Events:    make(chan events.DispatchEvent, 100),
	}

	s.hub.Subscribe(sub)
	defer s.hub.Unsubscribe(sub.ID)

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.Events:
			if !ok {
				return false
			}
			c.SSEvent("dispatch", event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// handleListDispatches supports the monitoring view: filtering by status
// makes PARTIALLY_SENT and NONE_SENT dispatches easy to spot.
func (s *Server) handleListDispatches(c *gin.Context) {
	status := domain.OverallStatus(c.Query("status"))

	results, err := s.results.ListByStatus(c.Request.Context(), status, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dispatches": results})
}
