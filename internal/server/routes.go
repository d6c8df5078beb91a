package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"cabo-server/internal/cabo"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.Get("/health", s.healthHandler)
	r.Get("/websocket", s.websocketHandler)
	r.Get("/rooms/{code}", s.roomHandler)
	r.Get("/rooms/{code}/results", s.resultsHandler)

	return r
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// originAllowed matches the origin host against the configured patterns the
// same way the websocket handshake does.
func (s *Server) originAllowed(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, pattern := range s.cfg.AllowedOrigins {
		if ok, _ := path.Match(pattern, u.Host); ok {
			return true
		}
	}
	return false
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		Rooms:       s.registry.Count(),
		Connections: s.connections.Count(),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
		Archive:     map[string]string{"status": "disabled"},
	}
	if s.archive != nil {
		resp.Archive = s.archive.Health(r.Context())
		if resp.Archive["status"] != "up" {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) roomHandler(w http.ResponseWriter, r *http.Request) {
	room := s.registry.Get(chi.URLParam(r, "code"))
	if room == nil {
		writeError(w, http.StatusNotFound, cabo.ErrGameNotFound)
		return
	}
	writeJSON(w, http.StatusOK, room.Summary())
}

func (s *Server) resultsHandler(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, ErrArchiveDisabled)
		return
	}

	code, err := ParseRoomCode(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rounds, err := s.archive.RoundsForCode(r.Context(), code)
	if err != nil {
		log.Error().Err(err).Str("room", code).Msg("Failed to load archived rounds")
		writeJSON(w, http.StatusInternalServerError, ErrorMessage{Type: MsgError, Code: "InternalError", Message: "Failed to load results"})
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.AllowedOrigins,
	})
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Websocket handshake failed")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := NewClient(uuid.NewString(), socket, s.cfg.OutboundBuffer)
	s.connections.AddConnection(c)
	go c.writeLoop(ctx)
	log.Info().Str("conn", c.ID()).Msg("New connection")

	defer func() {
		s.disconnect(c)
		c.Close(websocket.StatusNormalClosure, "")
		log.Info().Str("conn", c.ID()).Msg("Connection closed")
	}()

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			log.Debug().Err(err).Str("conn", c.ID()).Msg("Read ended")
			return
		}

		if msgType != websocket.MessageText {
			log.Warn().Str("conn", c.ID()).Msg("Dropping non-text frame")
			continue
		}

		if !s.rateLimiter.Allow(c.ID()) {
			log.Warn().Str("conn", c.ID()).Msg("Rate limit exceeded")
			s.sendError(c, ErrRateLimited)
			continue
		}

		req, err := DecodeRequest(data)
		if errors.Is(err, ErrUnknownMessageType) {
			log.Warn().Err(err).Str("conn", c.ID()).Msg("Unknown message type")
			s.sendError(c, err)
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("conn", c.ID()).Msg("Dropping malformed message")
			continue
		}

		log.Debug().Str("conn", c.ID()).Str("type", string(req.MessageType())).Msg("Message received")
		s.handleRequest(c, req)
	}
}

// disconnect treats a dropped connection as leaving its room.
func (s *Server) disconnect(c *Client) {
	s.connections.RemoveConnection(c.ID())
	s.rateLimiter.RemoveConnection(c.ID())
	s.leaveCurrentRoom(c)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	resp, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(resp); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := ErrorMessage{Type: MsgError, Message: err.Error()}
	if code := cabo.Code(err); code != "" {
		msg.Code = code
		msg.Message = cabo.Reason(err)
	} else if errors.Is(err, ErrArchiveDisabled) || errors.Is(err, ErrInvalidRoomCode) {
		msg.Code, msg.Message, _ = strings.Cut(err.Error(), ": ")
	}
	writeJSON(w, status, msg)
}
