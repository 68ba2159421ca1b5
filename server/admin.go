package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"puzzleparty/protocol"
)

// NewRouter 组装 HTTP 路由：WebSocket 接入、健康检查、指标与房间管理
func NewRouter(h *Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ws", h.HandleWS)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", h.handleMetrics)
	r.Route("/admin/rooms", func(r chi.Router) {
		r.Get("/", h.handleListRooms)
		r.Post("/", h.handleAdminCreateRoom)
		r.Get("/{name}", h.handleGetRoom)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /metrics
func (h *Hub) handleMetrics(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	players, rooms := len(h.players), len(h.rooms)
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"players": players,
		"rooms":   rooms,
		"metrics": h.metrics.Snapshot(),
	})
}

// GET /admin/rooms
func (h *Hub) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Rooms())
}

// GET /admin/rooms/{name}
func (h *Hub) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	info, ok := h.Room(chi.URLParam(r, "name"))
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// POST /admin/rooms  {"name":"demo","config":{"seed":42,"grid":{"cols":6,"rows":5},"image":0}}
// name 省略时随机生成
func (h *Hub) handleAdminCreateRoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name   string              `json:"name"`
		Config protocol.RoomConfig `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	name := body.Name
	var err error
	if name == "" {
		name, err = h.CreateRoom(body.Config)
	} else {
		err = h.CreateNamedRoom(name, body.Config)
	}
	switch {
	case errors.Is(err, ErrRoomExists):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.metrics.RoomsRejected.Add(1)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": name})
}
