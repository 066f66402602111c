package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Kyy487/ruangcerita/api/apierrors"
	"github.com/Kyy487/ruangcerita/api/middleware"
	"github.com/Kyy487/ruangcerita/logger"
	"github.com/Kyy487/ruangcerita/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	EventConnected = "connected"
	EventSnapshot  = "snapshot"
	EventChanged   = "changed"
)

// ViewFrame is what a live view receives over its socket.
type ViewFrame struct {
	Event  string              `json:"event"`
	ViewID string              `json:"view_id"`
	State  *services.ViewState `json:"state,omitempty"`
}

// viewCommand is sent by the admin console to switch conversations.
type viewCommand struct {
	Action string `json:"action"`
	User   string `json:"user"`
}

func (h *ChatHandlers) sendFrame(viewID, event string, state *services.ViewState) {
	data, err := json.Marshal(ViewFrame{Event: event, ViewID: viewID, State: state})
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode view frame")
		return
	}
	if err = h.backend.Views.Send(viewID, data); err != nil {
		logger.Debug().Err(err).Str("view_id", viewID).Msg("WebSocket write failed")
		return
	}
	middleware.RecordViewFrame(event, h.service)
}

// serveView keeps one live view mounted for the lifetime of the socket.
func (h *ChatHandlers) serveView(c *gin.Context, role services.ViewRole, selector string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	// The socket is registered before the first change can arrive.
	ready := make(chan struct{})
	var viewID string
	view, err := services.OpenView(c.Request.Context(), h.backend.Substrate, h.backend.Notifier, role, selector,
		func(state services.ViewState) {
			<-ready
			h.sendFrame(viewID, EventChanged, &state)
		})
	if err != nil {
		close(ready)
		logger.Error().Err(err).Msg("failed to open view")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "view unavailable"))
		return
	}
	defer view.Close()

	viewID = view.ID()
	h.backend.Views.Add(viewID, conn)
	defer h.backend.Views.Remove(viewID)
	defer middleware.TrackLiveView(string(role), h.service)()
	close(ready)

	h.sendFrame(viewID, EventConnected, nil)
	state := view.State()
	h.sendFrame(viewID, EventSnapshot, &state)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Debug().Err(err).Str("view_id", viewID).Msg("WebSocket closed")
			return
		}
		if role != services.RoleAdmin {
			continue
		}
		var cmd viewCommand
		if err := json.Unmarshal(data, &cmd); err != nil || cmd.Action != "select" {
			continue
		}
		state := view.Select(cmd.User)
		h.sendFrame(viewID, EventSnapshot, &state)
	}
}

// UserWSHandler - live chat view of the session's user
func (h *ChatHandlers) UserWSHandler(c *gin.Context) {
	name, ok, err := h.backend.Session.DisplayName(c.Request.Context(), c.GetString(middleware.ContextSessionID))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ok {
		_ = c.Error(apierrors.ErrDisplayNameRequired)
		return
	}
	h.serveView(c, services.RoleUser, name)
}

// AdminWSHandler - live moderation view, filtered by ?user=<name|all>
func (h *ChatHandlers) AdminWSHandler(c *gin.Context) {
	h.serveView(c, services.RoleAdmin, c.DefaultQuery("user", services.FilterAll))
}
