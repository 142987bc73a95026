// handlers_view.go - Viewer session handlers
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/orvd/logviewer/internal/page"
	"github.com/orvd/logviewer/internal/session"
	"github.com/orvd/logviewer/internal/storage"
	"github.com/orvd/logviewer/internal/viewer"
	"github.com/rs/zerolog"
)

// SessionCookie names the cookie binding a browser to its viewer session.
const SessionCookie = "lv_session"

// ActionRequest is the body of POST /api/view/:action
type ActionRequest struct {
	ID string `json:"id" form:"id" query:"id"`
}

// ActionResponse reports the page state after an action
type ActionResponse struct {
	Session    string        `json:"session"`
	Snapshot   page.Snapshot `json:"snapshot"`
	Superseded bool          `json:"superseded,omitempty"`
}

// ViewerHandlerImpl implements the ViewerHandler interface
type ViewerHandlerImpl struct {
	sessions SessionManager
	store    storage.Store
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewViewerHandler creates a new viewer handler
func NewViewerHandler(sessions SessionManager, store storage.Store, logger zerolog.Logger) ViewerHandler {
	return &ViewerHandlerImpl{
		sessions: sessions,
		store:    store,
		logger:   logger,
		upgrader: newUpgrader(),
	}
}

// HandleAction runs one viewer action and returns the resulting page state.
// A missing serial number is not an error: the page carries the alert.
func (h *ViewerHandlerImpl) HandleAction(c echo.Context) error {
	action, err := viewer.ParseAction(c.Param("action"))
	if err != nil {
		return NewBadRequestError("unknown action", err)
	}

	var req ActionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request", err)
	}
	if req.ID == "" {
		req.ID = c.QueryParam("id")
	}

	s := h.session(c)
	resp := ActionResponse{Session: s.ID}

	err = s.Controller.Dispatch(c.Request().Context(), viewer.Command{Action: action, ID: strings.TrimSpace(req.ID)})
	switch {
	case err == nil, errors.Is(err, viewer.ErrMissingID):
	case errors.Is(err, viewer.ErrSuperseded), errors.Is(err, context.Canceled):
		resp.Superseded = true
	default:
		h.logger.Warn().Err(err).Str("action", string(action)).Str("id", req.ID).Msg("viewer action failed")
		return NewUpstreamError("request to logs backend failed", err)
	}

	resp.Snapshot = s.Page.Snapshot()
	return c.JSON(http.StatusOK, resp)
}

// HandleState returns the current page state of the caller's session
func (h *ViewerHandlerImpl) HandleState(c echo.Context) error {
	s := h.session(c)
	return c.JSON(http.StatusOK, ActionResponse{Session: s.ID, Snapshot: s.Page.Snapshot()})
}

// HandleChart serves the PNG of the session's current chart
func (h *ViewerHandlerImpl) HandleChart(c echo.Context) error {
	s, ok := h.existingSession(c)
	if !ok {
		return NewNotFoundError("session", "")
	}
	inst := s.Page.Chart()
	if inst == nil {
		return NewNotFoundError("chart", "")
	}
	png := inst.PNG()
	if png == nil {
		return NewNotFoundError("chart", inst.ID)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, "image/png", png)
}

// HandleFile serves a downloaded file as an attachment
func (h *ViewerHandlerImpl) HandleFile(c echo.Context) error {
	fileID := c.Param("fileId")
	if fileID == "" {
		return NewValidationError("fileId")
	}

	info, err := h.store.Get(fileID)
	if err != nil {
		return NewNotFoundError("file", fileID)
	}
	path, err := h.store.GetFilePath(fileID)
	if err != nil {
		return NewNotFoundError("file", fileID)
	}
	return c.Attachment(path, info.Name)
}

// HandleWebSocket streams page snapshots and accepts actions
func (h *ViewerHandlerImpl) HandleWebSocket(c echo.Context) error {
	s := h.session(c)

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return err
	}
	defer ws.Close()

	conn := newWSConn(ws, h.logger)
	snapshots, cancel := s.Page.Subscribe()
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go conn.writeLoop(done)

	conn.send(WSMessage{Type: MsgTypeConnected, Payload: mustJSON(map[string]string{"session": s.ID})})
	go func() {
		for snap := range snapshots {
			conn.send(WSMessage{Type: MsgTypeSnapshot, Payload: mustJSON(snap)})
		}
	}()

	ctx, stop := context.WithCancel(c.Request().Context())
	defer stop()

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Msg("websocket read error")
			}
			return nil
		}
		h.handleWSMessage(ctx, conn, s, msg)
	}
}

func (h *ViewerHandlerImpl) handleWSMessage(ctx context.Context, conn *wsConn, s *session.Session, msg WSMessage) {
	switch msg.Type {
	case MsgTypePing:
		conn.send(WSMessage{Type: MsgTypePong, ID: msg.ID})
	case MsgTypeAction:
		var p WSActionPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			conn.sendError("invalid action payload", "BAD_REQUEST", err)
			return
		}
		action, err := viewer.ParseAction(p.Action)
		if err != nil {
			conn.sendError("unknown action", "BAD_REQUEST", err)
			return
		}
		s.Touch()
		// Run off the read loop so a newer action can supersede this one.
		go func() {
			err := s.Controller.Dispatch(ctx, viewer.Command{Action: action, ID: strings.TrimSpace(p.ID)})
			switch {
			case err == nil, errors.Is(err, viewer.ErrMissingID),
				errors.Is(err, viewer.ErrSuperseded), errors.Is(err, context.Canceled):
			default:
				h.logger.Warn().Err(err).Str("action", string(action)).Str("id", p.ID).Msg("viewer action failed")
				conn.sendError("request to logs backend failed", "UPSTREAM_ERROR", err)
			}
		}()
	default:
		conn.sendError("unknown message type", "BAD_REQUEST", nil)
	}
}

// session returns the caller's session, creating one and setting the cookie
// when the request carries none or an expired one.
func (h *ViewerHandlerImpl) session(c echo.Context) *session.Session {
	var id string
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		id = cookie.Value
	}
	s, created := h.sessions.GetOrCreate(id)
	if created {
		c.SetCookie(&http.Cookie{
			Name:     SessionCookie,
			Value:    s.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Now().Add(24 * time.Hour),
		})
	}
	return s
}

func (h *ViewerHandlerImpl) existingSession(c echo.Context) (*session.Session, bool) {
	cookie, err := c.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	return h.sessions.Get(cookie.Value)
}
