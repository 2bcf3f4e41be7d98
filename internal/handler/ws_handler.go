package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"adeptify/internal/auth"
	"adeptify/internal/errors"
	"adeptify/internal/notify"
	"adeptify/internal/service"
)

// WSHandler upgrades authenticated clients to the notification socket.
type WSHandler struct {
	authService service.AuthService
	hub         *notify.Hub
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewWSHandler creates a websocket handler accepting browsers from allowedOrigins.
func NewWSHandler(authService service.AuthService, hub *notify.Hub, allowedOrigins []string, logger *zap.Logger) *WSHandler {
	h := &WSHandler{
		authService: authService,
		hub:         hub,
		logger:      logger.Named("ws"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", zap.String("origin", origin))
			return false
		},
	}
	return h
}

// Connect godoc
// @Summary Notification websocket
// @Description The access token is passed as a query parameter since browsers cannot set headers on upgrade.
// @Tags realtime
// @Param token query string true "Access token"
// @Success 101
// @Failure 401 {object} errors.ErrorResponse
// @Router /ws [get]
func (h *WSHandler) Connect(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return errors.ErrUnauthenticated
	}
	user, session, err := h.authService.AuthenticateSession(c.Request().Context(), token)
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the failure response.
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return nil
	}
	h.hub.Serve(conn, auth.IdentityFromUser(user), session.ID)
	return nil
}
