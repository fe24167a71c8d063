package controllers

import (
	"net/http"

	"github.com/feirahub/feira/pkg/ws"
)

// RealtimeController exposes the websocket endpoint of the notification
// channel. Authentication happens inside the upgrade, from the bearer token,
// so the route is mounted without the HTTP auth middleware.
type RealtimeController struct {
	hub *ws.Hub
}

func NewRealtimeController(hub *ws.Hub) *RealtimeController {
	return &RealtimeController{hub: hub}
}

func (rc *RealtimeController) Connect(w http.ResponseWriter, r *http.Request) {
	ws.Upgrade(w, r, rc.hub)
}
