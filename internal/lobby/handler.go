package lobby

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meegol/SIC-Gambling/internal/game/manager"
)

// RoomReader reads the live state of a room.
type RoomReader interface {
	Snapshot(ctx context.Context, game, code string) (any, error)
}

type Handler struct {
	svc   *Service
	rooms RoomReader
}

func NewHandler(svc *Service, rooms RoomReader) *Handler {
	return &Handler{svc: svc, rooms: rooms}
}

// GET /rooms?game=blackjack
func (h *Handler) List(c *gin.Context) {
	rooms, err := h.svc.List(c.Request.Context(), c.Query("game"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ListResponse{Rooms: rooms})
}

// GET /rooms/:game/:code
func (h *Handler) Get(c *gin.Context) {
	snap, err := h.rooms.Snapshot(c.Request.Context(), c.Param("game"), c.Param("code"))
	switch {
	case errors.Is(err, manager.ErrUnknownGame):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, manager.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, snap)
	}
}
