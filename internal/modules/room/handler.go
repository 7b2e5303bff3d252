package room

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/pagemind/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/rooms", h.createOrJoin)
	rg.GET("/rooms/:roomId/summaries", h.listSummaries)
}

// POST /rooms
func (h *Handler) createOrJoin(c *gin.Context) {
	var dto actionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if !ValidID(dto.RoomID) {
		response.BadRequest(c, "roomId must be 6 alphanumeric characters")
		return
	}

	ctx := c.Request.Context()
	switch dto.Action {
	case "create":
		room, err := h.svc.Create(ctx, dto.RoomID, dto.UserID, dto.credential())
		if err != nil {
			if errors.Is(err, ErrRoomExists) {
				response.Conflict(c, "room already exists")
				return
			}
			response.InternalError(c, err)
			return
		}
		response.OK(c, room)
	case "join":
		room, err := h.svc.Join(ctx, dto.RoomID, dto.UserID)
		if err != nil {
			if errors.Is(err, ErrRoomNotFound) {
				response.NotFoundMsg(c, "room not found")
				return
			}
			response.InternalError(c, err)
			return
		}
		response.OK(c, room)
	default:
		response.BadRequest(c, "action must be create or join")
	}
}

// GET /rooms/:roomId/summaries
func (h *Handler) listSummaries(c *gin.Context) {
	roomID := c.Param("roomId")
	if !ValidID(roomID) {
		response.BadRequest(c, "roomId must be 6 alphanumeric characters")
		return
	}

	records, err := h.svc.ListSummaries(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			response.NotFoundMsg(c, "room not found")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.OK(c, gin.H{"summaries": records})
}
