package summary

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/pagemind/core/internal/modules/gemini"
	"github.com/pagemind/core/internal/modules/room"
	"github.com/pagemind/core/internal/pkg/response"
)

type summarizeDTO struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Length   string `json:"summaryLength"`
	Language string `json:"language"`
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/summaries", h.summarize)
}

// POST /summaries
func (h *Handler) summarize(c *gin.Context) {
	var dto summarizeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	rec, err := h.svc.Summarize(c.Request.Context(), Request{
		URL:      dto.URL,
		Title:    dto.Title,
		Content:  dto.Content,
		RoomID:   dto.RoomID,
		UserID:   dto.UserID,
		Length:   dto.Length,
		Language: dto.Language,
	})
	if err != nil {
		var genErr *gemini.GenerationError
		switch {
		case errors.Is(err, ErrEmptyURL), errors.Is(err, ErrInvalidRoomID):
			response.BadRequest(c, err.Error())
		case errors.Is(err, room.ErrNoCredential):
			response.BadRequest(c, "room does not have an API key configured")
		case errors.As(err, &genErr):
			response.InternalError(c, genErr)
		default:
			response.InternalError(c, err)
		}
		return
	}

	response.OK(c, gin.H{"data": rec})
}
