package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/rest"
)

func (c controller) listRooms(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": rest.Envelope{
				"code":    "VALIDATION_FAILED",
				"message": "limit must be a non-negative integer",
			}})
			return
		}
		limit = parsed
	}

	rooms, err := c.roomService.ListPublicRooms(r.Context(), limit)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": rooms})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	summary, err := c.roomService.FindActiveRoom(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": summary})
}

type contentRequest struct {
	ContentId string `json:"content_id" validate:"required,max=128"`
	UnitId    string `json:"unit_id" validate:"max=128"`
	Title     string `json:"title" validate:"max=256"`
	Sequence  int    `json:"sequence" validate:"min=0"`
}

func (cr contentRequest) toContent() room.Content {
	return room.Content{
		ContentId: cr.ContentId,
		UnitId:    cr.UnitId,
		Title:     cr.Title,
		Sequence:  cr.Sequence,
	}
}

type createRoomRequest struct {
	Content         contentRequest `json:"content" validate:"required"`
	IsPublic        bool           `json:"is_public"`
	MaxParticipants int            `json:"max_participants" validate:"min=0"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	id, err := c.authenticate(r)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	var req createRoomRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.DebugContext(r.Context(), "failed to read body", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": rest.Envelope{
			"code":    "INVALID_BODY",
			"message": err.Error(),
		}})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	resp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		Identity:        id,
		Content:         req.Content.toContent(),
		IsPublic:        req.IsPublic,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": resp.Room})
}

func (c controller) closeRoom(w http.ResponseWriter, r *http.Request) {
	id, err := c.authenticate(r)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	if err := c.roomService.CloseRoom(r.Context(), &room.CloseRoomParams{
		UserId: id.UserId,
		Code:   chi.URLParam(r, "code"),
	}); err != nil {
		c.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c controller) getMyRoom(w http.ResponseWriter, r *http.Request) {
	id, err := c.authenticate(r)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	summary, err := c.roomService.GetHostedRoom(r.Context(), id.UserId)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": summary})
}
