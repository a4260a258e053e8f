package handler

import (
	"net/http"

	appcrm "github.com/crm/backend/internal/application/crm"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NoteHandler serves notes. Listing lives under the account.
type NoteHandler struct {
	BaseHandler
	notes *appcrm.NoteService
}

func NewNoteHandler(notes *appcrm.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// Create godoc
// @Summary      Create note
// @Tags         notes
// @Accept       json
// @Produce      json
// @Param        request body NoteRequest true "Note"
// @Success      201 {object} APIResponse[appcrm.NoteDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if req.AccountID == uuid.Nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "account_id is required")
		return
	}
	note, err := h.notes.Create(c.Request.Context(), principal(c), req.input())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, note)
}

// Update godoc
// @Summary      Update note
// @Tags         notes
// @Accept       json
// @Produce      json
// @Param        id      path string      true "Note ID" format(uuid)
// @Param        request body NoteRequest true "Note"
// @Success      200 {object} APIResponse[appcrm.NoteDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notes/{id} [put]
func (h *NoteHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	note, err := h.notes.Update(c.Request.Context(), principal(c), id, req.input())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, note)
}

// Delete godoc
// @Summary      Delete note
// @Tags         notes
// @Param        id path string true "Note ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.notes.Delete(c.Request.Context(), principal(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
