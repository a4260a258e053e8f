package handler

import (
	appidentity "github.com/crm/backend/internal/application/identity"
	"github.com/gin-gonic/gin"
)

// TeamHandler serves sales teams.
type TeamHandler struct {
	BaseHandler
	teams *appidentity.TeamService
}

func NewTeamHandler(teams *appidentity.TeamService) *TeamHandler {
	return &TeamHandler{teams: teams}
}

// List godoc
// @ID           listTeams
// @Summary      List teams
// @Tags         teams
// @Produce      json
// @Success      200 {object} APIResponse[[]appidentity.TeamDTO]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /teams [get]
func (h *TeamHandler) List(c *gin.Context) {
	teams, err := h.teams.List(c.Request.Context(), principal(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if teams == nil {
		teams = []appidentity.TeamDTO{}
	}
	h.Success(c, teams)
}

// Create godoc
// @ID           createTeam
// @Summary      Create team
// @Tags         teams
// @Accept       json
// @Produce      json
// @Param        request body TeamRequest true "Team"
// @Success      201 {object} APIResponse[appidentity.TeamDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /teams [post]
func (h *TeamHandler) Create(c *gin.Context) {
	var req TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	team, err := h.teams.Create(c.Request.Context(), principal(c), req.input())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, team)
}

// Update godoc
// @ID           updateTeam
// @Summary      Update team
// @Tags         teams
// @Accept       json
// @Produce      json
// @Param        id      path string      true "Team ID" format(uuid)
// @Param        request body TeamRequest true "Team"
// @Success      200 {object} APIResponse[appidentity.TeamDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /teams/{id} [put]
func (h *TeamHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	team, err := h.teams.Update(c.Request.Context(), principal(c), id, req.input())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, team)
}

// Delete godoc
// @ID           deleteTeam
// @Summary      Delete team
// @Tags         teams
// @Param        id path string true "Team ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /teams/{id} [delete]
func (h *TeamHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.teams.Delete(c.Request.Context(), principal(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
