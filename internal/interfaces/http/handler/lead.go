package handler

import (
	appcrm "github.com/crm/backend/internal/application/crm"
	"github.com/gin-gonic/gin"
)

// LeadHandler serves leads and their status machine.
type LeadHandler struct {
	BaseHandler
	leads *appcrm.LeadService
}

func NewLeadHandler(leads *appcrm.LeadService) *LeadHandler {
	return &LeadHandler{leads: leads}
}

// List godoc
// @Summary      List leads
// @Tags         leads
// @Produce      json
// @Param        page       query int    false "Page number" default(1)
// @Param        page_size  query int    false "Page size" default(20)
// @Param        sort_by    query string false "Sort field" Enums(created_at, updated_at, status, estimated_value, probability)
// @Param        sort_dir   query string false "Sort direction" Enums(asc, desc)
// @Param        search     query string false "Matches the description"
// @Param        status     query string false "Lead status" Enums(NEW, QUALIFICATION, NEEDS_ANALYSIS, VALUE_PROPOSITION, ID_DECISION_MAKERS, PERCEPTION_ANALYSIS, PROPOSAL, NEGOTIATION, CLOSED_WON, CLOSED_LOST)
// @Param        account_id query string false "Account ID" format(uuid)
// @Success      200 {object} APIResponse[[]appcrm.LeadDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leads [get]
func (h *LeadHandler) List(c *gin.Context) {
	filter, ok := h.bindList(c)
	if !ok {
		return
	}
	accountID, ok := h.optionalUUIDQuery(c, "account_id")
	if !ok {
		return
	}
	result, err := h.leads.List(c.Request.Context(), principal(c), appcrm.LeadListInput{
		Filter:    filter,
		AccountID: accountID,
		Status:    c.Query("status"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page(&h.BaseHandler, c, result)
}

// Get godoc
// @Summary      Get lead
// @Tags         leads
// @Produce      json
// @Param        id path string true "Lead ID" format(uuid)
// @Success      200 {object} APIResponse[appcrm.LeadDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leads/{id} [get]
func (h *LeadHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	lead, err := h.leads.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lead)
}

// Create godoc
// @Summary      Create lead
// @Description  Open a lead in NEW against an account the caller can see
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        request body CreateLeadRequest true "Lead"
// @Success      201 {object} APIResponse[appcrm.LeadDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leads [post]
func (h *LeadHandler) Create(c *gin.Context) {
	var req CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	lead, err := h.leads.Create(c.Request.Context(), principal(c), appcrm.CreateLeadInput{
		AccountID:      req.AccountID,
		Description:    req.Description,
		EstimatedValue: req.EstimatedValue,
		Probability:    req.Probability,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, lead)
}

// Update godoc
// @Summary      Update lead
// @Description  Edit description, value and probability of an open lead
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        id      path string            true "Lead ID" format(uuid)
// @Param        request body UpdateLeadRequest true "Lead fields"
// @Success      200 {object} APIResponse[appcrm.LeadDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leads/{id} [put]
func (h *LeadHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	lead, err := h.leads.Update(c.Request.Context(), principal(c), id, appcrm.UpdateLeadInput{
		Description:    req.Description,
		EstimatedValue: req.EstimatedValue,
		Probability:    req.Probability,
		Version:        req.Version,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lead)
}

// ChangeStatus godoc
// @Summary      Change lead status
// @Description  Apply a status transition. Winning a deal books a sale and returns its ID.
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        id      path string            true "Lead ID" format(uuid)
// @Param        request body LeadStatusRequest true "Target status"
// @Success      200 {object} APIResponse[appcrm.LeadDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leads/{id}/status [post]
func (h *LeadHandler) ChangeStatus(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req LeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	lead, err := h.leads.ChangeStatus(c.Request.Context(), principal(c), id, req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lead)
}

// Delete godoc
// @Summary      Delete lead
// @Description  Only open leads can be deleted; closed leads are archived
// @Tags         leads
// @Param        id path string true "Lead ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leads/{id} [delete]
func (h *LeadHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.leads.Delete(c.Request.Context(), principal(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
