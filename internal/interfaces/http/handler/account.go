package handler

import (
	appcrm "github.com/crm/backend/internal/application/crm"
	"github.com/gin-gonic/gin"
)

// AccountHandler serves the client accounts.
type AccountHandler struct {
	BaseHandler
	accounts *appcrm.AccountService
	leads    *appcrm.LeadService
	notes    *appcrm.NoteService
}

func NewAccountHandler(accounts *appcrm.AccountService, leads *appcrm.LeadService, notes *appcrm.NoteService) *AccountHandler {
	return &AccountHandler{accounts: accounts, leads: leads, notes: notes}
}

// listInput reads paging plus the owner and status filters.
func (h *AccountHandler) listInput(c *gin.Context) (appcrm.AccountListInput, bool) {
	filter, ok := h.bindList(c)
	if !ok {
		return appcrm.AccountListInput{}, false
	}
	ownerID, ok := h.optionalUUIDQuery(c, "owner_id")
	if !ok {
		return appcrm.AccountListInput{}, false
	}
	return appcrm.AccountListInput{Filter: filter, OwnerID: ownerID, Status: c.Query("status")}, true
}

// List godoc
// @Summary      List accounts
// @Description  Page through the accounts visible to the caller
// @Tags         accounts
// @Produce      json
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Param        sort_by   query string false "Sort field" Enums(first_name, last_name, email, status, created_at, updated_at)
// @Param        sort_dir  query string false "Sort direction" Enums(asc, desc)
// @Param        search    query string false "Matches names, e-mail and company"
// @Param        owner_id  query string false "Owner user ID" format(uuid)
// @Param        status    query string false "Account status" Enums(ACTIVE, INACTIVE, SUSPENDED)
// @Success      200 {object} APIResponse[[]appcrm.AccountDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	input, ok := h.listInput(c)
	if !ok {
		return
	}
	result, err := h.accounts.List(c.Request.Context(), principal(c), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page(&h.BaseHandler, c, result)
}

// MyClients godoc
// @Summary      List my clients
// @Description  Page through the accounts the caller owns
// @Tags         accounts
// @Produce      json
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Param        search    query string false "Matches names, e-mail and company"
// @Success      200 {object} APIResponse[[]appcrm.AccountDTO]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/my [get]
func (h *AccountHandler) MyClients(c *gin.Context) {
	input, ok := h.listInput(c)
	if !ok {
		return
	}
	result, err := h.accounts.MyClients(c.Request.Context(), principal(c), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page(&h.BaseHandler, c, result)
}

// Get godoc
// @Summary      Get account
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} APIResponse[appcrm.AccountDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	account, err := h.accounts.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Create godoc
// @Summary      Create account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request body AccountRequest true "Account"
// @Success      201 {object} APIResponse[appcrm.AccountDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var req AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	account, err := h.accounts.Create(c.Request.Context(), principal(c), req.input())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// Update godoc
// @Summary      Update account
// @Description  Replace the account's fields. A stale version answers 409.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id      path string         true "Account ID" format(uuid)
// @Param        request body AccountRequest true "Account"
// @Success      200 {object} APIResponse[appcrm.AccountDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id} [put]
func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	account, err := h.accounts.Update(c.Request.Context(), principal(c), id, req.input())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Delete godoc
// @Summary      Delete account
// @Description  Delete an account with its notes and open leads. Accounts with closed leads are kept.
// @Tags         accounts
// @Param        id path string true "Account ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.accounts.Delete(c.Request.Context(), principal(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Leads godoc
// @Summary      List an account's leads
// @Tags         accounts
// @Produce      json
// @Param        id        path  string true  "Account ID" format(uuid)
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Param        status    query string false "Lead status"
// @Success      200 {object} APIResponse[[]appcrm.LeadDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id}/leads [get]
func (h *AccountHandler) Leads(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	filter, ok := h.bindList(c)
	if !ok {
		return
	}
	result, err := h.leads.ListByAccount(c.Request.Context(), principal(c), id, appcrm.LeadListInput{
		Filter: filter,
		Status: c.Query("status"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page(&h.BaseHandler, c, result)
}

// Notes godoc
// @Summary      List an account's notes
// @Description  Notes are ordered by note date, newest first
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} APIResponse[[]appcrm.NoteDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id}/notes [get]
func (h *AccountHandler) Notes(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	notes, err := h.notes.ListByAccount(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if notes == nil {
		notes = []appcrm.NoteDTO{}
	}
	h.Success(c, notes)
}
