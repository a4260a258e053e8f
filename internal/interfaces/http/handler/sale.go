package handler

import (
	appcrm "github.com/crm/backend/internal/application/crm"
	"github.com/gin-gonic/gin"
)

// SaleHandler exposes the read-only sales ledger.
type SaleHandler struct {
	BaseHandler
	sales *appcrm.SaleService
}

func NewSaleHandler(sales *appcrm.SaleService) *SaleHandler {
	return &SaleHandler{sales: sales}
}

// List godoc
// @Summary      List sales
// @Description  Page through the sales visible to the caller
// @Tags         sales
// @Produce      json
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Param        sort_by   query string false "Sort field" Enums(closed_at, amount)
// @Param        sort_dir  query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]appcrm.SaleDTO]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales [get]
func (h *SaleHandler) List(c *gin.Context) {
	filter, ok := h.bindList(c)
	if !ok {
		return
	}
	result, err := h.sales.List(c.Request.Context(), principal(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page(&h.BaseHandler, c, result)
}

// Get godoc
// @Summary      Get sale
// @Tags         sales
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} APIResponse[appcrm.SaleDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/{id} [get]
func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	sale, err := h.sales.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}
