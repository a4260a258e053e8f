package crm

import (
	"context"
	"fmt"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SaleService reads the sales ledger.
type SaleService struct {
	sales crm.SaleRepository
}

func NewSaleService(sales crm.SaleRepository) *SaleService {
	return &SaleService{sales: sales}
}

func (s *SaleService) List(ctx context.Context, p access.Principal, filter shared.Filter) (*shared.Paginated[SaleDTO], error) {
	d := access.Authorize(p, access.Collection(access.KindSale), access.ActionReadList)
	if !d.Allowed {
		return nil, d.Err()
	}
	sales, total, err := s.sales.FindAll(ctx, crm.SaleFilter{Filter: filter, Scope: d.Predicate(p)})
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	page := shared.NewPaginated(mapSlice(sales, toSaleDTO), total, max(filter.Page, 1), filter.Limit())
	return &page, nil
}

func (s *SaleService) Get(ctx context.Context, p access.Principal, id uuid.UUID) (*SaleDTO, error) {
	if !p.IsAuthenticated() {
		return nil, shared.ErrUnauthorized
	}
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.Authorize(p, access.Owned(access.KindSale, sale.OwnerID, sale.TeamID), access.ActionReadOne).Allowed {
		return nil, crm.ErrSaleNotFound
	}
	dto := toSaleDTO(sale)
	return &dto, nil
}
