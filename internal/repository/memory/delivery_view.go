package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/egannguyen/go-food-delivery/internal/entity"
)

type DeliveryViewRepository struct {
	mu    sync.RWMutex
	views map[string]entity.DeliveryView
}

func NewDeliveryViewRepository() *DeliveryViewRepository {
	return &DeliveryViewRepository{views: make(map[string]entity.DeliveryView)}
}

func (r *DeliveryViewRepository) Get(_ context.Context, orderID string) (entity.DeliveryView, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	view, ok := r.views[orderID]
	return view, ok, nil
}

func (r *DeliveryViewRepository) Save(_ context.Context, view entity.DeliveryView) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	view.Items = slices.Clone(view.Items)
	r.views[view.OrderID] = view
	return nil
}

// All returns every view ordered by order id.
func (r *DeliveryViewRepository) All(_ context.Context) ([]entity.DeliveryView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	views := make([]entity.DeliveryView, 0, len(r.views))
	for _, view := range r.views {
		views = append(views, view)
	}
	slices.SortFunc(views, func(a, b entity.DeliveryView) int {
		return strings.Compare(a.OrderID, b.OrderID)
	})
	return views, nil
}
