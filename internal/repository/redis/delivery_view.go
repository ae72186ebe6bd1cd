package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/egannguyen/go-food-delivery/internal/entity"
)

// DeliveryViewKey is the hash holding one JSON encoded view per order id.
const DeliveryViewKey = "delivery-view"

type DeliveryViewRepository struct {
	client goredis.UniversalClient
}

func NewDeliveryViewRepository(client goredis.UniversalClient) *DeliveryViewRepository {
	return &DeliveryViewRepository{client: client}
}

func (r *DeliveryViewRepository) Get(ctx context.Context, orderID string) (entity.DeliveryView, bool, error) {
	raw, err := r.client.HGet(ctx, DeliveryViewKey, orderID).Result()
	if errors.Is(err, goredis.Nil) {
		return entity.DeliveryView{}, false, nil
	}
	if err != nil {
		return entity.DeliveryView{}, false, fmt.Errorf("failed to get delivery view %s: %w", orderID, err)
	}
	var view entity.DeliveryView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return entity.DeliveryView{}, false, fmt.Errorf("failed to decode delivery view %s: %w", orderID, err)
	}
	return view, true, nil
}

func (r *DeliveryViewRepository) Save(ctx context.Context, view entity.DeliveryView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to encode delivery view %s: %w", view.OrderID, err)
	}
	if err := r.client.HSet(ctx, DeliveryViewKey, view.OrderID, data).Err(); err != nil {
		return fmt.Errorf("failed to save delivery view %s: %w", view.OrderID, err)
	}
	return nil
}

func (r *DeliveryViewRepository) All(ctx context.Context) ([]entity.DeliveryView, error) {
	all, err := r.client.HGetAll(ctx, DeliveryViewKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery views: %w", err)
	}
	views := make([]entity.DeliveryView, 0, len(all))
	for id, raw := range all {
		var view entity.DeliveryView
		if err := json.Unmarshal([]byte(raw), &view); err != nil {
			return nil, fmt.Errorf("failed to decode delivery view %s: %w", id, err)
		}
		views = append(views, view)
	}
	slices.SortFunc(views, func(a, b entity.DeliveryView) int {
		return strings.Compare(a.OrderID, b.OrderID)
	})
	return views, nil
}
