package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/repository"
)

type deliveryViewRepository struct {
	db *sql.DB
}

// NewDeliveryViewRepository creates a DeliveryViewRepository backed by Postgres.
func NewDeliveryViewRepository(db *sql.DB) repository.DeliveryViewRepository {
	return &deliveryViewRepository{db: db}
}

const selectView = `SELECT order_id, customer_id, restaurant_id, delivery_man_id, status, address, items, delivery_charge, tip, total FROM delivery_views`

func (r *deliveryViewRepository) Get(ctx context.Context, orderID string) (entity.DeliveryView, bool, error) {
	view, err := scanView(r.db.QueryRowContext(ctx, selectView+" WHERE order_id = $1", orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.DeliveryView{}, false, nil
	}
	if err != nil {
		return entity.DeliveryView{}, false, fmt.Errorf("failed to get delivery view %s: %w", orderID, err)
	}
	return view, true, nil
}

func (r *deliveryViewRepository) Save(ctx context.Context, view entity.DeliveryView) error {
	items, err := json.Marshal(view.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items of %s: %w", view.OrderID, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO delivery_views (order_id, customer_id, restaurant_id, delivery_man_id, status, address, items, delivery_charge, tip, total, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (order_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			restaurant_id = EXCLUDED.restaurant_id,
			delivery_man_id = EXCLUDED.delivery_man_id,
			status = EXCLUDED.status,
			address = EXCLUDED.address,
			items = EXCLUDED.items,
			delivery_charge = EXCLUDED.delivery_charge,
			tip = EXCLUDED.tip,
			total = EXCLUDED.total,
			updated_at = NOW()`,
		view.OrderID, view.CustomerID, view.RestaurantID, view.DeliveryManID, string(view.Status),
		view.Address, string(items), view.DeliveryCharge, view.Tip, view.Total,
	)
	if err != nil {
		return fmt.Errorf("failed to save delivery view %s: %w", view.OrderID, err)
	}
	return nil
}

func (r *deliveryViewRepository) All(ctx context.Context) ([]entity.DeliveryView, error) {
	rows, err := r.db.QueryContext(ctx, selectView+" ORDER BY order_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery views: %w", err)
	}
	defer rows.Close()

	views := []entity.DeliveryView{}
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery view: %w", err)
		}
		views = append(views, view)
	}
	return views, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanView(row scanner) (entity.DeliveryView, error) {
	var (
		view   entity.DeliveryView
		status string
		items  []byte
	)
	err := row.Scan(&view.OrderID, &view.CustomerID, &view.RestaurantID, &view.DeliveryManID, &status,
		&view.Address, &items, &view.DeliveryCharge, &view.Tip, &view.Total)
	if err != nil {
		return entity.DeliveryView{}, err
	}
	view.Status = entity.DeliveryStatus(status)
	if err := json.Unmarshal(items, &view.Items); err != nil {
		return entity.DeliveryView{}, fmt.Errorf("failed to decode items: %w", err)
	}
	return view, nil
}
