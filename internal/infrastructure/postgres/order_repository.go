package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/grovemarket/marketplace-checkout/internal/domain/order"
)

// OrderRepository persists purchase records in Postgres. Basket and line
// snapshots are stored as JSONB documents: records are immutable and only ever
// read back whole, so there is nothing to join on.
type OrderRepository struct {
	DB *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{DB: db}
}

func (r *OrderRepository) SaveOrder(ctx context.Context, o *domain.Order) error {
	baskets, err := json.Marshal(o.Baskets)
	if err != nil {
		return fmt.Errorf("order repository: encode baskets: %w", err)
	}
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO orders(id, buyer_id, baskets, total_cents, payment_tx, shipping_tx, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING
	`, o.ID, o.BuyerID, baskets, o.Total, o.PaymentTxID, o.ShippingTxID, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("order repository: insert order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *OrderRepository) SaveShopOrder(ctx context.Context, so *domain.ShopOrder) error {
	lines, err := json.Marshal(so.Lines)
	if err != nil {
		return fmt.Errorf("order repository: encode lines: %w", err)
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO shop_orders(id, order_id, shop_id, buyer_id, lines, amount_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING
	`, so.ID, so.OrderID, so.ShopID, so.BuyerID, lines, so.Amount, so.CreatedAt)
	if err != nil {
		return fmt.Errorf("order repository: insert shop order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Order(ctx context.Context, id string) (*domain.Order, error) {
	var (
		o       domain.Order
		baskets []byte
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, buyer_id, baskets, total_cents, payment_tx, shipping_tx, created_at
		FROM orders WHERE id=$1
	`, id).Scan(&o.ID, &o.BuyerID, &baskets, &o.Total, &o.PaymentTxID, &o.ShippingTxID, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order repository: select order: %w", err)
	}
	if err := json.Unmarshal(baskets, &o.Baskets); err != nil {
		return nil, fmt.Errorf("order repository: decode baskets: %w", err)
	}
	return &o, nil
}

func (r *OrderRepository) ShopOrders(ctx context.Context, shopID string) ([]*domain.ShopOrder, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, shop_id, buyer_id, lines, amount_cents, created_at
		FROM shop_orders WHERE shop_id=$1 ORDER BY created_at
	`, shopID)
	if err != nil {
		return nil, fmt.Errorf("order repository: select shop orders: %w", err)
	}
	defer rows.Close()

	var out []*domain.ShopOrder
	for rows.Next() {
		var (
			so    domain.ShopOrder
			lines []byte
		)
		if err := rows.Scan(&so.ID, &so.OrderID, &so.ShopID, &so.BuyerID, &lines, &so.Amount, &so.CreatedAt); err != nil {
			return nil, fmt.Errorf("order repository: scan shop order: %w", err)
		}
		if err := json.Unmarshal(lines, &so.Lines); err != nil {
			return nil, fmt.Errorf("order repository: decode lines: %w", err)
		}
		out = append(out, &so)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
