// Package resources shapes API output where the wire form differs from the
// storage form.
package resources

import (
	"fmt"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/pkg/resource"
)

// OrderResource renders an order for list endpoints: a compact summary
// without the item rows, plus a link to the full order.
type OrderResource struct{ resource.Base }

func (r *OrderResource) ToArray(v interface{}) resource.Map {
	o, ok := v.(models.Order)
	if !ok {
		return resource.Map{}
	}

	m := resource.Map{
		"id":         o.ID,
		"number":     o.Number,
		"status":     o.Status,
		"total":      o.Total,
		"buyer_id":   o.BuyerID,
		"shop_id":    o.ShopID,
		"item_count": len(o.Items),
		"created_at": o.CreatedAt,
		"links":      resource.Map{"self": fmt.Sprintf("/api/orders/%d", o.ID)},
	}
	if o.CourierID != nil {
		m["courier_id"] = *o.CourierID
	}
	if o.EstimatedAt != nil {
		m["estimated_delivery_time"] = o.EstimatedAt
	}
	return m
}
