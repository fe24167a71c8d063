// Package notifications defines the outbound messages the storefront sends.
package notifications

import (
	"fmt"
	"strings"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/pkg/notification"
)

// OrderReceipt is mailed to the buyer after checkout accepts an order.
type OrderReceipt struct {
	Order models.Order
	Buyer models.User
}

func (n *OrderReceipt) Via() []string { return []string{"mail"} }

func (n *OrderReceipt) ToMail() notification.MailData {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>Order %s confirmed</h1>", n.Order.Number)
	fmt.Fprintf(&b, "<p>Thanks, %s! The shop has received your order.</p>", n.Buyer.Name)
	b.WriteString("<ul>")
	for _, item := range n.Order.Items {
		fmt.Fprintf(&b, "<li>%d x product #%d at R$ %.2f each</li>",
			item.Quantity, item.ProductID, item.UnitPrice)
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "<p><strong>Total: R$ %.2f</strong></p>", n.Order.Total)
	if n.Order.DeliveryAddress != "" {
		fmt.Fprintf(&b, "<p>Delivery to: %s</p>", n.Order.DeliveryAddress)
	}

	return notification.MailData{
		Subject: fmt.Sprintf("Your order %s", n.Order.Number),
		Body:    b.String(),
	}
}
