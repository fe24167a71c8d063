package listeners

import (
	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/app/notifications"
	"github.com/feirahub/feira/app/repositories"
	"github.com/feirahub/feira/app/services"
	"github.com/feirahub/feira/pkg/event"
	"github.com/feirahub/feira/pkg/logger"
	"github.com/feirahub/feira/pkg/notification"
)

// RegisterOrderMail mails a receipt to the buyer for every new order.
// Register only when SMTP credentials are configured; the mailer errors
// without them.
func RegisterOrderMail(users *repositories.UserRepository) {
	event.Listen(services.TopicOrderCreated, func(payload interface{}) {
		order, ok := payload.(*models.Order)
		if !ok {
			return
		}

		buyer, err := users.FindByID(order.BuyerID)
		if err != nil {
			logger.Error("listeners: receipt buyer lookup failed",
				"order", order.Number, "buyer_id", order.BuyerID, "error", err)
			return
		}

		notification.SendAsync(buyer.Email, &notifications.OrderReceipt{
			Order: *order,
			Buyer: buyer,
		})
	})
}
