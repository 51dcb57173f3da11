// Package jobs defines the background jobs the storefront enqueues and the
// event listeners that enqueue them.
package jobs

import (
	"errors"
	"fmt"

	"github.com/oliveedge/oliveedge/pkg/notification"
)

// OrderConfirmationJob emails the buyer after an order is placed.
// Fields are exported so the queue can serialise the job between processes.
type OrderConfirmationJob struct {
	OrderID    string  `json:"orderId"`
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	TotalPrice float64 `json:"totalPrice"`
	ItemCount  int     `json:"itemCount"`
}

func (j OrderConfirmationJob) Handle() error {
	if j.Email == "" {
		return errors.New("order confirmation: missing recipient email")
	}

	errs := notification.Send(j.Email, &orderConfirmationNotice{job: j})
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

type orderConfirmationNotice struct {
	job OrderConfirmationJob
}

func (n *orderConfirmationNotice) Via() []string { return []string{"mail"} }

func (n *orderConfirmationNotice) ToMail() notification.MailData {
	j := n.job
	return notification.MailData{
		Subject: fmt.Sprintf("Order confirmed — %s", j.OrderID),
		Body: fmt.Sprintf(
			`<p>Hi %s,</p>
<p>Thanks for shopping with Olive Edge. Your order <strong>%s</strong>
(%d items, ₹%.2f) has been placed and is awaiting payment confirmation.</p>
<p>You can follow its progress on your orders page.</p>`,
			j.Name, j.OrderID, j.ItemCount, j.TotalPrice),
		Text: fmt.Sprintf("Hi %s, your Olive Edge order %s (%d items, %.2f) has been placed.",
			j.Name, j.OrderID, j.ItemCount, j.TotalPrice),
	}
}
