package jobs

import (
	"errors"
	"fmt"

	"github.com/oliveedge/oliveedge/pkg/notification"
)

// DeliveryNoticeJob emails the buyer once their order is delivered.
type DeliveryNoticeJob struct {
	OrderID string `json:"orderId"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

func (j DeliveryNoticeJob) Handle() error {
	if j.Email == "" {
		return errors.New("delivery notice: missing recipient email")
	}

	errs := notification.Send(j.Email, &deliveryNotice{job: j})
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

type deliveryNotice struct {
	job DeliveryNoticeJob
}

func (n *deliveryNotice) Via() []string { return []string{"mail"} }

func (n *deliveryNotice) ToMail() notification.MailData {
	j := n.job
	return notification.MailData{
		Subject: fmt.Sprintf("Your order %s was delivered", j.OrderID),
		Body: fmt.Sprintf(
			`<p>Hi %s,</p>
<p>Your Olive Edge order <strong>%s</strong> has been delivered. We hope you
love it. If anything is wrong you can request a return from your orders page.</p>`,
			j.Name, j.OrderID),
		Text: fmt.Sprintf("Hi %s, your Olive Edge order %s has been delivered.", j.Name, j.OrderID),
	}
}
