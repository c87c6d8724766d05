package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/ports/adapter"
)

//go:embed templates/*.html
var templatesFS embed.FS

var reminderTmpl = template.Must(template.ParseFS(templatesFS, "templates/reminder.html"))

var _ adapter.ReminderNotifier = (*ReminderNotifier)(nil)

// ReminderNotifier renders the renewal email and hands it to a Sender.
type ReminderNotifier struct {
	sender  Sender
	company string
}

func NewReminderNotifier(sender Sender, company string) *ReminderNotifier {
	if company == "" {
		company = "Billing"
	}
	return &ReminderNotifier{sender: sender, company: company}
}

type reminderView struct {
	ClientName    string
	PlanName      string
	Cycle         string
	InvoiceNumber string
	DueDate       string
	AmountUSD     string
	ExchangeRate  string
	AmountNGN     string
	FeeNGN        string
	TotalNGN      string
	PaymentLink   string
	Company       string
}

func (n *ReminderNotifier) SendReminder(ctx context.Context, r adapter.Reminder) error {
	if r.Client == nil || r.Subscription == nil || r.Invoice == nil {
		return domain.ErrInvalidArgument
	}
	msg, err := n.Render(r)
	if err != nil {
		return err
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return &domain.TransportError{Channel: "email", Err: err}
	}
	return nil
}

// Render builds the message without sending it.
func (n *ReminderNotifier) Render(r adapter.Reminder) (Message, error) {
	inv, sub := r.Invoice, r.Subscription
	view := reminderView{
		ClientName:    r.Client.Name,
		PlanName:      sub.PlanName,
		Cycle:         capitalize(string(sub.Duration)),
		InvoiceNumber: inv.InvoiceNumber,
		DueDate:       inv.DueDate.Format("Monday, January 2, 2006"),
		AmountUSD:     money(inv.AmountUSD),
		ExchangeRate:  money(inv.ExchangeRate),
		AmountNGN:     money(inv.AmountNGN),
		FeeNGN:        money(inv.ProcessingFeeNGN),
		TotalNGN:      money(inv.TotalNGN),
		Company:       n.company,
	}
	if inv.PaymentLink != nil {
		view.PaymentLink = *inv.PaymentLink
	}
	var buf bytes.Buffer
	if err := reminderTmpl.Execute(&buf, view); err != nil {
		return Message{}, fmt.Errorf("render reminder: %w", err)
	}
	return Message{
		To:       r.Client.Email,
		Subject:  fmt.Sprintf("Subscription Renewal Due - %s - Invoice #%s", sub.PlanName, inv.InvoiceNumber),
		HTMLBody: buf.String(),
		Tag:      "renewal-reminder",
	}, nil
}

// money formats d with two decimals and thousands separators.
func money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac := s[:len(s)-3], s[len(s)-3:]
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
