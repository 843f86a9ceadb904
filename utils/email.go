// utils/email.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	texttemplate "text/template"
	"time"

	"github.com/keighl/postmark"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"go-storefront/config"
	"go-storefront/models"
)

// Message is a single outbound email
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	Tag      string
}

// Mailer delivers a Message through some provider
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// PostmarkMailer sends through the Postmark API
type PostmarkMailer struct {
	client *postmark.Client
	from   string
}

// postmarkTimeout caps a single API call; the postmark client has no
// context support so Send also gives up when ctx is done.
const postmarkTimeout = 15 * time.Second

func NewPostmarkMailer(apiToken, from string) *PostmarkMailer {
	client := postmark.NewClient(apiToken, "")
	client.HTTPClient = &http.Client{Timeout: postmarkTimeout}
	return &PostmarkMailer{client: client, from: from}
}

func (m *PostmarkMailer) Send(ctx context.Context, msg Message) error {
	done := make(chan error, 1)
	go func() {
		_, err := m.client.SendEmail(postmark.Email{
			From:     m.from,
			To:       msg.To,
			Subject:  msg.Subject,
			HtmlBody: msg.HTMLBody,
			TextBody: msg.TextBody,
			Tag:      msg.Tag,
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("postmark send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("postmark send: %w", ctx.Err())
	}
}

// SendGridMailer sends through the SendGrid v3 API
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridMailer(apiKey, fromName, fromAddress string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
	}
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	message := mail.NewSingleEmail(m.from, msg.Subject, mail.NewEmail("", msg.To), msg.TextBody, msg.HTMLBody)
	if msg.Tag != "" {
		message.AddCategories(msg.Tag)
	}
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer only logs messages; used in development
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info("email not delivered (log provider)", "to", msg.To, "subject", msg.Subject, "tag", msg.Tag)
	return nil
}

// NewMailer picks the provider named in cfg
func NewMailer(cfg config.EmailConfig, log *slog.Logger) (Mailer, error) {
	switch cfg.Provider {
	case config.EmailProviderPostmark:
		return NewPostmarkMailer(cfg.PostmarkToken, cfg.Sender), nil
	case config.EmailProviderSendGrid:
		return NewSendGridMailer(cfg.SendGridKey, cfg.SenderName, cfg.Sender), nil
	case config.EmailProviderLog:
		return NewLogMailer(log), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

var (
	welcomeTmpl = template.Must(template.New("welcome").Parse(`<h1>Welcome to {{.Store}}!</h1>
<p>Dear <strong>{{.User.Username}}</strong>,</p>
<p>Your registration has been completed and your account is now active.</p>
<table>
<tr><td>Username:</td><td>{{.User.Username}}</td></tr>
<tr><td>Email:</td><td>{{.User.Email}}</td></tr>
<tr><td>Account Type:</td><td>{{.User.Role}}</td></tr>
</table>`))

	orderNotificationTmpl = template.Must(template.New("order").Parse(`<h2>New Order Placed</h2>
<p><strong>Username:</strong> {{.User.Username}}</p>
<p><strong>Email:</strong> {{.User.Email}}</p>
<p><strong>Phone:</strong> {{if .User.Phone}}{{.User.Phone}}{{else}}N/A{{end}}</p>
<p><strong>Location:</strong> {{.User.Address}}</p>
<h3>Order Details:</h3>
<table>
<thead><tr><th>Item Code</th><th>Product Name</th><th>Quantity</th><th>Price</th><th>Line Total</th></tr></thead>
<tbody>
{{range .Order.Products}}<tr><td>{{.ItemCode}}</td><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.Price.StringFixed 2}}</td><td>{{.Subtotal.StringFixed 2}}</td></tr>
{{end}}</tbody>
</table>
<p><strong>Total:</strong> {{.Order.TotalPrice.StringFixed 2}} ({{.Order.TotalItems}} items)</p>`))

	orderConfirmationTmpl = template.Must(template.New("confirmation").Parse(`<p>Dear {{.User.Username}},</p>
<p>Thank you for your order (ID: {{.Order.ID.Hex}}). It is now <strong>{{.Order.Status}}</strong>.</p>
<p>Items: {{.Order.TotalItems}}<br>Total: <strong>{{.Order.TotalPrice.StringFixed 2}}</strong></p>`))
)

// plain-text parts sent alongside the HTML bodies
var (
	welcomeText = texttemplate.Must(texttemplate.New("welcome").Parse(`Welcome to {{.Store}}!

Dear {{.User.Username}},

Your registration has been completed and your account is now active.

Username: {{.User.Username}}
Email: {{.User.Email}}
Account Type: {{.User.Role}}
`))

	orderNotificationText = texttemplate.Must(texttemplate.New("order").Parse(`New Order Placed

Username: {{.User.Username}}
Email: {{.User.Email}}
Phone: {{if .User.Phone}}{{.User.Phone}}{{else}}N/A{{end}}
Location: {{.User.Address}}

Order Details:
{{range .Order.Products}}- {{.ItemCode}} {{.Name}} x{{.Quantity}} @ {{.Price.StringFixed 2}} = {{.Subtotal.StringFixed 2}}
{{end}}
Total: {{.Order.TotalPrice.StringFixed 2}} ({{.Order.TotalItems}} items)
`))

	orderConfirmationText = texttemplate.Must(texttemplate.New("confirmation").Parse(`Dear {{.User.Username}},

Thank you for your order (ID: {{.Order.ID.Hex}}). It is now {{.Order.Status}}.

Items: {{.Order.TotalItems}}
Total: {{.Order.TotalPrice.StringFixed 2}}
`))
)

// EmailService renders and sends the storefront's transactional emails
type EmailService struct {
	mailer Mailer
	store  string
	inbox  string
}

// NewEmailService wraps mailer; inbox receives new-order notifications
func NewEmailService(mailer Mailer, storeName, inbox string) *EmailService {
	return &EmailService{mailer: mailer, store: storeName, inbox: inbox}
}

// SendEmail sends a basic email to the specified recipient
func (es *EmailService) SendEmail(ctx context.Context, toEmail, subject, htmlContent, textContent, tag string) error {
	return es.mailer.Send(ctx, Message{
		To:       toEmail,
		Subject:  subject,
		HTMLBody: htmlContent,
		TextBody: textContent,
		Tag:      tag,
	})
}

// SendWelcomeEmail greets a newly registered user
func (es *EmailService) SendWelcomeEmail(ctx context.Context, user *models.User) error {
	data := map[string]interface{}{"Store": es.store, "User": user}
	html, text, err := renderBoth(welcomeTmpl, welcomeText, data)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Welcome to %s - Registration Successful", es.store)
	return es.SendEmail(ctx, user.Email, subject, html, text, "welcome")
}

// SendOrderNotification tells the store inbox that an order was placed
func (es *EmailService) SendOrderNotification(ctx context.Context, user *models.User, order *models.Order) error {
	data := map[string]interface{}{"User": user, "Order": order}
	html, text, err := renderBoth(orderNotificationTmpl, orderNotificationText, data)
	if err != nil {
		return err
	}
	return es.SendEmail(ctx, es.inbox, "New Order Placed", html, text, "order-notification")
}

// SendOrderConfirmation sends the customer a summary of their order
func (es *EmailService) SendOrderConfirmation(ctx context.Context, user *models.User, order *models.Order) error {
	data := map[string]interface{}{"User": user, "Order": order}
	html, text, err := renderBoth(orderConfirmationTmpl, orderConfirmationText, data)
	if err != nil {
		return err
	}
	return es.SendEmail(ctx, user.Email, "Order Confirmation", html, text, "order-confirmation")
}

type emailTemplate interface {
	Execute(w io.Writer, data interface{}) error
	Name() string
}

func renderBoth(html *template.Template, text *texttemplate.Template, data interface{}) (string, string, error) {
	htmlBody, err := render(html, data)
	if err != nil {
		return "", "", err
	}
	textBody, err := render(text, data)
	if err != nil {
		return "", "", err
	}
	return htmlBody, textBody, nil
}

func render(tmpl emailTemplate, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
