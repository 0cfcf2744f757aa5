package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/config"
)

// Message is a templated notification handed to the transport. Rendering is
// the transport's (or a downstream mail service's) concern; this service only
// decides when and whether to send.
type Message struct {
	To             string
	Subject        string
	Template       string
	Data           map[string]interface{}
	Attachment     []byte
	AttachmentName string
}

// Transport delivers a message to an address and reports the provider's
// message id. Implementations are opaque to the orchestrator.
type Transport interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// SMTPTransport delivers over plain SMTP. The Message-ID header it generates
// doubles as the provider message id recorded in the ledger.
type SMTPTransport struct {
	cfg config.EmailConfig
}

func NewSMTPTransport(cfg config.EmailConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) (string, error) {
	messageID := fmt.Sprintf("<%s@zengest>", uuid.NewString())

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", t.cfg.FromAddress)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&b, "X-Template: %s\r\n", msg.Template)
	b.WriteString("\r\n")

	// The mail service downstream renders the template; the body carries
	// its variables as plain key: value lines.
	keys := make([]string, 0, len(msg.Data))
	for k := range msg.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\r\n", k, msg.Data[k])
	}
	if len(msg.Attachment) > 0 {
		fmt.Fprintf(&b, "attachment %s (base64): %s\r\n",
			msg.AttachmentName, base64.StdEncoding.EncodeToString(msg.Attachment))
	}

	addr := t.cfg.SMTPHost + ":" + t.cfg.SMTPPort
	var auth smtp.Auth
	if t.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", t.cfg.SMTPUsername, t.cfg.SMTPPassword, t.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, t.cfg.FromAddress, []string{msg.To}, []byte(b.String())); err != nil {
		return "", err
	}
	return messageID, nil
}
