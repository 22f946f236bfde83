package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/Roklion/NFT-Extract/src/config"
	"github.com/Roklion/NFT-Extract/src/logger"
)

// NewEmailService picks the Mailgun implementation when the config carries a
// complete Mailgun setup, otherwise a no-op that only logs.
func NewEmailService() EmailService {
	if config.Cfg == nil || config.Cfg.MailgunDomain == "" ||
		config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" {
		if logger.L != nil {
			logger.L.Info("Mailgun configuration incomplete, report emails disabled")
		}
		return &NoopEmailService{}
	}
	mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
	if logger.L != nil {
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
	}
	return &MailgunEmailService{
		mg:          mg,
		senderEmail: config.Cfg.SenderEmail,
		recipient:   config.Cfg.ReportRecipient,
	}
}

type MailgunEmailService struct {
	mg          *mailgun.MailgunImpl
	senderEmail string
	recipient   string
}

func (s *MailgunEmailService) SendReportSummary(ctx context.Context, report *Report) error {
	if s.recipient == "" {
		return fmt.Errorf("no report recipient configured")
	}

	subject := fmt.Sprintf("Tax report %s (%s)", report.RunID, report.Method)
	body := reportSummaryBody(report)
	message := s.mg.NewMessage(s.senderEmail, subject, body, s.recipient)

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, id, err := s.mg.Send(sendCtx, message)
	if err != nil {
		return fmt.Errorf("failed to send report email to %s: %w", s.recipient, err)
	}
	if logger.L != nil {
		logger.L.Info("Report summary email sent", "recipient", s.recipient, "messageID", id)
	}
	return nil
}

func reportSummaryBody(report *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s generated at %s\n", report.RunID, report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Cost method: %s\n", report.Method)
	fmt.Fprintf(&b, "Wallets: %s\n\n", strings.Join(report.Wallets, ", "))
	fmt.Fprintf(&b, "Transactions processed: %d\n", len(report.Balances))
	fmt.Fprintf(&b, "Tax events: %d\n", len(report.TaxEvents))
	fmt.Fprintf(&b, "Total realized gain: $%s\n", report.TotalGain.StringFixed(2))
	if len(report.Balances) > 0 {
		last := report.Balances[len(report.Balances)-1]
		fmt.Fprintf(&b, "Final balance: %s ETH across %d lots\n",
			last.RemainingBalance.StringFixed(5), len(last.Lots))
	}
	return b.String()
}

// NoopEmailService is used when email delivery is not configured.
type NoopEmailService struct{}

func (s *NoopEmailService) SendReportSummary(ctx context.Context, report *Report) error {
	if logger.L != nil {
		logger.L.Info("Email disabled, skipping report summary",
			"runID", report.RunID, "totalGain", report.TotalGain)
	}
	return nil
}
