package email

import (
	"context"
	"strings"
)

// Provider delivers operational mail such as finance payout notices.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, templateName string, data any) error
}

// NoOpProvider drops every message. Used when SMTP is not configured.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(context.Context, []string, string, string) error { return nil }

func (p *NoOpProvider) SendTemplate(context.Context, []string, string, any) error { return nil }

// ParseRecipients splits a comma separated address list, dropping blanks and
// case-insensitive duplicates.
func ParseRecipients(list string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, addr := range strings.Split(list, ",") {
		addr = strings.TrimSpace(addr)
		key := strings.ToLower(addr)
		if addr == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}
