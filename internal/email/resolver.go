package email

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

const reachTimeout = 3 * time.Second

// Common IMAP servers for popular email providers
var knownIMAPServers = map[string]string{
	"gmail.com":      "imap.gmail.com:993",
	"googlemail.com": "imap.gmail.com:993",
	"outlook.com":    "outlook.office365.com:993",
	"hotmail.com":    "outlook.office365.com:993",
	"live.com":       "outlook.office365.com:993",
	"yahoo.com":      "imap.mail.yahoo.com:993",
	"yandex.ru":      "imap.yandex.ru:993",
	"yandex.com":     "imap.yandex.com:993",
	"mail.ru":        "imap.mail.ru:993",
	"bk.ru":          "imap.mail.ru:993",
	"list.ru":        "imap.mail.ru:993",
	"inbox.ru":       "imap.mail.ru:993",
	"icloud.com":     "imap.mail.me.com:993",
	"me.com":         "imap.mail.me.com:993",
	"aol.com":        "imap.aol.com:993",
	"zoho.com":       "imap.zoho.com:993",
	"fastmail.com":   "imap.fastmail.com:993",
	"gmx.com":        "imap.gmx.com:993",
	"gmx.de":         "imap.gmx.net:993",
	"web.de":         "imap.web.de:993",
	"rambler.ru":     "imap.rambler.ru:993",
}

// Resolver picks an IMAP server for a mail address: known providers first,
// then common host patterns, then hosts derived from the MX record.
type Resolver struct {
	reachable func(ctx context.Context, addr string) bool
	lookupMX  func(ctx context.Context, domain string) ([]*net.MX, error)
}

// NewResolver creates a resolver that checks hosts over TCP and uses the system DNS
func NewResolver() *Resolver {
	return &Resolver{
		reachable: dialReachable,
		lookupMX:  net.DefaultResolver.LookupMX,
	}
}

// Resolve returns host:port of the IMAP server for an address
func (r *Resolver) Resolve(ctx context.Context, email string) (string, error) {
	domain := domainOf(email)
	if domain == "" {
		return "", fmt.Errorf("invalid email format")
	}

	if server, ok := knownIMAPServers[domain]; ok {
		return server, nil
	}

	for _, host := range []string{"imap." + domain, "mail." + domain, domain} {
		if r.reachable(ctx, host+":993") {
			return host + ":993", nil
		}
	}

	if server := r.fromMX(ctx, domain); server != "" {
		return server, nil
	}

	return "imap." + domain + ":993", nil
}

// fromMX derives imap.<base> or mail.<base> from mx.<base>
func (r *Resolver) fromMX(ctx context.Context, domain string) string {
	records, err := r.lookupMX(ctx, domain)
	if err != nil || len(records) == 0 {
		return ""
	}

	mxHost := strings.TrimSuffix(records[0].Host, ".")
	_, base, ok := strings.Cut(mxHost, ".")
	if !ok {
		return ""
	}

	for _, host := range []string{"imap." + base, "mail." + base} {
		if r.reachable(ctx, host+":993") {
			return host + ":993"
		}
	}
	return ""
}

func dialReachable(ctx context.Context, addr string) bool {
	d := net.Dialer{Timeout: reachTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func domainOf(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return ""
	}
	return strings.ToLower(domain)
}
