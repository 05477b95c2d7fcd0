package email

import (
	"time"

	"github.com/emersion/go-imap"
	"github.com/mixelka/codewatch/pkg/models"
)

// BuildCriteria renders a search query as IMAP SEARCH criteria:
// SINCE <now-window> [UNSEEN] [HEADER Subject <filter>] OR TEXT t1 OR TEXT t2 ...
func BuildCriteria(q models.SearchQuery, now time.Time) *imap.SearchCriteria {
	window := q.Window
	if window <= 0 {
		window = 24 * time.Hour
	}

	c := imap.NewSearchCriteria()
	c.Since = now.Add(-window)

	if q.UnreadOnly {
		c.WithoutFlags = []string{imap.SeenFlag}
	}
	if q.Subject != "" {
		c.Header.Add("Subject", q.Subject)
	}

	switch len(q.Terms) {
	case 0:
	case 1:
		c.Text = []string{q.Terms[0]}
	default:
		c.Or = anyTerm(q.Terms).Or
	}

	return c
}

// anyTerm nests OR pairs so that any one of the terms matches
func anyTerm(terms []string) *imap.SearchCriteria {
	c := imap.NewSearchCriteria()
	if len(terms) == 1 {
		c.Text = []string{terms[0]}
		return c
	}

	first := imap.NewSearchCriteria()
	first.Text = []string{terms[0]}
	c.Or = [][2]*imap.SearchCriteria{{first, anyTerm(terms[1:])}}
	return c
}
