package gmail

import (
	"fmt"
	"strings"
	"time"

	"github.com/mixelka/codewatch/pkg/models"
)

// BuildQuery renders a search query in Gmail search syntax, e.g.
// newer_than:1d "verification" OR "code" subject:(Login) is:unread
func BuildQuery(q models.SearchQuery) string {
	days := int((q.Window + 24*time.Hour - 1) / (24 * time.Hour))
	if days < 1 {
		days = 1
	}

	parts := []string{fmt.Sprintf("newer_than:%dd", days)}

	if len(q.Terms) > 0 {
		quoted := make([]string, len(q.Terms))
		for i, t := range q.Terms {
			quoted[i] = `"` + strings.ReplaceAll(t, `"`, "") + `"`
		}
		parts = append(parts, strings.Join(quoted, " OR "))
	}

	if q.Subject != "" {
		parts = append(parts, "subject:("+q.Subject+")")
	}
	if q.UnreadOnly {
		parts = append(parts, "is:unread")
	}

	return strings.Join(parts, " ")
}
