// Package sources maps free-text citation labels returned by the reasoning
// stage back to concrete records in the dataset. Resolution is best-effort
// and total: every unique citation yields exactly one detail record.
package sources

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/asktra-labs/asktra/internal/model"
)

const (
	docsExcerptLen     = 800
	releasesExcerptLen = 400
)

// rule is one classification heuristic: a predicate plus a resolver for the
// matched kind. Rules are evaluated in fixed order and the first match wins,
// so structurally distinctive labels (hashes, ticket keys) are checked before
// the universal document fallback. New source kinds slot in without
// disturbing existing classification order.
type rule struct {
	kind    model.SourceKind
	matches func(citation string) bool
	resolve func(citation string, ds model.Dataset) string
}

var (
	chatPattern   = regexp.MustCompile(`(?i)slack|#\w+`)
	commitPattern = regexp.MustCompile(`(?i)\bcommit\b|\b[0-9a-f]{4,}\b`)
	ticketPattern = regexp.MustCompile(`(?i)(SEC|AUTH|JIRA|PROJ)-\d+`)
)

var rules = []rule{
	{kind: model.SourceKindChat, matches: chatPattern.MatchString, resolve: resolveChat},
	{kind: model.SourceKindCommits, matches: commitPattern.MatchString, resolve: resolveCommit},
	{kind: model.SourceKindTickets, matches: ticketPattern.MatchString, resolve: resolveTicket},
	// Document is the universal fallback; it matches everything.
	{kind: model.SourceKindDocument, matches: func(string) bool { return true }, resolve: resolveDocument},
}

// Resolve classifies each citation and looks up its backing record.
// Order-preserving; duplicates (exact string equality after trimming) are
// collapsed to the first occurrence; blank citations are skipped.
func Resolve(citations []string, ds model.Dataset) []model.SourceDetail {
	out := make([]model.SourceDetail, 0, len(citations))
	seen := map[string]bool{}

	for _, raw := range citations {
		citation := strings.TrimSpace(raw)
		if citation == "" || seen[citation] {
			continue
		}
		seen[citation] = true

		for _, r := range rules {
			if !r.matches(citation) {
				continue
			}
			out = append(out, model.SourceDetail{
				Kind:    r.kind,
				Label:   citation,
				Content: r.resolve(citation, ds),
			})
			break
		}
	}
	return out
}

// resolveChat finds the chat record whose date (or channel) appears in the
// citation, falling back to the first record so the detail is never omitted.
func resolveChat(citation string, ds model.Dataset) string {
	for _, msg := range ds.Chat {
		if (msg.Date != "" && strings.Contains(citation, msg.Date)) ||
			(msg.Channel != "" && strings.Contains(citation, msg.Channel)) {
			return formatChat(msg)
		}
	}
	if len(ds.Chat) > 0 {
		return formatChat(ds.Chat[0])
	}
	return ""
}

func formatChat(msg model.ChatMessage) string {
	return fmt.Sprintf("[%s] #%s — %s: %s", msg.Date, msg.Channel, msg.Author, msg.Message)
}

// resolveCommit matches on full or short hash, contained in or suffixing the
// citation. No match keeps the commit kind with empty content.
func resolveCommit(citation string, ds model.Dataset) string {
	lower := strings.ToLower(citation)
	for _, c := range ds.Commits {
		full := strings.ToLower(firstNonEmpty(c.Hash, c.ShortHash))
		short := strings.ToLower(c.ShortHash)
		if short == "" && len(c.Hash) >= 7 {
			short = strings.ToLower(c.Hash[:7])
		}

		if hashMatches(lower, full) || hashMatches(lower, short) {
			return formatCommit(c)
		}
	}
	return ""
}

func hashMatches(citation, hash string) bool {
	if hash == "" {
		return false
	}
	return strings.Contains(citation, hash) || strings.HasSuffix(citation, hash)
}

func formatCommit(c model.Commit) string {
	content := fmt.Sprintf("commit %s (%s) — %s\n  %s\n  %s",
		firstNonEmpty(c.Hash, c.ShortHash), c.Date, c.Author, c.Message, c.Change)
	if c.Diff != "" {
		content += "\n  Diff:\n  " + c.Diff
	}
	return content
}

// resolveTicket matches on the ticket id, case-insensitively.
func resolveTicket(citation string, ds model.Dataset) string {
	upper := strings.ToUpper(citation)
	for _, tk := range ds.Tickets {
		if tk.ID != "" && strings.Contains(upper, strings.ToUpper(tk.ID)) {
			return fmt.Sprintf("%s — %s (%s)\n  %s", tk.ID, tk.Title, tk.Status, tk.Comment)
		}
	}
	return ""
}

// resolveDocument excerpts the narrative sources. When both are empty the
// citation label itself stands in, so resolution still produces content.
func resolveDocument(citation string, ds model.Dataset) string {
	content := truncate(strings.TrimSpace(ds.Docs), docsExcerptLen)
	if notes := truncate(strings.TrimSpace(ds.ReleaseNotes), releasesExcerptLen); notes != "" {
		if content != "" {
			content += "\n\n---\n\n"
		}
		content += notes
	}
	if content == "" {
		return citation
	}
	return content
}

// truncate cuts s to at most n bytes without splitting a multibyte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
