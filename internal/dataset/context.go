package dataset

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/asktra-labs/asktra/internal/model"
)

// sourceOrder fixes the order of context sections and of source filtering.
var sourceOrder = []string{"slack", "git", "jira", "docs", "releases"}

// BuildContext renders the dataset as namespaced labeled blocks for the
// model prompt. includeSources filters which sources appear (canonical keys
// or their aliases); an empty filter includes everything.
func BuildContext(ds model.Dataset, includeSources []string) string {
	include := map[string]bool{}
	for _, name := range includeSources {
		if key := canonicalSource(name); key != "" {
			include[key] = true
		}
	}
	wants := func(key string) bool {
		return len(include) == 0 || include[key]
	}

	var parts []string
	for _, key := range sourceOrder {
		if !wants(key) {
			continue
		}
		switch key {
		case "slack":
			if len(ds.Chat) > 0 {
				parts = append(parts, "## Slack\n"+indentJSON(ds.Chat))
			}
		case "git":
			if len(ds.Commits) > 0 {
				parts = append(parts, "## Git commits\n"+indentJSON(ds.Commits))
			}
		case "jira":
			if len(ds.Tickets) > 0 {
				parts = append(parts, "## Jira\n"+indentJSON(ds.Tickets))
			}
		case "docs":
			if ds.Docs != "" {
				parts = append(parts, "## Documentation\n"+ds.Docs)
			}
		case "releases":
			if ds.ReleaseNotes != "" {
				parts = append(parts, "## Release notes\n"+ds.ReleaseNotes)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

// DisplayNames renders the selected sources for progress narration, e.g.
// "Slack, Git, Jira". With no selection the full default list is used.
func DisplayNames(includeSources []string) string {
	if len(includeSources) == 0 {
		return "Slack, Git, Jira, docs, releases"
	}
	title := cases.Title(language.English)
	names := make([]string, 0, len(includeSources))
	for _, s := range includeSources {
		names = append(names, title.String(s))
	}
	return strings.Join(names, ", ")
}
