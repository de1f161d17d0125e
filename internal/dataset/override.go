package dataset

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/asktra-labs/asktra/internal/model"
)

// ApplyOverrides returns a copy of base with caller-supplied replacement
// content applied. An override replaces its source wholesale for the single
// request; the base dataset is never mutated. Blank or nil override values
// are ignored.
//
// Structured sources (chat/commits/tickets) accept either a JSON string or
// already-decoded JSON; values that fail to decode are ignored with a
// warning rather than aborting the request.
func ApplyOverrides(base model.Dataset, overrides map[string]any) model.Dataset {
	ds := base.Clone()
	if len(overrides) == 0 {
		return ds
	}

	for key, value := range overrides {
		if value == nil || value == "" {
			continue
		}
		switch canonicalSource(key) {
		case "slack":
			applyStructured(key, value, &ds.Chat)
		case "git":
			applyStructured(key, value, &ds.Commits)
		case "jira":
			applyStructured(key, value, &ds.Tickets)
		case "docs":
			ds.Docs = asText(value)
		case "releases":
			ds.ReleaseNotes = asText(value)
		default:
			zap.L().Warn("dataset: unknown override key ignored", zap.String("key", key))
		}
	}
	return ds
}

// canonicalSource maps accepted source aliases to the canonical key.
// Unknown names map to "".
func canonicalSource(name string) string {
	switch name {
	case "slack", "chat":
		return "slack"
	case "git", "commits":
		return "git"
	case "jira", "tickets":
		return "jira"
	case "docs":
		return "docs"
	case "releases", "release_notes":
		return "releases"
	}
	return ""
}

func applyStructured[T any](key string, value any, dst *[]T) {
	raw, ok := value.(string)
	var data []byte
	if ok {
		data = []byte(raw)
	} else {
		var err error
		data, err = json.Marshal(value)
		if err != nil {
			zap.L().Warn("dataset: override not re-encodable", zap.String("key", key), zap.Error(err))
			return
		}
	}

	var parsed []T
	if err := json.Unmarshal(data, &parsed); err != nil {
		zap.L().Warn("dataset: override ignored, not valid JSON for source",
			zap.String("key", key), zap.Error(err))
		return
	}
	*dst = parsed
}

func asText(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
