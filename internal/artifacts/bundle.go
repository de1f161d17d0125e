package artifacts

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/asktra-labs/asktra/internal/jsonx"
	"github.com/asktra-labs/asktra/internal/prompts"
	"github.com/asktra-labs/asktra/internal/resilience"
	"github.com/asktra-labs/asktra/pkg/llm"
)

// placeholderContent fills bundle fields the model left empty when at least
// one field came back non-empty.
const placeholderContent = "(No content generated.)"

// errEmptyBundle is retried like a transient failure: an empty bundle from
// the model is usually a hiccup, not a hard refusal.
var errEmptyBundle = eris.New("artifacts: model returned empty bundle")

// BundleInput carries the finding fields the bundle is generated from.
type BundleInput struct {
	Version        string
	RootCause      string
	Contradictions []string
	Risk           string
	FixSteps       []string
	Verification   string
	Sources        []string

	// Fallback enables deterministic artifacts when the model returns an
	// empty bundle on every attempt.
	Fallback bool
}

// Bundle is the three-artifact reconciliation output.
type Bundle struct {
	PostMortem   string `json:"post_mortem"`
	PRDiff       string `json:"pr_diff"`
	SlackSummary string `json:"slack_summary"`
}

func (b Bundle) empty() bool {
	return b.PostMortem == "" && b.PRDiff == "" && b.SlackSummary == ""
}

// GenerateBundle produces the reconciliation bundle: post-mortem, remedy
// patch description and stakeholder summary. Up to three attempts, retrying
// transient upstream errors and empty bundles alike.
func GenerateBundle(ctx context.Context, client llm.Client, ps *prompts.Store, input BundleInput) (*Bundle, error) {
	version := strings.TrimSpace(input.Version)
	if version == "" {
		version = "unknown"
	}

	system, err := ps.Render(prompts.ReconciliationBundle, map[string]string{
		"inferred_version": version,
		"root_cause":       input.RootCause,
		"contradictions":   joinList(input.Contradictions),
		"risk":             input.Risk,
		"fix_steps":        joinList(input.FixSteps),
		"verification":     input.Verification,
		"sources":          joinList(input.Sources),
	})
	if err != nil {
		return nil, eris.Wrap(err, "artifacts: bundle prompt")
	}

	cfg := resilience.RetryConfig{
		ShouldRetry: func(err error) bool {
			return eris.Is(err, errEmptyBundle) || resilience.IsTransient(err)
		},
	}

	bundle, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (Bundle, error) {
		raw, err := client.Generate(ctx, llm.GenerateRequest{
			System:   system,
			User:     "Generate the bundle now.",
			JSONMode: true,
		})
		if err != nil {
			return Bundle{}, eris.Wrap(err, "artifacts: generate bundle")
		}

		out := jsonx.ExtractObject(raw)
		b := Bundle{
			PostMortem:   strings.TrimSpace(jsonx.FirstStr(out, "post_mortem", "incident_report")),
			PRDiff:       strings.TrimSpace(jsonx.FirstStr(out, "pr_diff", "remedy_patch")),
			SlackSummary: strings.TrimSpace(jsonx.FirstStr(out, "slack_summary", "stakeholder_summary")),
		}
		if b.empty() {
			return Bundle{}, errEmptyBundle
		}
		return b, nil
	})
	if err != nil {
		if eris.Is(err, errEmptyBundle) && input.Fallback {
			fb := fallbackBundle(version, input)
			return &fb, nil
		}
		return nil, err
	}

	if bundle.PostMortem == "" {
		bundle.PostMortem = placeholderContent
	}
	if bundle.PRDiff == "" {
		bundle.PRDiff = placeholderContent
	}
	if bundle.SlackSummary == "" {
		bundle.SlackSummary = placeholderContent
	}
	return &bundle, nil
}

// fallbackBundle assembles deterministic artifacts from the finding fields.
func fallbackBundle(version string, input BundleInput) Bundle {
	var pm strings.Builder
	fmt.Fprintf(&pm, "# Incident report — %s\n\n", version)
	fmt.Fprintf(&pm, "## Root cause\n%s\n\n", orUnknown(input.RootCause))
	if len(input.Contradictions) > 0 {
		pm.WriteString("## Contradictions\n")
		for _, c := range input.Contradictions {
			fmt.Fprintf(&pm, "- %s\n", c)
		}
		pm.WriteString("\n")
	}
	fmt.Fprintf(&pm, "## Risk\n%s\n\n", orUnknown(input.Risk))
	if len(input.FixSteps) > 0 {
		pm.WriteString("## Follow-ups\n")
		for _, s := range input.FixSteps {
			fmt.Fprintf(&pm, "- %s\n", s)
		}
		pm.WriteString("\n")
	}
	if len(input.Sources) > 0 {
		pm.WriteString("## Sources\n")
		for _, s := range input.Sources {
			fmt.Fprintf(&pm, "- %s\n", s)
		}
	}

	var diff strings.Builder
	fmt.Fprintf(&diff, "## Remedy patch (%s)\n\n%s\n", version, orUnknown(input.RootCause))
	if len(input.FixSteps) > 0 {
		diff.WriteString("\nSteps:\n")
		for _, s := range input.FixSteps {
			fmt.Fprintf(&diff, "- %s\n", s)
		}
	}
	if input.Verification != "" {
		fmt.Fprintf(&diff, "\nVerification: %s\n", input.Verification)
	}

	summary := fmt.Sprintf("Reconciliation for %s: %s Risk: %s", version, orUnknown(input.RootCause), orUnknown(input.Risk))
	if len(summary) > 500 {
		summary = summary[:500]
	}

	return Bundle{
		PostMortem:   strings.TrimSpace(pm.String()),
		PRDiff:       strings.TrimSpace(diff.String()),
		SlackSummary: summary,
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not established."
	}
	return s
}

func joinList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, "; ")
}
