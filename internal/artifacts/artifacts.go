// Package artifacts generates derivative documents from a causal finding:
// corrected docs, a reconciliation patch description, and the full
// post-mortem bundle. All generators are stateless, one model call each
// (the bundle retries).
package artifacts

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/asktra-labs/asktra/internal/dataset"
	"github.com/asktra-labs/asktra/internal/model"
	"github.com/asktra-labs/asktra/internal/prompts"
	"github.com/asktra-labs/asktra/pkg/llm"
)

// ErrInvalidInput marks client-side input errors (missing required fields).
var ErrInvalidInput = eris.New("artifacts: invalid input")

// EmitDocs asks the model for a PR-ready documentation correction based on
// the dataset and the causal finding.
func EmitDocs(ctx context.Context, client llm.Client, ps *prompts.Store, ds model.Dataset, version string, finding model.CausalFinding) (string, error) {
	if strings.TrimSpace(version) == "" {
		version = "unknown"
	}
	system, err := ps.Render(prompts.EmitDocs, map[string]string{"inferred_version": version})
	if err != nil {
		return "", eris.Wrap(err, "artifacts: emit docs prompt")
	}

	summary, err := json.MarshalIndent(finding, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "artifacts: encode finding")
	}

	out, err := client.Generate(ctx, llm.GenerateRequest{
		System: system,
		User:   "Sources:\n" + dataset.BuildContext(ds, nil) + "\n\nCausal analysis:\n" + string(summary),
	})
	if err != nil {
		return "", eris.Wrap(err, "artifacts: emit docs")
	}
	return strings.TrimSpace(out), nil
}

// EmitReconciliationPatch writes a PR body reconciling a finding into the
// given target. findingID, target and action are required; validation
// happens before any model call.
func EmitReconciliationPatch(ctx context.Context, client llm.Client, ps *prompts.Store, findingID, target, action, causalSummary string) (string, error) {
	for _, f := range []struct{ name, value string }{
		{"finding_id", findingID},
		{"target", target},
		{"action", action},
	} {
		if strings.TrimSpace(f.value) == "" {
			return "", eris.Wrapf(ErrInvalidInput, "%s is required", f.name)
		}
	}

	if strings.TrimSpace(causalSummary) == "" {
		causalSummary = "No prior causal summary provided."
	}

	system, err := ps.Render(prompts.EmitReconciliationPatch, map[string]string{
		"finding_id":     findingID,
		"target":         target,
		"action":         action,
		"causal_summary": causalSummary,
	})
	if err != nil {
		return "", eris.Wrap(err, "artifacts: reconciliation patch prompt")
	}

	out, err := client.Generate(ctx, llm.GenerateRequest{
		System: system,
		User:   "Write the reconciliation patch now.",
	})
	if err != nil {
		return "", eris.Wrap(err, "artifacts: reconciliation patch")
	}
	return strings.TrimSpace(out), nil
}
