package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/asktra-labs/asktra/internal/jsonx"
	"github.com/asktra-labs/asktra/internal/model"
	"github.com/asktra-labs/asktra/internal/prompts"
	"github.com/asktra-labs/asktra/pkg/llm"
)

// inferVersion asks the model which system version the question is about.
// Missing or malformed fields degrade to defaults rather than failing.
func (p *Pipeline) inferVersion(ctx context.Context, sourceCtx, query string, req AskRequest) (model.VersionInference, error) {
	system, err := p.prompts.Render(prompts.InferVersion, map[string]string{"query": query})
	if err != nil {
		return model.VersionInference{}, eris.Wrap(err, "pipeline: infer version prompt")
	}

	user := "Sources:\n" + sourceCtx + "\n\nUser question: " + query
	if req.image() != nil {
		user += "\n\n[The user attached an image. Consider it alongside the textual sources when inferring the version.]"
	}

	raw, err := p.client.Generate(ctx, llm.GenerateRequest{
		System:   system,
		User:     user,
		JSONMode: true,
		Image:    req.image(),
	})
	if err != nil {
		return model.VersionInference{}, eris.Wrap(err, "pipeline: infer version")
	}

	out := jsonx.ExtractObject(raw)
	inferred := model.VersionInference{
		Version:       jsonx.Str(out, "inferred_version"),
		Confidence:    jsonx.Num(out, "confidence"),
		Evidence:      jsonx.StrList(out, "evidence"),
		AmbiguityNote: jsonx.Str(out, "ambiguity_note"),
	}
	if strings.TrimSpace(inferred.Version) == "" {
		inferred.Version = "unknown"
	}
	return inferred, nil
}

// reason runs the causal analysis over the full source context.
func (p *Pipeline) reason(ctx context.Context, sourceCtx, query string, inferred model.VersionInference, req AskRequest) (model.CausalFinding, error) {
	priorBlock := ""
	if prior := strings.TrimSpace(req.PriorContext); prior != "" {
		priorBlock = "\nPrior established knowledge (from this session):\n" + prior + "\n"
	}

	system, err := p.prompts.Render(prompts.CausalReasoning, map[string]string{
		"query":               query,
		"inferred_version":    inferred.Version,
		"prior_context_block": priorBlock,
	})
	if err != nil {
		return model.CausalFinding{}, eris.Wrap(err, "pipeline: causal reasoning prompt")
	}

	user := "Sources:\n" + sourceCtx
	if req.image() != nil {
		user += "\n\n[The user attached an image, likely a dashboard or latency graph. Check whether it is consistent with the inferred version and note any discrepancy.]"
	}

	raw, err := p.client.Generate(ctx, llm.GenerateRequest{
		System:   system,
		User:     user,
		JSONMode: true,
		Image:    req.image(),
	})
	if err != nil {
		return model.CausalFinding{}, eris.Wrap(err, "pipeline: causal reasoning")
	}

	out := jsonx.ExtractObject(raw)
	return model.CausalFinding{
		RootCause:      jsonx.Str(out, "root_cause"),
		Contradictions: jsonx.StrList(out, "contradictions"),
		Risk:           jsonx.Str(out, "risk"),
		FixSteps:       jsonx.StrList(out, "fix_steps"),
		Verification:   jsonx.Str(out, "verification"),
		Sources:        jsonx.StrList(out, "sources"),
		ReasoningTrace: jsonx.StrList(out, "reasoning_trace"),
		TruthGaps:      jsonx.StrList(out, "truth_gaps"),
	}, nil
}

// verify double-checks reported contradictions against a truncated slice of
// the context. Its output is informational only.
func (p *Pipeline) verify(ctx context.Context, sourceCtx, version string, contradictions []string) ([]string, error) {
	encoded, err := json.Marshal(contradictions)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: encode contradictions")
	}

	system, err := p.prompts.Render(prompts.VerifyContradiction, map[string]string{
		"inferred_version": version,
		"contradictions":   string(encoded),
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: verification prompt")
	}

	excerpt := sourceCtx
	if len(excerpt) > verifyContextBudget {
		cut := verifyContextBudget
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut]
	}

	raw, err := p.client.Generate(ctx, llm.GenerateRequest{
		System:   system,
		User:     "Context excerpt:\n" + excerpt,
		JSONMode: true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: verification")
	}

	return jsonx.StrList(jsonx.ExtractObject(raw), "verification_steps"), nil
}
