// Package pipeline sequences the causal analysis: infer the version the
// question is about, reason over the sources, optionally self-verify
// contradictions, resolve citations, and assemble the result. Both entry
// points (synchronous and streaming) drive the same five stages.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/asktra-labs/asktra/internal/dataset"
	"github.com/asktra-labs/asktra/internal/model"
	"github.com/asktra-labs/asktra/internal/prompts"
	"github.com/asktra-labs/asktra/internal/sources"
	"github.com/asktra-labs/asktra/internal/store"
	"github.com/asktra-labs/asktra/pkg/llm"
)

// verifyContextBudget bounds the verification prompt. The stage is advisory
// and does not need the full corpus.
const verifyContextBudget = 2000

// AskRequest is one causal query.
type AskRequest struct {
	Query            string
	IncludeSources   []string
	DatasetOverrides map[string]any
	PriorContext     string
	ImageBase64      string
	ImageMIME        string
}

func (r AskRequest) image() *llm.ImageAttachment {
	if strings.TrimSpace(r.ImageBase64) == "" {
		return nil
	}
	mime := r.ImageMIME
	if mime == "" {
		mime = "image/png"
	}
	return &llm.ImageAttachment{Base64: r.ImageBase64, MIMEType: mime}
}

// Pipeline runs causal queries against a dataset through an LLM client.
// Each invocation takes its own dataset snapshot; the pipeline itself holds
// no per-request state.
type Pipeline struct {
	client  llm.Client
	data    *dataset.Provider
	prompts *prompts.Store
	archive store.Store // optional; nil disables archiving
}

// New creates a Pipeline. archive may be nil.
func New(client llm.Client, data *dataset.Provider, promptStore *prompts.Store, archive store.Store) *Pipeline {
	return &Pipeline{client: client, data: data, prompts: promptStore, archive: archive}
}

// Ask runs all five stages and returns the assembled result.
func (p *Pipeline) Ask(ctx context.Context, req AskRequest) (*model.AskResult, error) {
	return p.run(ctx, req, nil)
}

// run is the single five-stage implementation. narrate, when non-nil,
// receives progress messages in order.
func (p *Pipeline) run(ctx context.Context, req AskRequest, narrate func(string)) (*model.AskResult, error) {
	say := func(format string, args ...any) {
		if narrate != nil {
			narrate(fmt.Sprintf(format, args...))
		}
	}

	query := strings.TrimSpace(req.Query)
	log := zap.L().With(zap.String("query", query))

	say("Loading dataset (%s)…", dataset.DisplayNames(req.IncludeSources))
	if req.image() != nil {
		say("Including attached image in analysis (multimodal)…")
	}
	if strings.TrimSpace(req.PriorContext) != "" {
		say("Building on prior session knowledge…")
	}

	base, err := p.data.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load dataset")
	}
	ds := dataset.ApplyOverrides(base, req.DatasetOverrides)
	sourceCtx := dataset.BuildContext(ds, req.IncludeSources)

	say("Inferring version from timestamps and release notes…")
	inferred, err := p.inferVersion(ctx, sourceCtx, query, req)
	if err != nil {
		return nil, err
	}
	say("✓ Inferred version: %s (%d%% confidence)", inferred.Version, int(math.Round(inferred.Confidence*100)))
	for i, ev := range inferred.Evidence {
		if i >= 3 {
			break
		}
		say("  Evidence: %s", ev)
	}

	say("Loading sources into context for causal reasoning…")
	say("Reasoning over Slack intent vs Git implementation vs docs…")
	finding, err := p.reason(ctx, sourceCtx, query, inferred, req)
	if err != nil {
		return nil, err
	}
	say("✓ Causal analysis complete. Extracting reasoning trace…")
	for _, step := range finding.ReasoningTrace {
		say("  %s", step)
	}

	// Self-correction loop: only when the model reported contradictions,
	// and never fatal.
	if len(finding.Contradictions) > 0 {
		say("Verifying inferred truth (self-correction loop)…")
		steps, verr := p.verify(ctx, sourceCtx, inferred.Version, finding.Contradictions)
		if verr != nil {
			log.Debug("verification skipped", zap.Error(verr))
			say("  (Verification skipped)")
		} else {
			for _, step := range steps {
				say("  %s", step)
			}
			say("✓ Verification complete. Documentation outlier confirmed.")
		}
	}

	say("Resolving source citations (Slack, Git, Jira, docs)…")
	details := sources.Resolve(finding.Sources, ds)
	say("✓ Sources resolved. Building answer…")

	result := &model.AskResult{
		Query:           query,
		InferredVersion: inferred.Version,
		Confidence:      inferred.Confidence,
		Evidence:        inferred.Evidence,
		AmbiguityNote:   inferred.AmbiguityNote,
		RootCause:       finding.RootCause,
		Contradictions:  finding.Contradictions,
		Risk:            finding.Risk,
		FixSteps:        finding.FixSteps,
		Verification:    finding.Verification,
		Sources:         finding.Sources,
		SourceDetails:   details,
		ReasoningTrace:  finding.ReasoningTrace,
		TruthGaps:       finding.TruthGaps,
	}
	result.Normalize()

	p.archiveResult(ctx, result)

	return result, nil
}

// archiveResult stores the finding when an archive is configured. Archive
// failures never fail the request.
func (p *Pipeline) archiveResult(ctx context.Context, result *model.AskResult) {
	if p.archive == nil {
		return
	}
	finding := model.Finding{
		ID:        uuid.New().String(),
		Query:     result.Query,
		Result:    *result,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.archive.SaveFinding(ctx, finding); err != nil {
		zap.L().Warn("archive finding failed", zap.Error(err))
	}
}
