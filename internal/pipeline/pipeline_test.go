package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asktra-labs/asktra/internal/dataset"
	"github.com/asktra-labs/asktra/internal/model"
	"github.com/asktra-labs/asktra/internal/prompts"
	"github.com/asktra-labs/asktra/internal/store"
	"github.com/asktra-labs/asktra/pkg/llm"
)

// scriptedClient returns canned responses in order and records every request.
type scriptedClient struct {
	responses []string
	errs      []error
	requests  []llm.GenerateRequest
}

func (c *scriptedClient) Generate(_ context.Context, req llm.GenerateRequest) (string, error) {
	i := len(c.requests)
	c.requests = append(c.requests, req)
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i >= len(c.responses) {
		return "{}", nil
	}
	return c.responses[i], nil
}

func (c *scriptedClient) Model() string { return "test-model" }

const inferResponse = `{
	"inferred_version": "v2.3.1",
	"confidence": 0.92,
	"evidence": ["Slack thread on June 12", "Commit 8a2f4c9 the same day", "Release notes for v2.3.1"],
	"ambiguity_note": ""
}`

const reasonResponse = `{
	"root_cause": "Commit 8a2f4c9 dropped the retry wrapper from the auth client.",
	"contradictions": [],
	"risk": "Auth outages surface as user-facing login failures.",
	"fix_steps": ["Restore the retry wrapper", "Add a regression test"],
	"verification": "Check staging login latency after redeploy.",
	"sources": ["Commit 8a2f4c9", "AUTH-101"],
	"reasoning_trace": ["Matched Slack report to commit window", "Confirmed ticket AUTH-101 closure"],
	"truth_gaps": []
}`

const reasonWithContradictions = `{
	"root_cause": "Docs describe the old retry behavior.",
	"contradictions": ["Docs say retries are enabled; commit 8a2f4c9 removed them"],
	"sources": ["Commit 8a2f4c9"],
	"reasoning_trace": ["Found doc drift"]
}`

const verifyResponse = `{"verification_steps": ["Re-read docs section 3", "Confirmed commit diff removes retry"]}`

func writeDatasetDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"slack.json":  `[{"date":"2025-06-12","channel":"eng-auth","author":"maya","message":"staging login is timing out again"}]`,
		"git.json":    `[{"hash":"8a2f4c9d11e0b7aa","short_hash":"8a2f4c9","date":"2025-06-12","author":"dev","message":"simplify auth client","change":"removed retry wrapper"}]`,
		"jira.json":   `[{"id":"AUTH-101","title":"Staging login latency","status":"Resolved","comment":"closed after redeploy"}]`,
		"docs.md":     "# Auth client\nRetries are enabled by default.",
		"releases.md": "## v2.3.1\nSimplified auth client internals.",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newTestPipeline(t *testing.T, client llm.Client) *Pipeline {
	t.Helper()
	promptStore, err := prompts.NewStore("")
	require.NoError(t, err)
	return New(client, dataset.NewProvider(writeDatasetDir(t)), promptStore, nil)
}

func TestAsk_AssemblesResult(t *testing.T) {
	client := &scriptedClient{responses: []string{inferResponse, reasonResponse}}
	p := newTestPipeline(t, client)

	result, err := p.Ask(context.Background(), AskRequest{Query: "  why is staging login slow?  "})
	require.NoError(t, err)

	assert.Equal(t, "why is staging login slow?", result.Query)
	assert.Equal(t, "v2.3.1", result.InferredVersion)
	assert.Equal(t, 0.92, result.Confidence)
	assert.Equal(t, "Commit 8a2f4c9 dropped the retry wrapper from the auth client.", result.RootCause)
	assert.Equal(t, []string{"Restore the retry wrapper", "Add a regression test"}, result.FixSteps)
	require.Len(t, result.SourceDetails, 2)
	assert.Equal(t, model.SourceKindCommits, result.SourceDetails[0].Kind)
	assert.Equal(t, model.SourceKindTickets, result.SourceDetails[1].Kind)

	// No contradictions means no verification call.
	assert.Len(t, client.requests, 2)
}

func TestAsk_NormalizesNilSlices(t *testing.T) {
	client := &scriptedClient{responses: []string{`{"inferred_version":"v1"}`, `{"root_cause":"x"}`}}
	p := newTestPipeline(t, client)

	result, err := p.Ask(context.Background(), AskRequest{Query: "q"})
	require.NoError(t, err)

	assert.NotNil(t, result.Evidence)
	assert.NotNil(t, result.Contradictions)
	assert.NotNil(t, result.FixSteps)
	assert.NotNil(t, result.Sources)
	assert.NotNil(t, result.SourceDetails)
	assert.NotNil(t, result.ReasoningTrace)
	assert.NotNil(t, result.TruthGaps)
}

func TestAsk_DegenerateInference(t *testing.T) {
	client := &scriptedClient{responses: []string{"no json here", reasonResponse}}
	p := newTestPipeline(t, client)

	result, err := p.Ask(context.Background(), AskRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "unknown", result.InferredVersion)
	assert.Zero(t, result.Confidence)
}

func TestAsk_RunsVerificationOnContradictions(t *testing.T) {
	client := &scriptedClient{responses: []string{inferResponse, reasonWithContradictions, verifyResponse}}
	p := newTestPipeline(t, client)

	result, err := p.Ask(context.Background(), AskRequest{Query: "q"})
	require.NoError(t, err)
	require.Len(t, client.requests, 3)
	assert.Equal(t, []string{"Docs say retries are enabled; commit 8a2f4c9 removed them"}, result.Contradictions)

	// Verification runs against an excerpt, not the full corpus.
	verifyReq := client.requests[2]
	assert.True(t, verifyReq.JSONMode)
	assert.LessOrEqual(t, len(verifyReq.User), len("Context excerpt:\n")+verifyContextBudget)
}

func TestVerify_ExcerptEndsOnRuneBoundary(t *testing.T) {
	client := &scriptedClient{responses: []string{verifyResponse}}
	p := newTestPipeline(t, client)

	// The multibyte rune straddling the excerpt boundary is dropped whole.
	sourceCtx := strings.Repeat("s", verifyContextBudget-1) + "é and more context beyond the cut"
	_, err := p.verify(context.Background(), sourceCtx, "v2.3.1", []string{"doc drift"})
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	excerpt := strings.TrimPrefix(client.requests[0].User, "Context excerpt:\n")
	assert.True(t, utf8.ValidString(excerpt))
	assert.Equal(t, strings.Repeat("s", verifyContextBudget-1), excerpt)
}

func TestAsk_VerificationFailureIsNonFatal(t *testing.T) {
	client := &scriptedClient{
		responses: []string{inferResponse, reasonWithContradictions, ""},
		errs:      []error{nil, nil, eris.New("model unavailable")},
	}
	p := newTestPipeline(t, client)

	result, err := p.Ask(context.Background(), AskRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "Docs describe the old retry behavior.", result.RootCause)
}

func TestAsk_ReasoningFailure(t *testing.T) {
	client := &scriptedClient{
		responses: []string{inferResponse, ""},
		errs:      []error{nil, eris.New("quota exceeded")},
	}
	p := newTestPipeline(t, client)

	_, err := p.Ask(context.Background(), AskRequest{Query: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "causal reasoning")
}

func TestAsk_DatasetOverrides(t *testing.T) {
	client := &scriptedClient{responses: []string{inferResponse, reasonResponse}}
	p := newTestPipeline(t, client)

	_, err := p.Ask(context.Background(), AskRequest{
		Query:            "q",
		DatasetOverrides: map[string]any{"docs": "# Overridden docs"},
	})
	require.NoError(t, err)
	assert.Contains(t, client.requests[0].User, "# Overridden docs")
	assert.NotContains(t, client.requests[0].User, "Retries are enabled by default")
}

func TestAsk_IncludeSourcesFiltersContext(t *testing.T) {
	client := &scriptedClient{responses: []string{inferResponse, reasonResponse}}
	p := newTestPipeline(t, client)

	_, err := p.Ask(context.Background(), AskRequest{Query: "q", IncludeSources: []string{"slack"}})
	require.NoError(t, err)
	assert.Contains(t, client.requests[0].User, "## Slack")
	assert.NotContains(t, client.requests[0].User, "## Jira")
}

func TestAsk_ImageAttached(t *testing.T) {
	client := &scriptedClient{responses: []string{inferResponse, reasonResponse}}
	p := newTestPipeline(t, client)

	_, err := p.Ask(context.Background(), AskRequest{
		Query:       "q",
		ImageBase64: "aGVsbG8=",
		ImageMIME:   "image/jpeg",
	})
	require.NoError(t, err)
	require.NotNil(t, client.requests[0].Image)
	assert.Equal(t, "image/jpeg", client.requests[0].Image.MIMEType)
	require.NotNil(t, client.requests[1].Image)
}

func TestAsk_PriorContextInPrompt(t *testing.T) {
	client := &scriptedClient{responses: []string{inferResponse, reasonResponse}}
	p := newTestPipeline(t, client)

	_, err := p.Ask(context.Background(), AskRequest{Query: "q", PriorContext: "root cause was the retry wrapper"})
	require.NoError(t, err)
	assert.Contains(t, client.requests[1].System, "root cause was the retry wrapper")
}

func TestAskStream_EventOrder(t *testing.T) {
	client := &scriptedClient{responses: []string{inferResponse, reasonResponse}}
	p := newTestPipeline(t, client)

	var events []Event
	err := p.AskStream(context.Background(), AskRequest{Query: "q"}, func(e Event) {
		events = append(events, e)
	})
	require.NoError(t, err)
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, EventResult, last.Type)
	require.NotNil(t, last.Result)
	assert.Equal(t, "v2.3.1", last.Result.InferredVersion)

	var steps []string
	for _, e := range events[:len(events)-1] {
		require.Equal(t, EventStep, e.Type)
		steps = append(steps, e.Message)
	}
	joined := strings.Join(steps, "\n")
	assert.Contains(t, joined, "✓ Inferred version: v2.3.1 (92% confidence)")
	assert.Contains(t, joined, "Resolving source citations")
	// Progress ordering: inference narrated before reasoning, reasoning
	// before citation resolution.
	assert.Less(t, strings.Index(joined, "Inferring version"), strings.Index(joined, "Reasoning over"))
	assert.Less(t, strings.Index(joined, "Reasoning over"), strings.Index(joined, "Resolving source citations"))
}

func TestAskStream_VerificationNarration(t *testing.T) {
	client := &scriptedClient{responses: []string{inferResponse, reasonWithContradictions, verifyResponse}}
	p := newTestPipeline(t, client)

	var steps []string
	err := p.AskStream(context.Background(), AskRequest{Query: "q"}, func(e Event) {
		if e.Type == EventStep {
			steps = append(steps, e.Message)
		}
	})
	require.NoError(t, err)
	joined := strings.Join(steps, "\n")
	assert.Contains(t, joined, "Verifying inferred truth")
	assert.Contains(t, joined, "Re-read docs section 3")
	assert.Contains(t, joined, "✓ Verification complete")
}

func TestAskStream_ErrorEventTerminal(t *testing.T) {
	client := &scriptedClient{errs: []error{eris.New("model unavailable")}}
	p := newTestPipeline(t, client)

	var events []Event
	err := p.AskStream(context.Background(), AskRequest{Query: "q"}, func(e Event) {
		events = append(events, e)
	})
	require.Error(t, err)
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.Contains(t, last.Message, "model unavailable")
	for _, e := range events[:len(events)-1] {
		assert.Equal(t, EventStep, e.Type)
	}
}

type recordingArchive struct {
	saved []model.Finding
	err   error
}

func (a *recordingArchive) SaveFinding(_ context.Context, f model.Finding) error {
	a.saved = append(a.saved, f)
	return a.err
}

func (a *recordingArchive) GetFinding(context.Context, string) (*model.Finding, error) {
	return nil, eris.New("not implemented")
}

func (a *recordingArchive) ListFindings(context.Context, store.ListFilter) ([]model.Finding, error) {
	return nil, nil
}

func (a *recordingArchive) Migrate(context.Context) error { return nil }
func (a *recordingArchive) Close() error                  { return nil }

func TestAsk_ArchivesFinding(t *testing.T) {
	client := &scriptedClient{responses: []string{inferResponse, reasonResponse}}
	archive := &recordingArchive{}
	promptStore, err := prompts.NewStore("")
	require.NoError(t, err)
	p := New(client, dataset.NewProvider(writeDatasetDir(t)), promptStore, archive)

	result, err := p.Ask(context.Background(), AskRequest{Query: "why?"})
	require.NoError(t, err)
	require.Len(t, archive.saved, 1)
	assert.NotEmpty(t, archive.saved[0].ID)
	assert.Equal(t, "why?", archive.saved[0].Query)
	assert.Equal(t, result.RootCause, archive.saved[0].Result.RootCause)
	assert.False(t, archive.saved[0].CreatedAt.IsZero())
}

func TestAsk_ArchiveFailureIsNonFatal(t *testing.T) {
	client := &scriptedClient{responses: []string{inferResponse, reasonResponse}}
	archive := &recordingArchive{err: eris.New("disk full")}
	promptStore, err := prompts.NewStore("")
	require.NoError(t, err)
	p := New(client, dataset.NewProvider(writeDatasetDir(t)), promptStore, archive)

	_, err = p.Ask(context.Background(), AskRequest{Query: "q"})
	require.NoError(t, err)
}
