package artifacts

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asktra-labs/asktra/internal/model"
	"github.com/asktra-labs/asktra/internal/prompts"
	"github.com/asktra-labs/asktra/pkg/llm"
)

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
		return "", nil
	}
	return c.responses[i], nil
}

func (c *scriptedClient) Model() string { return "test-model" }

func testPrompts(t *testing.T) *prompts.Store {
	t.Helper()
	ps, err := prompts.NewStore("")
	require.NoError(t, err)
	return ps
}

func testDataset() model.Dataset {
	return model.Dataset{
		Chat: []model.ChatMessage{{Date: "2025-06-12", Channel: "eng-auth", Author: "maya", Message: "login is slow"}},
		Docs: "# Auth client\nRetries are enabled by default.",
	}
}

func testFinding() model.CausalFinding {
	return model.CausalFinding{
		RootCause:    "Commit 8a2f4c9 dropped the retry wrapper.",
		Risk:         "Login failures in staging.",
		FixSteps:     []string{"Restore the wrapper"},
		Verification: "Watch staging latency.",
		Sources:      []string{"Commit 8a2f4c9"},
	}
}

func TestEmitDocs(t *testing.T) {
	client := &scriptedClient{responses: []string{"\n# Auth client\nRetries were removed in v2.3.1.\n"}}

	out, err := EmitDocs(context.Background(), client, testPrompts(t), testDataset(), "v2.3.1", testFinding())
	require.NoError(t, err)
	assert.Equal(t, "# Auth client\nRetries were removed in v2.3.1.", out)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.False(t, req.JSONMode)
	assert.Contains(t, req.System, "v2.3.1")
	assert.Contains(t, req.User, "## Slack")
	assert.Contains(t, req.User, "Commit 8a2f4c9 dropped the retry wrapper.")
}

func TestEmitDocs_BlankVersion(t *testing.T) {
	client := &scriptedClient{responses: []string{"ok"}}

	_, err := EmitDocs(context.Background(), client, testPrompts(t), testDataset(), "  ", testFinding())
	require.NoError(t, err)
	assert.Contains(t, client.requests[0].System, "unknown")
}

func TestEmitReconciliationPatch_Validation(t *testing.T) {
	client := &scriptedClient{}
	ps := testPrompts(t)

	cases := []struct {
		name                      string
		findingID, target, action string
	}{
		{"missing finding_id", "", "docs", "update"},
		{"missing target", "f-1", " ", "update"},
		{"missing action", "f-1", "docs", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EmitReconciliationPatch(context.Background(), client, ps, tc.findingID, tc.target, tc.action, "")
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrInvalidInput))
		})
	}
	// Validation failures never reach the model.
	assert.Empty(t, client.requests)
}

func TestEmitReconciliationPatch(t *testing.T) {
	client := &scriptedClient{responses: []string{"  ## Patch\nFix the docs.  "}}

	out, err := EmitReconciliationPatch(context.Background(), client, testPrompts(t), "f-1", "docs/auth.md", "correct-retries", "")
	require.NoError(t, err)
	assert.Equal(t, "## Patch\nFix the docs.", out)

	req := client.requests[0]
	assert.Contains(t, req.System, "f-1")
	assert.Contains(t, req.System, "docs/auth.md")
	assert.Contains(t, req.System, "No prior causal summary provided.")
}

func TestEmitReconciliationPatch_CausalSummaryKept(t *testing.T) {
	client := &scriptedClient{responses: []string{"ok"}}

	_, err := EmitReconciliationPatch(context.Background(), client, testPrompts(t), "f-1", "docs", "update", "retry wrapper removed")
	require.NoError(t, err)
	assert.Contains(t, client.requests[0].System, "retry wrapper removed")
	assert.NotContains(t, client.requests[0].System, "No prior causal summary provided.")
}

func bundleInput() BundleInput {
	return BundleInput{
		Version:        "v2.3.1",
		RootCause:      "Commit 8a2f4c9 dropped the retry wrapper.",
		Contradictions: []string{"docs disagree with code"},
		Risk:           "Login failures.",
		FixSteps:       []string{"Restore the wrapper"},
		Verification:   "Watch staging latency.",
		Sources:        []string{"Commit 8a2f4c9"},
	}
}

func TestGenerateBundle(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"post_mortem":"# PM","pr_diff":"## Diff","slack_summary":"all good"}`,
	}}

	b, err := GenerateBundle(context.Background(), client, testPrompts(t), bundleInput())
	require.NoError(t, err)
	assert.Equal(t, "# PM", b.PostMortem)
	assert.Equal(t, "## Diff", b.PRDiff)
	assert.Equal(t, "all good", b.SlackSummary)

	req := client.requests[0]
	assert.True(t, req.JSONMode)
	assert.Contains(t, req.System, "Commit 8a2f4c9 dropped the retry wrapper.")
}

func TestGenerateBundle_AlternateKeys(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"incident_report":"# PM","remedy_patch":"## Diff","stakeholder_summary":"summary"}`,
	}}

	b, err := GenerateBundle(context.Background(), client, testPrompts(t), bundleInput())
	require.NoError(t, err)
	assert.Equal(t, "# PM", b.PostMortem)
	assert.Equal(t, "## Diff", b.PRDiff)
	assert.Equal(t, "summary", b.SlackSummary)
}

func TestGenerateBundle_PartialGetsPlaceholder(t *testing.T) {
	client := &scriptedClient{responses: []string{`{"post_mortem":"# PM"}`}}

	b, err := GenerateBundle(context.Background(), client, testPrompts(t), bundleInput())
	require.NoError(t, err)
	assert.Equal(t, "# PM", b.PostMortem)
	assert.Equal(t, "(No content generated.)", b.PRDiff)
	assert.Equal(t, "(No content generated.)", b.SlackSummary)
}

func TestGenerateBundle_RetriesEmptyThenSucceeds(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{}`,
		`{"post_mortem":"# PM","pr_diff":"d","slack_summary":"s"}`,
	}}

	b, err := GenerateBundle(context.Background(), client, testPrompts(t), bundleInput())
	require.NoError(t, err)
	assert.Equal(t, "# PM", b.PostMortem)
	assert.Len(t, client.requests, 2)
}

func TestGenerateBundle_EmptyAfterAllAttempts(t *testing.T) {
	client := &scriptedClient{responses: []string{`{}`, `{}`, `{}`}}

	_, err := GenerateBundle(context.Background(), client, testPrompts(t), bundleInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty bundle")
	assert.Len(t, client.requests, 3)
}

func TestGenerateBundle_FallbackOnEmpty(t *testing.T) {
	client := &scriptedClient{responses: []string{`{}`, `{}`, `{}`}}

	input := bundleInput()
	input.Fallback = true
	b, err := GenerateBundle(context.Background(), client, testPrompts(t), input)
	require.NoError(t, err)
	assert.Contains(t, b.PostMortem, "Commit 8a2f4c9 dropped the retry wrapper.")
	assert.Contains(t, b.PRDiff, "Restore the wrapper")
	assert.Contains(t, b.SlackSummary, "v2.3.1")
	assert.LessOrEqual(t, len(b.SlackSummary), 500)
}

func TestGenerateBundle_PermanentErrorNotRetried(t *testing.T) {
	client := &scriptedClient{errs: []error{eris.New("invalid request")}}

	_, err := GenerateBundle(context.Background(), client, testPrompts(t), bundleInput())
	require.Error(t, err)
	assert.Len(t, client.requests, 1)
}
