package model

import "time"

// SourceKind identifies which corpus a resolved citation points at.
type SourceKind string

const (
	SourceKindChat     SourceKind = "chat"
	SourceKindCommits  SourceKind = "commits"
	SourceKindTickets  SourceKind = "tickets"
	SourceKindDocument SourceKind = "document"
)

// ChatMessage is a single team chat record.
type ChatMessage struct {
	Date    string `json:"date"`
	Channel string `json:"channel"`
	Author  string `json:"author"`
	Message string `json:"message"`
}

// Commit is a single version-control history record.
type Commit struct {
	Hash      string `json:"hash"`
	ShortHash string `json:"short_hash"`
	Date      string `json:"date"`
	Author    string `json:"author"`
	Message   string `json:"message"`
	Change    string `json:"change"`
	Diff      string `json:"diff,omitempty"`
}

// Ticket is a single issue-tracker record.
type Ticket struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// Dataset bundles the four corpora the pipeline reasons over. Any field may
// be zero-valued; a zero field means that source is not consulted.
type Dataset struct {
	Chat         []ChatMessage `json:"chat,omitempty"`
	Commits      []Commit      `json:"commits,omitempty"`
	Tickets      []Ticket      `json:"tickets,omitempty"`
	Docs         string        `json:"docs,omitempty"`
	ReleaseNotes string        `json:"release_notes,omitempty"`
}

// Clone returns a shallow copy. Slice headers are copied so per-request
// overrides never mutate the base dataset.
func (d Dataset) Clone() Dataset {
	out := d
	if d.Chat != nil {
		out.Chat = append([]ChatMessage(nil), d.Chat...)
	}
	if d.Commits != nil {
		out.Commits = append([]Commit(nil), d.Commits...)
	}
	if d.Tickets != nil {
		out.Tickets = append([]Ticket(nil), d.Tickets...)
	}
	return out
}

// VersionInference is the output of the version inference stage.
type VersionInference struct {
	Version       string   `json:"inferred_version"`
	Confidence    float64  `json:"confidence"`
	Evidence      []string `json:"evidence"`
	AmbiguityNote string   `json:"ambiguity_note"`
}

// CausalFinding is the output of the causal reasoning stage. All fields are
// best-effort: the model may omit any of them and defaults apply.
type CausalFinding struct {
	RootCause      string   `json:"root_cause"`
	Contradictions []string `json:"contradictions"`
	Risk           string   `json:"risk"`
	FixSteps       []string `json:"fix_steps"`
	Verification   string   `json:"verification"`
	Sources        []string `json:"sources"`
	ReasoningTrace []string `json:"reasoning_trace"`
	TruthGaps      []string `json:"truth_gaps"`
}

// SourceDetail is a resolved citation, ready for a UI citation pop-up.
type SourceDetail struct {
	Kind    SourceKind `json:"type"`
	Label   string     `json:"label"`
	Content string     `json:"content"`
}

// AskResult is the assembled answer returned by both pipeline entry points.
type AskResult struct {
	Query           string         `json:"query"`
	InferredVersion string         `json:"inferred_version"`
	Confidence      float64        `json:"confidence"`
	Evidence        []string       `json:"evidence"`
	AmbiguityNote   string         `json:"ambiguity_note"`
	RootCause       string         `json:"root_cause"`
	Contradictions  []string       `json:"contradictions"`
	Risk            string         `json:"risk"`
	FixSteps        []string       `json:"fix_steps"`
	Verification    string         `json:"verification"`
	Sources         []string       `json:"sources"`
	SourceDetails   []SourceDetail `json:"source_details"`
	ReasoningTrace  []string       `json:"reasoning_trace"`
	TruthGaps       []string       `json:"truth_gaps"`
}

// Normalize replaces nil slices with empty ones so the wire representation
// is always [] rather than null.
func (r *AskResult) Normalize() {
	if r.Evidence == nil {
		r.Evidence = []string{}
	}
	if r.Contradictions == nil {
		r.Contradictions = []string{}
	}
	if r.FixSteps == nil {
		r.FixSteps = []string{}
	}
	if r.Sources == nil {
		r.Sources = []string{}
	}
	if r.SourceDetails == nil {
		r.SourceDetails = []SourceDetail{}
	}
	if r.ReasoningTrace == nil {
		r.ReasoningTrace = []string{}
	}
	if r.TruthGaps == nil {
		r.TruthGaps = []string{}
	}
}

// Finding is an archived pipeline run.
type Finding struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Result    AskResult `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}
