// Package prompts loads prompt templates and performs placeholder
// substitution. Templates ship embedded in the binary; a prompts directory
// on disk overrides them, with an optional manifest.yaml remapping template
// names to files.
package prompts

import (
	"embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.txt
var embedded embed.FS

// Template names known to the store.
const (
	InferVersion            = "infer_version"
	CausalReasoning         = "causal_reasoning"
	VerifyContradiction     = "verify_contradiction"
	EmitDocs                = "emit_docs"
	EmitReconciliationPatch = "emit_reconciliation_patch"
	ReconciliationBundle    = "reconciliation_bundle"
)

var knownTemplates = map[string]bool{
	InferVersion:            true,
	CausalReasoning:         true,
	VerifyContradiction:     true,
	EmitDocs:                true,
	EmitReconciliationPatch: true,
	ReconciliationBundle:    true,
}

// manifest is the optional manifest.yaml in a prompts directory.
type manifest struct {
	Name      string            `yaml:"name"`
	Templates map[string]string `yaml:"templates"`
}

// Store resolves template names to text. Lookup order per template: file
// named by the manifest, <name>.txt in the directory, embedded default.
type Store struct {
	dir   string
	files map[string]string // template name -> file name from manifest
}

// NewStore creates a Store reading overrides from dir. An empty dir means
// embedded templates only. A missing manifest is fine; a malformed one is
// an error.
func NewStore(dir string) (*Store, error) {
	s := &Store{dir: dir, files: map[string]string{}}
	if dir == "" {
		return s, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, eris.Wrap(err, "prompts: read manifest")
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "prompts: parse manifest")
	}
	for name, file := range m.Templates {
		if !knownTemplates[name] {
			return nil, eris.Errorf("prompts: manifest names unknown template %q", name)
		}
		s.files[name] = file
	}
	return s, nil
}

// Render loads the named template and substitutes {{key}} placeholders.
// Unknown template names are an error. A known template whose file is
// missing everywhere renders as an empty string, matching the best-effort
// loader this replaces.
func (s *Store) Render(name string, vars map[string]string) (string, error) {
	if !knownTemplates[name] {
		return "", eris.Errorf("prompts: unknown template %q", name)
	}

	text := s.load(name)
	for key, value := range vars {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	return text, nil
}

func (s *Store) load(name string) string {
	if s.dir != "" {
		file := s.files[name]
		if file == "" {
			file = name + ".txt"
		}
		if data, err := os.ReadFile(filepath.Join(s.dir, file)); err == nil {
			return string(data)
		}
	}
	if data, err := embedded.ReadFile("templates/" + name + ".txt"); err == nil {
		return string(data)
	}
	return ""
}
