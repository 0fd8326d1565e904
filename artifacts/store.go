// Package artifacts persists finished runs to a directory tree:
//
//	<root>/<workflow_id>/
//	    manifest.yaml
//	    plan.md
//	    README.md
//	    <solution file>
//	    <test file>
//	    attempts/attempt_<n><ext>
//	    attempts/attempt_<n>.feedback.md
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/martinemde/codecrew/workflow"
)

const (
	ManifestFile = "manifest.yaml"
	ReadmeFile   = "README.md"
	PlanFile     = "plan.md"
	AttemptsDir  = "attempts"
)

// Store writes run results under root on fs.
type Store struct {
	fs           afero.Fs
	root         string
	saveAttempts bool
}

// Option configures a Store.
type Option func(*Store)

// WithAttempts controls whether every attempt's code and feedback is kept,
// not only the final solution.
func WithAttempts(save bool) Option {
	return func(s *Store) {
		s.saveAttempts = save
	}
}

// NewStore creates a store rooted at root.
func NewStore(fs afero.Fs, root string, opts ...Option) *Store {
	s := &Store{fs: fs, root: root, saveAttempts: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOSStore creates a store on the local filesystem.
func NewOSStore(root string, opts ...Option) *Store {
	return NewStore(afero.NewOsFs(), root, opts...)
}

// Root returns the directory runs are written under.
func (s *Store) Root() string {
	return s.root
}

// RunDir returns the directory for a workflow ID.
func (s *Store) RunDir(workflowID string) string {
	return filepath.Join(s.root, workflowID)
}

// checkWorkflowID rejects IDs that would name a path outside the run's own
// directory.
func checkWorkflowID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid workflow id %q", id)
	}
	return nil
}

// Save writes res and returns the run directory. Saving the same run twice
// overwrites the earlier files.
func (s *Store) Save(res *workflow.Result) (string, error) {
	if res == nil {
		return "", errors.New("nothing to save")
	}
	if err := checkWorkflowID(res.WorkflowID); err != nil {
		return "", err
	}
	dir := s.RunDir(res.WorkflowID)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}

	files := map[string]string{}
	if plan := strings.TrimSpace(res.Plan); plan != "" {
		files[PlanFile] = plan + "\n"
	}
	if res.Documentation != "" {
		files[ReadmeFile] = res.Documentation
	}
	if !res.Code.Empty() {
		files[solutionName(res.Code)] = res.Code.Source
	}
	if last, ok := lastTests(res.Attempts); ok {
		files[path.Base(last.TestFile)] = last.TestSource
	}
	if s.saveAttempts {
		for _, a := range res.Attempts {
			if !a.Code.Empty() {
				files[path.Join(AttemptsDir, fmt.Sprintf("attempt_%d%s", a.Iteration, extension(a.Code)))] = a.Code.Source
			}
			if a.Feedback != nil {
				files[path.Join(AttemptsDir, fmt.Sprintf("attempt_%d.feedback.md", a.Iteration))] = *a.Feedback + "\n"
			}
		}
	}

	manifest, err := yaml.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	files[ManifestFile] = string(manifest)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.write(filepath.Join(dir, filepath.FromSlash(name)), files[name]); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func (s *Store) write(name, content string) error {
	if err := s.fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(name), err)
	}
	if err := afero.WriteFile(s.fs, name, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Load reads the manifest of a saved run. Source code is not part of the
// manifest; it is read back from the solution file.
func (s *Store) Load(workflowID string) (*workflow.Result, error) {
	if err := checkWorkflowID(workflowID); err != nil {
		return nil, err
	}
	dir := s.RunDir(workflowID)
	data, err := afero.ReadFile(s.fs, filepath.Join(dir, ManifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("run %s not found in %s", workflowID, s.root)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var res workflow.Result
	if err := yaml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if res.Code.FileName != "" {
		if src, err := afero.ReadFile(s.fs, filepath.Join(dir, solutionName(res.Code))); err == nil {
			res.Code.Source = string(src)
		}
	}
	if doc, err := afero.ReadFile(s.fs, filepath.Join(dir, ReadmeFile)); err == nil {
		res.Documentation = string(doc)
	}
	return &res, nil
}

// List returns the IDs of saved runs, oldest first. Workflow IDs are ULIDs,
// so lexical order is creation order.
func (s *Store) List() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if ok, _ := afero.Exists(s.fs, filepath.Join(s.root, e.Name(), ManifestFile)); ok {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func solutionName(code workflow.CodeArtifact) string {
	if code.FileName != "" {
		return path.Base(code.FileName)
	}
	return "solution" + extension(code)
}

func extension(code workflow.CodeArtifact) string {
	if ext := path.Ext(code.FileName); ext != "" {
		return ext
	}
	return ".txt"
}

// lastTests returns the most recent attempt that carried generated tests.
func lastTests(attempts []workflow.AttemptRecord) (workflow.TestOutcome, bool) {
	for i := len(attempts) - 1; i >= 0; i-- {
		if o := attempts[i].Outcome; o.TestFile != "" && o.TestSource != "" {
			return o, true
		}
	}
	return workflow.TestOutcome{}, false
}
