package agents

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lexcodex/autoforge/framework"
)

// VerificationReport is the completion verifier's cross-check of delivered
// files against the plan's expected features.
type VerificationReport struct {
	AllComplete bool                `json:"all_complete"`
	Verified    []string            `json:"verified"`
	Missing     []string            `json:"missing"`
	Confidence  float64             `json:"confidence"`
	Evidence    map[string][]string `json:"evidence,omitempty"`
}

var wordPattern = regexp.MustCompile(`\b[a-z]+\b`)

// Stopwords are generic builder vocabulary that carries no signal about a
// specific feature.
var featureStopwords = map[string]bool{
	"create": true, "implement": true, "add": true, "build": true,
	"make": true, "setup": true, "set": true, "the": true, "and": true,
	"for": true, "with": true, "user": true, "users": true, "system": true,
	"feature": true, "features": true, "app": true, "application": true,
	"page": true, "support": true, "basic": true, "new": true, "all": true,
}

var sourceExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".go": true, ".java": true, ".kt": true, ".swift": true, ".dart": true,
	".rb": true, ".php": true, ".c": true, ".cc": true, ".cpp": true,
	".h": true, ".cs": true, ".rs": true, ".vue": true, ".svelte": true,
	".html": true, ".css": true, ".json": true, ".yaml": true, ".yml": true,
	".md": true,
}

// The artifacts directory is excluded because the engine's own state and
// pipeline files quote the plan text verbatim; counting them as evidence
// would verify every feature unconditionally.
var verifierSkipDirs = map[string]bool{
	"node_modules": true, "__pycache__": true, ".git": true,
	"venv": true, ".venv": true, "dist": true, "build": true, "vendor": true,
	"artifacts": true, "autoforge_cfg": true,
}

// Setup-flavored task titles are excluded from the feature list because
// scaffolding tasks describe process, not deliverables.
var setupTitlePattern = regexp.MustCompile(`(?i)\b(initialize|init|setup|set up|scaffold|configure|structure|documentation|document)\b`)

// ExtractExpectedFeatures pulls the checkable feature list out of a plan:
// primary and secondary goals, functional requirements, and non-setup task
// titles, de-duplicated case-insensitively with order preserved.
func ExtractExpectedFeatures(plan *framework.PlanningOutput) []string {
	if plan == nil {
		return nil
	}
	var features []string
	seen := map[string]bool{}
	push := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		key := strings.ToLower(s)
		if seen[key] {
			return
		}
		seen[key] = true
		features = append(features, s)
	}
	push(plan.Understanding.PrimaryGoal)
	for _, goal := range plan.Understanding.SecondaryGoals {
		push(goal)
	}
	for _, req := range plan.Requirements.Functional {
		push(req)
	}
	for _, task := range plan.Tasks {
		if setupTitlePattern.MatchString(task.Title) {
			continue
		}
		push(task.Title)
	}
	return features
}

// featureKeywords extracts the stopword-filtered lowercase words longer
// than two characters.
func featureKeywords(feature string) []string {
	var keywords []string
	for _, word := range wordPattern.FindAllString(strings.ToLower(feature), -1) {
		if len(word) <= 2 || featureStopwords[word] {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}

// VerifyFeatures scans source-like workspace files and marks a feature
// verified when at least half its keywords appear in one file's content, or
// when any keyword matches a token of a filename stem. Confidence is
// verified/total, and 1.0 when there was nothing to check.
func VerifyFeatures(features []string, workspaceDir string) *VerificationReport {
	report := &VerificationReport{Evidence: map[string][]string{}}
	if len(features) == 0 {
		report.AllComplete = true
		report.Confidence = 1.0
		return report
	}
	files := collectSourceFiles(workspaceDir)
	for _, feature := range features {
		keywords := featureKeywords(feature)
		evidence := findEvidence(keywords, files)
		if len(evidence) > 0 {
			report.Verified = append(report.Verified, feature)
			report.Evidence[feature] = evidence
		} else {
			report.Missing = append(report.Missing, feature)
		}
	}
	report.AllComplete = len(report.Missing) == 0
	report.Confidence = float64(len(report.Verified)) / float64(len(features))
	return report
}

type sourceFile struct {
	rel     string
	stem    []string
	content string
}

func collectSourceFiles(root string) []sourceFile {
	var files []sourceFile
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if verifierSkipDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if !sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		stemText := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		stem := wordPattern.FindAllString(strings.ToLower(strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(stemText)), -1)
		files = append(files, sourceFile{rel: rel, stem: stem, content: strings.ToLower(string(data))})
		return nil
	})
	return files
}

// findEvidence returns the files supporting a feature, or nil when no file
// clears either threshold.
func findEvidence(keywords []string, files []sourceFile) []string {
	if len(keywords) == 0 {
		return nil
	}
	var evidence []string
	for _, file := range files {
		hits := 0
		for _, keyword := range keywords {
			if strings.Contains(file.content, keyword) {
				hits++
			}
		}
		if float64(hits) >= float64(len(keywords))*0.5 {
			evidence = append(evidence, file.rel)
			continue
		}
		for _, keyword := range keywords {
			if containsToken(file.stem, keyword) {
				evidence = append(evidence, file.rel)
				break
			}
		}
	}
	return evidence
}

func containsToken(tokens []string, keyword string) bool {
	for _, token := range tokens {
		if token == keyword {
			return true
		}
	}
	return false
}

// GenerateMissingTasks emits one remediation task per missing feature,
// chained linearly so they run in order after existing work.
func GenerateMissingTasks(missing []string, nextID int) []*framework.Task {
	tasks := make([]*framework.Task, 0, len(missing))
	for i, feature := range missing {
		task := &framework.Task{
			ID:          nextID + i,
			Title:       "Complete missing feature: " + feature,
			Description: "The completion check found no evidence of \"" + feature + "\" in the workspace. Implement it.",
			Status:      framework.TaskPending,
		}
		if i > 0 {
			task.Dependencies = []int{nextID + i - 1}
		}
		tasks = append(tasks, task)
	}
	return tasks
}
