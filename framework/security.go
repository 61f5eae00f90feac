package framework

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// SecurityFinding records one suspected secret or key file.
type SecurityFinding struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Kind    string `json:"kind"`
	Detail  string `json:"detail"`
}

// SecurityReport aggregates scan results. Truncated is set when the scan
// stopped at its file cap.
type SecurityReport struct {
	Findings  []SecurityFinding `json:"findings"`
	Scanned   int               `json:"scanned"`
	Truncated bool              `json:"truncated"`
}

// SecurityGuard performs a static secret scan over workspace files. It is a
// pattern check, not a security boundary: it catches accidentally emitted
// credentials before the run is reported complete.
type SecurityGuard struct {
	workspace *Workspace
	maxFiles  int
}

// Secret patterns mirror the common accidental leaks: AWS access keys and
// inline api_key/secret assignments with plausible token lengths.
var secretPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"aws_access_key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"api_key_assignment", regexp.MustCompile(`(?i)api[_-]?key\s*[=:]\s*['"]?[A-Za-z0-9_\-]{12,}`)},
	{"secret_assignment", regexp.MustCompile(`(?i)secret\s*[=:]\s*['"]?[A-Za-z0-9_\-]{12,}`)},
}

// Key-material extensions are flagged regardless of content.
var keyMaterialExts = map[string]bool{
	".pem": true,
	".p12": true,
	".key": true,
}

var securitySkipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"vendor":       true,
	"__pycache__":  true,
	"venv":         true,
	".venv":        true,
}

// NewSecurityGuard builds a guard scanning at most maxFiles files (200 when
// zero).
func NewSecurityGuard(workspace *Workspace, maxFiles int) *SecurityGuard {
	if maxFiles <= 0 {
		maxFiles = 200
	}
	return &SecurityGuard{workspace: workspace, maxFiles: maxFiles}
}

// Scan walks the workspace and returns every finding. The walk is bounded:
// once the file cap is hit the report is marked truncated and the scan ends.
func (g *SecurityGuard) Scan() (*SecurityReport, error) {
	report := &SecurityReport{}
	root := g.workspace.Root()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if securitySkipDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if report.Scanned >= g.maxFiles {
			report.Truncated = true
			return fs.SkipAll
		}
		report.Scanned++
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if keyMaterialExts[strings.ToLower(filepath.Ext(path))] {
			report.Findings = append(report.Findings, SecurityFinding{
				File:   rel,
				Kind:   "key_material",
				Detail: fmt.Sprintf("key material file %s should not be committed", rel),
			})
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			// Unreadable files are skipped; the scan is advisory.
			return nil
		}
		report.Findings = append(report.Findings, scanContent(rel, string(data))...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("security scan: %w", err)
	}
	return report, nil
}

// scanContent applies the secret patterns line by line so findings carry a
// usable line number.
func scanContent(file, content string) []SecurityFinding {
	var findings []SecurityFinding
	for i, line := range strings.Split(content, "\n") {
		for _, pattern := range secretPatterns {
			if match := pattern.re.FindString(line); match != "" {
				findings = append(findings, SecurityFinding{
					File:   file,
					Line:   i + 1,
					Kind:   pattern.kind,
					Detail: fmt.Sprintf("possible %s near %q", pattern.kind, truncateDetail(match, 24)),
				})
			}
		}
	}
	return findings
}

func truncateDetail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
