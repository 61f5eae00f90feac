package agents

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CodeValidation is the structural project check run during finalization.
// Ran separates "checks executed" from "checks skipped": the confidence
// score only moves when the validator actually ran.
type CodeValidation struct {
	Ran         bool     `json:"ran"`
	Passed      bool     `json:"passed"`
	Errors      []string `json:"errors,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ValidateProjectCode runs static structure checks against the generated
// project: required directories, manifests, and manifest fields for the
// stack in use. Project types without stack-specific rules only get the
// directory-exists check.
func ValidateProjectCode(projectType, root string) CodeValidation {
	v := CodeValidation{Ran: true}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		v.Errors = append(v.Errors, "project directory does not exist: "+root)
		return v
	}
	pt := strings.ToLower(projectType)
	switch {
	case strings.Contains(pt, "flutter"):
		validateFlutter(root, &v)
	case strings.Contains(pt, "android"):
		validateAndroid(root, &v)
	case strings.Contains(pt, "ios"):
		validateIOS(root, &v)
	case isWebProjectType(pt):
		validateWeb(root, &v)
	}
	v.Passed = len(v.Errors) == 0
	return v
}

func isWebProjectType(pt string) bool {
	for _, marker := range []string{"web", "react", "vue", "angular", "svelte", "next"} {
		if strings.Contains(pt, marker) {
			return true
		}
	}
	return false
}

func validateWeb(root string, v *CodeValidation) {
	for _, dir := range []string{"src", "public"} {
		if !dirExists(filepath.Join(root, dir)) {
			v.Errors = append(v.Errors, "missing required directory: "+dir)
		}
	}

	pkgPath := filepath.Join(root, "package.json")
	data, err := os.ReadFile(pkgPath)
	if err != nil {
		v.Errors = append(v.Errors, "package.json not found")
	} else {
		var pkg map[string]json.RawMessage
		if json.Unmarshal(data, &pkg) != nil {
			v.Errors = append(v.Errors, "package.json is not valid JSON")
		} else {
			for _, field := range []string{"name", "version"} {
				if _, ok := pkg[field]; !ok {
					v.Errors = append(v.Errors, "package.json missing field: "+field)
				}
			}
			var scripts map[string]string
			if raw, ok := pkg["scripts"]; ok && json.Unmarshal(raw, &scripts) == nil {
				for _, script := range []string{"start", "build", "test"} {
					if _, ok := scripts[script]; !ok {
						v.Suggestions = append(v.Suggestions, "add a \""+script+"\" script to package.json")
					}
				}
			} else {
				v.Warnings = append(v.Warnings, "package.json has no scripts section")
			}
			if _, ok := pkg["dependencies"]; !ok {
				v.Warnings = append(v.Warnings, "package.json declares no dependencies")
			}
		}
	}

	entries := []string{"src/index.js", "src/main.js", "src/index.ts", "src/main.ts", "src/index.tsx", "src/main.tsx"}
	found := false
	for _, entry := range entries {
		if fileExists(filepath.Join(root, filepath.FromSlash(entry))) {
			found = true
			break
		}
	}
	if !found {
		v.Warnings = append(v.Warnings, "no entry point found under src/ (index or main)")
	}
}

func validateFlutter(root string, v *CodeValidation) {
	for _, dir := range []string{"lib", "test"} {
		if !dirExists(filepath.Join(root, dir)) {
			v.Errors = append(v.Errors, "missing required directory: "+dir)
		}
	}
	data, err := os.ReadFile(filepath.Join(root, "pubspec.yaml"))
	if err != nil {
		v.Errors = append(v.Errors, "pubspec.yaml not found")
	} else {
		content := string(data)
		for _, field := range []string{"name:", "description:", "version:"} {
			if !strings.Contains(content, field) {
				v.Errors = append(v.Errors, "pubspec.yaml missing field: "+strings.TrimSuffix(field, ":"))
			}
		}
		if !strings.Contains(content, "sdk: flutter") {
			v.Warnings = append(v.Warnings, "pubspec.yaml does not declare the flutter sdk")
		}
		if !strings.Contains(content, "dependencies:") {
			v.Warnings = append(v.Warnings, "pubspec.yaml has no dependencies section")
		}
	}
	if !fileExists(filepath.Join(root, "lib", "main.dart")) {
		v.Errors = append(v.Errors, "lib/main.dart not found")
	}
}

func validateAndroid(root string, v *CodeValidation) {
	if !fileExists(filepath.Join(root, "app", "src", "main", "AndroidManifest.xml")) {
		v.Errors = append(v.Errors, "app/src/main/AndroidManifest.xml not found")
	}
	if !fileExists(filepath.Join(root, "app", "build.gradle")) {
		v.Errors = append(v.Errors, "app/build.gradle not found")
	}
	for _, dir := range []string{"app/src/main", "app/src/main/java", "app/src/main/res"} {
		if !dirExists(filepath.Join(root, filepath.FromSlash(dir))) {
			v.Warnings = append(v.Warnings, "missing directory: "+dir)
		}
	}
}

func validateIOS(root string, v *CodeValidation) {
	found := false
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == "Info.plist" {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	if !found {
		v.Warnings = append(v.Warnings, "no Info.plist found")
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
