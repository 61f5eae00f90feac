// Package scaffold seeds new project workspaces with the minimal files the
// chosen stack expects, so generated code lands in a buildable tree.
package scaffold

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lexcodex/autoforge/framework"
)

// manifestProjectTypes are the stacks whose toolchains demand a manifest
// before anything else works.
var manifestProjectTypes = map[string]bool{
	"web": true, "web-react": true, "web-vue": true, "web-nextjs": true,
	"web-angular": true, "web-svelte": true, "desktop-electron": true,
}

// NeedsManifest reports whether the project type requires a package.json.
func NeedsManifest(projectType string) bool {
	return manifestProjectTypes[strings.ToLower(projectType)]
}

// EnsureManifest writes a starter package.json when the stack needs one and
// none exists yet. Existing manifests are never touched.
func EnsureManifest(ws *framework.Workspace, projectName, projectType string, tech framework.Technology) error {
	if !NeedsManifest(projectType) {
		return nil
	}
	if ws.Exists("package.json") {
		return nil
	}
	manifest := map[string]interface{}{
		"name":    sanitizeName(projectName),
		"version": "0.1.0",
		"private": true,
		"scripts": manifestScripts(tech),
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return ws.WriteFile("package.json", string(data)+"\n")
}

func manifestScripts(tech framework.Technology) map[string]string {
	scripts := map[string]string{
		"build": "echo 'configure a build step'",
	}
	switch strings.ToLower(tech.Testing) {
	case "jest":
		scripts["test"] = "jest"
	case "vitest":
		scripts["test"] = "vitest run"
	case "jasmine":
		scripts["test"] = "jasmine"
	default:
		scripts["test"] = "echo 'no tests configured'"
	}
	return scripts
}

// sanitizeName lowers the name and replaces anything npm rejects.
func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "generated-project"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "generated-project"
	}
	return b.String()
}

// StarterFiles returns path/content pairs seeded for stacks that benefit
// from an entry-point stub. Unknown stacks get nothing.
func StarterFiles(projectType string, tech framework.Technology) map[string]string {
	switch strings.ToLower(tech.Language) {
	case "python":
		return map[string]string{
			"main.py":          "def main():\n    pass\n\n\nif __name__ == \"__main__\":\n    main()\n",
			"requirements.txt": "",
		}
	case "javascript", "typescript":
		if NeedsManifest(projectType) {
			return nil
		}
		return map[string]string{"index.js": "\"use strict\";\n"}
	default:
		return nil
	}
}

// SeedWorkspace writes starter files that do not already exist.
func SeedWorkspace(ws *framework.Workspace, projectType string, tech framework.Technology) error {
	for path, content := range StarterFiles(projectType, tech) {
		if ws.Exists(path) {
			continue
		}
		if err := ws.WriteFile(path, content); err != nil {
			return err
		}
	}
	return nil
}
