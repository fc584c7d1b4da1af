// Package extract finds the references one file makes to other files.
//
// Most authored formats embed references inline as "guid: <id>". Node graph
// documents carry the same key inside JSON strings, escaped once or, for
// nested serialized layers, three times. Shader sources additionally
// reference other files through include directives and custom editor class
// names.
package extract

import (
	"bytes"
	"path"
	"regexp"
	"strings"

	"github.com/agentpkg/assetgraph/pkg/filetype"
)

const (
	// ProjectPrefix is the folder package-relative paths start with.
	ProjectPrefix = "Assets/"
	// ExternalPrefix is the read-only root of externally managed packages.
	// Includes pointing there cannot be attributed to a cataloged file.
	ExternalPrefix = "Packages/"
	// CodeExt is the extension named references are looked up with.
	CodeExt = "cs"
)

var (
	identifierKey = regexp.MustCompile(`guid:\s*([0-9a-fA-F]{32})`)
	// \"guid\": \"<id>\"
	graphKey = regexp.MustCompile(`\\"guid\\"\s*:\s*\\"([0-9a-fA-F]{32})\\"`)
	// \\\"guid\\\": \\\"<id>\\\"
	nestedGraphKey = regexp.MustCompile(`\\\\\\"guid\\\\\\"\s*:\s*\\\\\\"([0-9a-fA-F]{32})\\\\\\"`)

	includeDirective = regexp.MustCompile(`#include(?:_with_pragmas)?\s+"([^"]+)"`)
	editorDirective  = regexp.MustCompile(`CustomEditor(?:ForRenderPipeline)?\s+"([\w.]+)"`)
)

// Identifiers returns the distinct identifiers referenced by content in
// first-seen order. Graph types try the escaped forms first and fall back
// to the plain key when neither matches.
func Identifiers(content string, t filetype.Type) []string {
	if t.Has(filetype.Graph) {
		if ids := GraphIdentifiers(content); len(ids) > 0 {
			return ids
		}
		if ids := NestedGraphIdentifiers(content); len(ids) > 0 {
			return ids
		}
	}
	return KeyIdentifiers(content)
}

// KeyIdentifiers matches "guid: <id>" anywhere in content.
func KeyIdentifiers(content string) []string {
	return submatches(identifierKey, content)
}

// GraphIdentifiers matches references escaped once inside a JSON string.
func GraphIdentifiers(content string) []string {
	return submatches(graphKey, content)
}

// NestedGraphIdentifiers matches references serialized inside a JSON string
// that is itself inside a JSON string.
func NestedGraphIdentifiers(content string) []string {
	return submatches(nestedGraphKey, content)
}

// IncludePaths returns the package-relative paths of the files content
// includes. Relative includes are resolved against the directory of
// containingPath. Includes into ExternalPrefix are skipped.
func IncludePaths(content, containingPath string) []string {
	dir := path.Dir(containingPath)

	var out []string
	seen := make(map[string]bool)
	for _, raw := range submatches(includeDirective, content) {
		p := strings.ReplaceAll(raw, `\`, "/")
		for strings.HasPrefix(p, "./") {
			p = strings.TrimPrefix(p, "./")
		}
		if p == "" || strings.HasPrefix(p, ExternalPrefix) || strings.HasPrefix(p, "/") {
			continue
		}
		if !strings.HasPrefix(p, ProjectPrefix) {
			p = path.Join(dir, p)
		}
		p = path.Clean(p)
		if strings.HasPrefix(p, "../") || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// NamedReferences returns the class names of custom editors declared in
// content, reduced to their last dotted segment.
func NamedReferences(content string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range submatches(editorDirective, content) {
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// CodeFileName is the file name a named reference is looked up as.
func CodeFileName(name string) string {
	return name + "." + CodeExt
}

// Embedded reports which of names occur verbatim inside data, in the order
// given. It recovers references binary containers keep as plain strings.
func Embedded(data []byte, names []string) []string {
	var out []string
	for _, name := range names {
		if name == "" {
			continue
		}
		if bytes.Contains(data, []byte(name)) {
			out = append(out, name)
		}
	}
	return out
}

func submatches(re *regexp.Regexp, content string) []string {
	matches := re.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, m[1])
	}
	return out
}
