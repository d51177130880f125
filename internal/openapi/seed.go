// Package openapi derives mock resource names from an OpenAPI 3 document.
package openapi

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// LoadResourceNames loads and validates the document at path and returns the
// resource names its paths describe.
func LoadResourceNames(ctx context.Context, path string) ([]string, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi schema: %w", err)
	}
	return ResourceNames(doc), nil
}

// ResourceNames returns the sorted, de-duplicated first path segment of every
// path in doc. A leading "mock" segment is skipped, as are templated
// segments such as "{id}".
func ResourceNames(doc *openapi3.T) []string {
	if doc == nil || doc.Paths == nil {
		return nil
	}

	seen := map[string]struct{}{}
	for path := range doc.Paths.Map() {
		if name := resourceFromPath(path); name != "" {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resourceFromPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) > 1 && strings.EqualFold(segments[0], "mock") {
		segments = segments[1:]
	}
	first := segments[0]
	if first == "" || strings.HasPrefix(first, "{") {
		return ""
	}
	return strings.ToLower(first)
}
