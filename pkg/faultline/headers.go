package faultline

import (
	"net/http"
	"strings"
)

// defaultSensitiveHeaders are always redacted from request descriptors.
var defaultSensitiveHeaders = []string{
	"authorization",
	"cookie",
	"x-api-key",
	"x-auth-token",
}

// FilterHeaders flattens h and replaces every sensitive header value with FilteredMarker.
// Multi-valued headers are joined with ", ".
func FilterHeaders(h http.Header, extra []string) map[string]string {
	if h == nil {
		return nil
	}
	flat := make(map[string]string, len(h))
	for name, values := range h {
		flat[name] = strings.Join(values, ", ")
	}
	return FilterHeaderMap(flat, extra)
}

// FilterHeaderMap is FilterHeaders for headers already flattened to one value per name.
// Name comparison is case-insensitive for both the built-in and the extra names.
func FilterHeaderMap(headers map[string]string, extra []string) map[string]string {
	if headers == nil {
		return nil
	}
	sensitive := make(map[string]struct{}, len(defaultSensitiveHeaders)+len(extra))
	for _, name := range defaultSensitiveHeaders {
		sensitive[name] = struct{}{}
	}
	for _, name := range extra {
		sensitive[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	out := make(map[string]string, len(headers))
	for name, value := range headers {
		if _, ok := sensitive[strings.ToLower(name)]; ok {
			out[name] = FilteredMarker
			continue
		}
		out[name] = value
	}
	return out
}
