package faultline

import (
	"net/http"
	"testing"
)

func TestFilterHeaderMap_DefaultSensitive(t *testing.T) {
	in := map[string]string{
		"Authorization": "Bearer abc",
		"COOKIE":        "sid=1",
		"X-Api-Key":     "k",
		"x-auth-token":  "t",
		"Content-Type":  "application/json",
	}

	got := FilterHeaderMap(in, nil)

	for _, name := range []string{"Authorization", "COOKIE", "X-Api-Key", "x-auth-token"} {
		if got[name] != FilteredMarker {
			t.Errorf("%s = %q, want %s", name, got[name], FilteredMarker)
		}
	}
	if got["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q, want passthrough", got["Content-Type"])
	}
	if in["Authorization"] != "Bearer abc" {
		t.Error("FilterHeaderMap must not modify its input")
	}
}

func TestFilterHeaderMap_ExtraNames(t *testing.T) {
	got := FilterHeaderMap(map[string]string{"X-Tenant-Secret": "s", "X-Request-Id": "r"}, []string{"x-tenant-secret"})

	if got["X-Tenant-Secret"] != FilteredMarker {
		t.Error("extra header should be filtered case-insensitively")
	}
	if got["X-Request-Id"] != "r" {
		t.Error("other headers should pass through")
	}
}

func TestFilterHeaderMap_Nil(t *testing.T) {
	if got := FilterHeaderMap(nil, nil); got != nil {
		t.Errorf("FilterHeaderMap(nil) = %v, want nil", got)
	}
}

func TestFilterHeaders_FlattensValues(t *testing.T) {
	h := http.Header{}
	h.Add("Accept", "text/html")
	h.Add("Accept", "application/json")
	h.Set("Cookie", "a=b")

	got := FilterHeaders(h, nil)

	if got["Accept"] != "text/html, application/json" {
		t.Errorf("Accept = %q", got["Accept"])
	}
	if got["Cookie"] != FilteredMarker {
		t.Errorf("Cookie = %q, want %s", got["Cookie"], FilteredMarker)
	}
}
