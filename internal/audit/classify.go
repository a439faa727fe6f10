package audit

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// skipPatterns lists endpoint substrings that never produce audit entries.
var skipPatterns = []string{
	"/api/auth/login",
	"/api/auth/register",
	"/api/health",
	"/api/metrics",
	"/healthz",
	"/readyz",
	"/metrics",
}

// Classify derives (action, resource) from the request method and URL by
// substring matching. The boolean is false for endpoints that should not be
// audited; an unrecognized URL is a silent skip, not an error.
func Classify(method, url string) (Action, Resource, bool) {
	if shouldSkip(url) {
		return "", "", false
	}

	// /auth/profile before /users: both substrings can appear in one URL.
	if strings.Contains(url, "/auth/profile") {
		return ActionRead, ResourceAuth, true
	}

	var resource Resource
	switch {
	case strings.Contains(url, "/tasks"):
		resource = ResourceTask
	case strings.Contains(url, "/users"):
		resource = ResourceUser
	case strings.Contains(url, "/organizations"):
		resource = ResourceOrganization
	default:
		return "", "", false
	}

	switch method {
	case http.MethodPost:
		return ActionCreate, resource, true
	case http.MethodGet:
		return ActionRead, resource, true
	case http.MethodPatch, http.MethodPut:
		return ActionUpdate, resource, true
	case http.MethodDelete:
		return ActionDelete, resource, true
	}
	return "", "", false
}

func shouldSkip(url string) bool {
	for _, pattern := range skipPatterns {
		if strings.Contains(url, pattern) {
			return true
		}
	}
	return false
}

var numericSegment = regexp.MustCompile(`/(\d+)(?:/|$|\?)`)

// ResourceID extracts the subject id: the first purely-numeric path segment
// of the URL, falling back to a numeric "id" field in the JSON response
// body, else nil.
func ResourceID(url string, responseBody []byte) *int64 {
	if m := numericSegment.FindStringSubmatch(url); m != nil {
		if id, ok := parseID(m[1]); ok {
			return &id
		}
	}
	if len(responseBody) > 0 {
		var payload struct {
			ID *int64 `json:"id"`
		}
		if err := json.Unmarshal(responseBody, &payload); err == nil && payload.ID != nil {
			return payload.ID
		}
	}
	return nil
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, id > 0
}
