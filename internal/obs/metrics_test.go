package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                         "/",
		"/metrics":                 "/metrics",
		"/api/tasks":               "/api/tasks",
		"/api/tasks/42":            "/api/tasks/:id",
		"/api/users/3/role":        "/api/users/:id/role",
		"/api/organizations/9":     "/api/organizations/:id",
		"/api/tasks?page=2":        "/api/tasks",
		"/api/tasks/42?limit=10":   "/api/tasks/:id",
		"/api/organizations/stats": "/api/organizations/stats",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
