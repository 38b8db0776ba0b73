package router

import (
	"testing"

	"github.com/searchktools/zerohttp/core/http"
)

var noop http.Handler = func(ctx *http.Context) error { return nil }

// TestRouterStatic tests basic static routing
func TestRouterStatic(t *testing.T) {
	r := New()
	r.Add("GET", "/", noop)
	r.Add("GET", "/hello", noop)
	r.Add("GET", "/hello/world", noop)

	tests := []struct {
		path        string
		shouldMatch bool
	}{
		{"/", true},
		{"/hello", true},
		{"/hello/world", true},
		{"/notfound", false},
		{"/hello/worl", false},
	}

	for _, tt := range tests {
		h := r.Find("GET", tt.path, nil)
		if (h != nil) != tt.shouldMatch {
			t.Errorf("path %s: expected match=%v, got match=%v", tt.path, tt.shouldMatch, h != nil)
		}
	}
}

// TestRouterMethods tests that methods are routed independently
func TestRouterMethods(t *testing.T) {
	r := New()
	r.Add("GET", "/res", noop)
	r.Add("POST", "/res", noop)

	if r.Find("GET", "/res", nil) == nil {
		t.Error("GET /res should match")
	}
	if r.Find("POST", "/res", nil) == nil {
		t.Error("POST /res should match")
	}
	if r.Find("DELETE", "/res", nil) != nil {
		t.Error("DELETE /res should not match")
	}
}

// TestRouterParams tests :param capture
func TestRouterParams(t *testing.T) {
	r := New()
	r.Add("GET", "/users/:id", noop)
	r.Add("GET", "/users/:id/posts/:post", noop)

	params := map[string]string{}
	h := r.Find("GET", "/users/42", func(k, v string) { params[k] = v })
	if h == nil {
		t.Fatal("expected a match for /users/42")
	}
	if params["id"] != "42" {
		t.Errorf("expected id=42, got %q", params["id"])
	}

	params = map[string]string{}
	h = r.Find("GET", "/users/7/posts/99", func(k, v string) { params[k] = v })
	if h == nil {
		t.Fatal("expected a match for /users/7/posts/99")
	}
	if params["id"] != "7" || params["post"] != "99" {
		t.Errorf("expected id=7 post=99, got %v", params)
	}
}

// TestRouterPriority tests that exact routes beat parameter routes
func TestRouterPriority(t *testing.T) {
	r := New()

	var matched string
	r.Add("GET", "/user/admin", func(ctx *http.Context) error { matched = "exact"; return nil })
	r.Add("GET", "/user/:id", func(ctx *http.Context) error { matched = "param"; return nil })

	if h := r.Find("GET", "/user/admin", nil); h != nil {
		h(nil)
		if matched != "exact" {
			t.Errorf("expected the exact route, got %s", matched)
		}
	} else {
		t.Error("no match for /user/admin")
	}

	if h := r.Find("GET", "/user/123", nil); h != nil {
		h(nil)
		if matched != "param" {
			t.Errorf("expected the param route, got %s", matched)
		}
	} else {
		t.Error("no match for /user/123")
	}
}

// TestRouterCatchAll tests *filepath capture
func TestRouterCatchAll(t *testing.T) {
	r := New()
	r.Add("GET", "/static/*filepath", noop)

	var captured string
	h := r.Find("GET", "/static/css/app.css", func(k, v string) {
		if k == "filepath" {
			captured = v
		}
	})
	if h == nil {
		t.Fatal("expected a catch-all match")
	}
	if captured != "css/app.css" {
		t.Errorf("expected css/app.css, got %q", captured)
	}
}

// Benchmarks

func BenchmarkRouterStatic(b *testing.B) {
	r := New()
	r.Add("GET", "/hello/world", noop)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Find("GET", "/hello/world", nil)
	}
}

func BenchmarkRouterParam(b *testing.B) {
	r := New()
	r.Add("GET", "/user/:id", noop)
	setParam := func(k, v string) {}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Find("GET", "/user/123", setParam)
	}
}
