package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestContextLiftsHeaders(t *testing.T) {
	var gotRuntime, gotActor, gotActorType string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRuntime = runtimePathFrom(r)
		gotActor, gotActorType = actorFrom(r)
	})

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("x-signet-runtime-path", "/repo/src/main.go")
	req.Header.Set("x-signet-actor", "alice")
	req.Header.Set("x-signet-actor-type", "user")

	requestContext(next).ServeHTTP(httptest.NewRecorder(), req)

	if gotRuntime != "/repo/src/main.go" {
		t.Errorf("runtimePathFrom = %q", gotRuntime)
	}
	if gotActor != "alice" {
		t.Errorf("actorFrom actor = %q", gotActor)
	}
	if gotActorType != "user" {
		t.Errorf("actorFrom actorType = %q", gotActorType)
	}
}

func TestClientVersionCheckMatchingMinor(t *testing.T) {
	Version = "1.2.3"
	defer func() { Version = "dev" }()

	var gotWarnings []string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotWarnings = warningsFrom(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("x-signet-client-version", "1.2.0")
	clientVersionCheck(next).ServeHTTP(httptest.NewRecorder(), req)

	if len(gotWarnings) != 0 {
		t.Errorf("expected no warnings for matching major.minor, got %v", gotWarnings)
	}
}

func TestClientVersionCheckMismatch(t *testing.T) {
	Version = "1.2.3"
	defer func() { Version = "dev" }()

	var gotWarnings []string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotWarnings = warningsFrom(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("x-signet-client-version", "0.9.0")
	clientVersionCheck(next).ServeHTTP(httptest.NewRecorder(), req)

	if len(gotWarnings) != 1 {
		t.Fatalf("expected exactly one warning, got %v", gotWarnings)
	}
}

func TestClientVersionCheckNoHeader(t *testing.T) {
	var gotWarnings []string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotWarnings = warningsFrom(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	clientVersionCheck(next).ServeHTTP(httptest.NewRecorder(), req)

	if gotWarnings != nil {
		t.Errorf("expected nil warnings with no client version header, got %v", gotWarnings)
	}
}

func TestNormalizeSemver(t *testing.T) {
	cases := map[string]string{
		"":      "",
		"1.2.3": "v1.2.3",
		"v1.2.3": "v1.2.3",
	}
	for in, want := range cases {
		if got := normalizeSemver(in); got != want {
			t.Errorf("normalizeSemver(%q) = %q, want %q", in, got, want)
		}
	}
}
