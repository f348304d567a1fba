package httpapi

import (
	"context"
	"net/http"

	"golang.org/x/mod/semver"
)

type ctxKey int

const (
	ctxRuntimePath ctxKey = iota
	ctxActor
	ctxActorType
	ctxWarnings
)

// requestContext lifts the actor/runtime-path headers into the request
// context so handlers don't each re-parse them.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = context.WithValue(ctx, ctxRuntimePath, r.Header.Get("x-signet-runtime-path"))
		ctx = context.WithValue(ctx, ctxActor, r.Header.Get("x-signet-actor"))
		ctx = context.WithValue(ctx, ctxActorType, r.Header.Get("x-signet-actor-type"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func runtimePathFrom(r *http.Request) string {
	if v, ok := r.Context().Value(ctxRuntimePath).(string); ok {
		return v
	}
	return ""
}

func actorFrom(r *http.Request) (actor, actorType string) {
	if v, ok := r.Context().Value(ctxActor).(string); ok {
		actor = v
	}
	if v, ok := r.Context().Value(ctxActorType).(string); ok {
		actorType = v
	}
	return actor, actorType
}

// clientVersionCheck compares x-signet-client-version against the
// daemon's own version with semver, stashing a warning string in the
// request context on a mismatch rather than rejecting the request —
// harnesses are out of the core's control, so this is advisory only.
func clientVersionCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientVersion := r.Header.Get("x-signet-client-version")
		var warnings []string
		if clientVersion != "" {
			cv, dv := normalizeSemver(clientVersion), normalizeSemver(Version)
			if semver.IsValid(cv) && semver.IsValid(dv) && semver.MajorMinor(cv) != semver.MajorMinor(dv) {
				warnings = append(warnings, "client version "+clientVersion+" does not match daemon version "+Version)
			}
		}
		ctx := context.WithValue(r.Context(), ctxWarnings, warnings)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func warningsFrom(r *http.Request) []string {
	if v, ok := r.Context().Value(ctxWarnings).([]string); ok {
		return v
	}
	return nil
}

func normalizeSemver(v string) string {
	if v == "" {
		return v
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}
