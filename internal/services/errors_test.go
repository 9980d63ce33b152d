package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"infobeamer-cms/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "infobeamer", "get setup/42", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"infobeamer", "get setup/42", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestFailureKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrValidation, "assets", "parse", "bad state", nil), "validation"},
		{services.Wrap(services.ErrNotFound, "infobeamer", "get", "", nil), "not_found"},
		{services.Wrap(services.ErrConfiguration, "infobeamer", "get", "", nil), "configuration"},
		{services.Wrap(services.ErrForbidden, "moderation", "delete", "", nil), "forbidden"},
		{fmt.Errorf("request: %w", context.DeadlineExceeded), "timeout"},
		{errors.New("io"), "transient"},
	}
	for _, tc := range cases {
		if got := services.FailureKind(tc.err); got != tc.want {
			t.Fatalf("FailureKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
