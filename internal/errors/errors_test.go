package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"not found", ErrNotFound.WithName("a.txt"), KindNotFound},
		{"wrapped", fmt.Errorf("outer: %w", ErrPermissionDenied), KindPermissionDenied},
		{"plain", stderrors.New("boom"), KindIOFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := ErrIOFailure.WithName("notes.txt").Wrap(fs.ErrPermission)
	if !stderrors.Is(err, ErrIOFailure) {
		t.Error("errors.Is(err, ErrIOFailure) = false, want true")
	}
	if stderrors.Is(err, ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = true, want false")
	}
	if !stderrors.Is(err, fs.ErrPermission) {
		t.Error("errors.Is(err, fs.ErrPermission) = false, want true (cause)")
	}
}

func TestDerivedErrorsDoNotMutateSentinel(t *testing.T) {
	_ = ErrNotFound.WithName("x").WithMessage("custom %d", 1)
	if ErrNotFound.Name != "" || ErrNotFound.Message != "file does not exist" {
		t.Errorf("sentinel mutated: %+v", ErrNotFound)
	}
}

func TestErrorMessageNamesFile(t *testing.T) {
	err := ErrInvalidName.WithName("a/b.txt")
	if !strings.Contains(err.Error(), `"a/b.txt"`) {
		t.Errorf("Error() = %q, want it to contain the file name", err.Error())
	}
	if !strings.HasPrefix(err.Error(), "InvalidName") {
		t.Errorf("Error() = %q, want InvalidName prefix", err.Error())
	}
}

func TestHTTPStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrInvalidName, http.StatusBadRequest},
		{ErrInvalidTier, http.StatusBadRequest},
		{ErrPermissionDenied, http.StatusForbidden},
		{ErrNotFound, http.StatusNotFound},
		{ErrIOFailure, http.StatusInternalServerError},
		{stderrors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatusOf(tt.err); got != tt.want {
			t.Errorf("HTTPStatusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
