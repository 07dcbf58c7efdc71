package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestErrorCreation(t *testing.T) {
	err := E(Op("pipeline.harvest"), KindNetwork, "query failed")

	if err.Op != "pipeline.harvest" {
		t.Errorf("expected Op 'pipeline.harvest', got %q", err.Op)
	}
	if err.Kind != KindNetwork {
		t.Errorf("expected Kind KindNetwork, got %v", err.Kind)
	}
	if err.Msg != "query failed" {
		t.Errorf("expected Msg 'query failed', got %q", err.Msg)
	}
}

func TestErrorWithWrappedError(t *testing.T) {
	underlying := fmt.Errorf("connection refused")
	err := E(Op("gdc.query"), KindNetwork, underlying, "files endpoint")

	if err.Err != underlying {
		t.Error("expected underlying error to be set")
	}
	if err.Unwrap() != underlying {
		t.Error("Unwrap should return the underlying error")
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "op and message",
			err:  E(Op("catalog.open"), "cannot open database"),
			want: "catalog.open: cannot open database",
		},
		{
			name: "op, message and cause",
			err:  E(Op("gdc.fetch"), "download failed", fmt.Errorf("timeout")),
			want: "gdc.fetch: download failed: timeout",
		},
		{
			name: "cause only",
			err:  E(fmt.Errorf("boom")),
			want: "boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindNetwork, "network"},
		{KindIO, "io"},
		{KindParse, "parse"},
		{KindValidation, "validation"},
		{KindConfig, "config"},
		{KindCatalog, "catalog"},
		{KindUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestIsKind(t *testing.T) {
	err := E(Op("slides.map"), KindValidation, "bad filename")

	if !IsKind(err, KindValidation) {
		t.Error("expected IsKind to match KindValidation")
	}
	if IsKind(err, KindNetwork) {
		t.Error("did not expect IsKind to match KindNetwork")
	}
	if IsKind(fmt.Errorf("plain"), KindValidation) {
		t.Error("plain errors have no kind")
	}
}

func TestGetKind(t *testing.T) {
	if got := GetKind(E(KindIO, "disk full")); got != KindIO {
		t.Errorf("GetKind = %v, want KindIO", got)
	}
	if got := GetKind(fmt.Errorf("plain")); got != KindUnknown {
		t.Errorf("GetKind on plain error = %v, want KindUnknown", got)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(Op("x"), nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}

	wrapped := Wrap(Op("gdc.paged_query"), fmt.Errorf("status 500"))
	if !strings.Contains(wrapped.Error(), "gdc.paged_query") {
		t.Errorf("wrapped error should contain op, got %q", wrapped.Error())
	}
}

func TestWrapMsg(t *testing.T) {
	if WrapMsg(Op("x"), "m", nil) != nil {
		t.Error("WrapMsg(nil) should return nil")
	}

	wrapped := WrapMsg(Op("annotations.clinical"), "cases query", fmt.Errorf("status 502"))
	msg := wrapped.Error()
	for _, part := range []string{"annotations.clinical", "cases query", "status 502"} {
		if !strings.Contains(msg, part) {
			t.Errorf("error %q missing %q", msg, part)
		}
	}
}

func TestSkipCounter(t *testing.T) {
	sc := NewSkipCounter("slide mapping")
	if sc.Count != 0 {
		t.Errorf("new counter should start at 0, got %d", sc.Count)
	}

	sc.Skip(fmt.Errorf("too few tokens"), "short.svs")
	sc.Skip(fmt.Errorf("too few tokens"), "tiny.svs")

	if sc.Count != 2 {
		t.Errorf("expected 2 skips, got %d", sc.Count)
	}
	if sc.LastDetail != "tiny.svs" {
		t.Errorf("expected last detail 'tiny.svs', got %q", sc.LastDetail)
	}
	sc.Report()
	NewSkipCounter("noop").Report()
}
