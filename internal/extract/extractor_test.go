package extract

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestRunStages_FirstHitWins(t *testing.T) {
	var ran []string
	mk := func(name, url string) stage {
		return stage{name: name, run: func(ctx context.Context) (string, error) {
			ran = append(ran, name)
			return url, nil
		}}
	}

	u, errs := runStages(context.Background(), slog.Default(), []stage{
		mk("first", ""),
		mk("second", "https://cdn.example.com/doc.pdf"),
		mk("third", "https://cdn.example.com/never.pdf"),
	})

	if u != "https://cdn.example.com/doc.pdf" {
		t.Errorf("url = %q, want second stage's result", u)
	}
	if len(errs) != 0 {
		t.Errorf("errs = %v, want none", errs)
	}
	if len(ran) != 2 || ran[0] != "first" || ran[1] != "second" {
		t.Errorf("ran = %v, want [first second]", ran)
	}
}

func TestRunStages_ErrorsDoNotStopTheChain(t *testing.T) {
	boom := errors.New("boom")
	u, errs := runStages(context.Background(), slog.Default(), []stage{
		{name: "a", run: func(ctx context.Context) (string, error) { return "", boom }},
		{name: "b", run: func(ctx context.Context) (string, error) { return "https://cdn.example.com/x.pdf", nil }},
	})

	if u != "https://cdn.example.com/x.pdf" {
		t.Errorf("url = %q, a failing stage must not stop the chain", u)
	}
	if len(errs) != 1 || !errors.Is(errs[0], boom) {
		t.Errorf("errs = %v, want the recorded stage failure", errs)
	}
}

func TestRunStages_AllMiss(t *testing.T) {
	u, errs := runStages(context.Background(), slog.Default(), []stage{
		{name: "a", run: func(ctx context.Context) (string, error) { return "", nil }},
		{name: "b", run: func(ctx context.Context) (string, error) { return "", nil }},
	})
	if u != "" || len(errs) != 0 {
		t.Errorf("got (%q, %v), want empty miss", u, errs)
	}
}

func TestRunStages_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran bool
	u, errs := runStages(ctx, slog.Default(), []stage{
		{name: "a", run: func(ctx context.Context) (string, error) { ran = true; return "x", nil }},
	})
	if ran {
		t.Error("stage ran despite cancelled context")
	}
	if u != "" || len(errs) == 0 {
		t.Errorf("got (%q, %v), want cancellation error", u, errs)
	}
}

func TestIsDownloadResponse(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		mimeType    string
		disposition string
		want        bool
	}{
		{
			name:     "pdf content type on download endpoint",
			url:      "https://www.scribd.com/document_downloads/42?extension=pdf",
			mimeType: "application/pdf",
			want:     true,
		},
		{
			name:        "attachment disposition on cdn url",
			url:         "https://dl.scribd.com/archive/abc",
			mimeType:    "application/octet-stream",
			disposition: `attachment; filename="doc.pdf"`,
			want:        true,
		},
		{
			name:     "html page on download url is not a download",
			url:      "https://www.scribd.com/download-prompt",
			mimeType: "text/html",
			want:     false,
		},
		{
			name:     "pdf served from unrelated url",
			url:      "https://www.scribd.com/assets/logo",
			mimeType: "application/pdf",
			want:     false,
		},
		{
			name:     "pdf extension in path",
			url:      "https://cdn.example.com/files/report.PDF",
			mimeType: "application/pdf",
			want:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isDownloadResponse(tt.url, tt.mimeType, tt.disposition, "dl.scribd")
			if got != tt.want {
				t.Errorf("isDownloadResponse(%q, %q, %q) = %v, want %v",
					tt.url, tt.mimeType, tt.disposition, got, tt.want)
			}
		})
	}
}

func TestResolveHref(t *testing.T) {
	base := "https://www.scribd.com"
	tests := []struct {
		href string
		want string
	}{
		{"https://dl.scribd.com/doc.pdf", "https://dl.scribd.com/doc.pdf"},
		{"/document_downloads/42?extension=pdf", "https://www.scribd.com/document_downloads/42?extension=pdf"},
		{"doc.pdf", "https://www.scribd.com/doc.pdf"},
	}
	for _, tt := range tests {
		if got := resolveHref(base, tt.href); got != tt.want {
			t.Errorf("resolveHref(%q, %q) = %q, want %q", base, tt.href, got, tt.want)
		}
	}
}

func TestError_Format(t *testing.T) {
	e := &Error{Reason: ReasonNoURLResolved}
	if got := e.Error(); got != "extraction failed (no-url-resolved)" {
		t.Errorf("Error() = %q", got)
	}

	inner := errors.New("control hidden")
	e = &Error{Reason: ReasonNoDownloadControl, Err: inner}
	if !errors.Is(e, inner) {
		t.Error("Error should unwrap to its cause")
	}
}
