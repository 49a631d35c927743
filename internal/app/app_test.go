package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/paperpilot/internal/classify"
	"github.com/hyperifyio/paperpilot/internal/scan"
)

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	return p
}

func newApp(t *testing.T, cfg Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestScanFile_DefaultProfile(t *testing.T) {
	doc := writeDoc(t, "paper.txt", "Intro\nFigure 1: accuracy\nPrior work [1, 2].\n")
	a := newApp(t, Config{})

	s, paragraphs, err := a.ScanFile(context.Background(), doc)
	if err != nil {
		t.Fatalf("ScanFile: %v", err)
	}
	if len(paragraphs) != 3 {
		t.Fatalf("paragraphs=%d", len(paragraphs))
	}
	if s.ProfileID != "ieee" || s.Document != "paper.txt" {
		t.Fatalf("unexpected scan header: %+v", s)
	}
	if s.IssueCount() != 2 {
		t.Fatalf("issues=%d, want 2", s.IssueCount())
	}
}

func TestScanFile_KindAndUnknownProfile(t *testing.T) {
	doc := writeDoc(t, "paper.txt", "Figure 1: accuracy\n")
	a := newApp(t, Config{ProfileID: "nope", Kind: KindCaptions})

	s, _, err := a.ScanFile(context.Background(), doc)
	if err != nil {
		t.Fatalf("ScanFile: %v", err)
	}
	if s.Citations != nil {
		t.Fatalf("citations must not run for kind=captions")
	}
	if s.Captions == nil || len(s.Captions.Issues) != 0 {
		t.Fatalf("expected an empty caption result, got %+v", s.Captions)
	}
	if !strings.Contains(s.Errors[scan.KindCaption], "no profile selected") {
		t.Fatalf("expected config error, got %v", s.Errors)
	}
}

func TestScanFile_Empty(t *testing.T) {
	doc := writeDoc(t, "empty.txt", "")
	_, _, err := newApp(t, Config{}).ScanFile(context.Background(), doc)
	if !errors.Is(err, ErrNoParagraphs) {
		t.Fatalf("expected ErrNoParagraphs, got %v", err)
	}
}

func TestFix_WritesDocument(t *testing.T) {
	doc := writeDoc(t, "paper.txt", "Figure 1: accuracy\nSee [1, 2].\nFig.A odd\n")
	out := filepath.Join(filepath.Dir(doc), "fixed.txt")
	a := newApp(t, Config{OutputPath: out})

	res, err := a.Fix(context.Background(), doc)
	if err != nil {
		t.Fatalf("Fix: %v", err)
	}
	if res.Applied != 2 {
		t.Fatalf("applied=%d, want 2", res.Applied)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read fixed: %v", err)
	}
	if got := string(b); got != "Fig. 1. accuracy\nSee [1], [2].\nFig.A odd\n" {
		t.Fatalf("unexpected fixed document: %q", got)
	}

	again, _, err := newApp(t, Config{}).ScanFile(context.Background(), out)
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if again.Citations == nil || len(again.Citations.Issues) != 0 {
		t.Fatalf("fixed citations should rescan clean: %+v", again.Citations)
	}
}

func TestFix_HTMLKeepsMarkup(t *testing.T) {
	doc := writeDoc(t, "paper.html", `<h1>Title</h1><p>Body <b>bold</b> text.</p><figure><img src="a.png"><figcaption>Figure 1: plot</figcaption></figure>`)
	res, err := newApp(t, Config{Kind: KindAll}).Fix(context.Background(), doc)
	if err != nil {
		t.Fatalf("Fix: %v", err)
	}
	if res.Applied != 1 || res.OutputPath != doc {
		t.Fatalf("unexpected result: %+v", res)
	}
	b, err := os.ReadFile(doc)
	if err != nil {
		t.Fatalf("read fixed: %v", err)
	}
	got := string(b)
	for _, want := range []string{"<b>bold</b>", `<img src="a.png"`, "<figcaption>Fig. 1. plot</figcaption>"} {
		if !strings.Contains(got, want) {
			t.Fatalf("fixed html lost %q:\n%s", want, got)
		}
	}
}

func TestFix_DryRunLeavesFile(t *testing.T) {
	content := "Figure 1: accuracy\n"
	doc := writeDoc(t, "paper.txt", content)
	res, err := newApp(t, Config{DryRun: true}).Fix(context.Background(), doc)
	if err != nil {
		t.Fatalf("Fix: %v", err)
	}
	if res.Applied != 1 || res.Paragraphs[0].Text != "Fig. 1. accuracy" {
		t.Fatalf("unexpected result: %+v", res)
	}
	b, _ := os.ReadFile(doc)
	if string(b) != content {
		t.Fatalf("dry run modified the document: %q", b)
	}
}

func TestWriteReports(t *testing.T) {
	dir := t.TempDir()
	doc := writeDoc(t, "paper.txt", "Figure 1: accuracy\n")
	cfg := Config{
		ReportPath:     filepath.Join(dir, "r.md"),
		ReportJSONPath: filepath.Join(dir, "r.json"),
		ReportPDFPath:  filepath.Join(dir, "r.pdf"),
	}
	a := newApp(t, cfg)
	s, _, err := a.ScanFile(context.Background(), doc)
	if err != nil {
		t.Fatalf("ScanFile: %v", err)
	}
	if err := a.WriteReports(s); err != nil {
		t.Fatalf("WriteReports: %v", err)
	}
	for _, p := range []string{cfg.ReportPath, cfg.ReportJSONPath, cfg.ReportPDFPath} {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Fatalf("missing report %s: %v", p, err)
		}
	}
}

func TestClassify_UsesConfiguredProfile(t *testing.T) {
	a := newApp(t, Config{ProfileID: "nature"})
	got, err := a.Classify(context.Background(), classify.Request{Sentence: "Our approach improves recall by 8 points."})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Label != "citation-needed" || len(got.Suggestions) != 1 || got.Suggestions[0] != "¹" {
		t.Fatalf("unexpected classification: %+v", got)
	}
}

func TestClassify_UnknownProfileUsesDefault(t *testing.T) {
	a := newApp(t, Config{ProfileID: "acm"})
	got, err := a.Classify(context.Background(), classify.Request{RawCaption: "figure 4: ablation"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(got.Suggestions) != 1 || got.Suggestions[0] != "Fig. 4. ablation" {
		t.Fatalf("expected default profile caption, got %+v", got)
	}
}

func TestNew_RejectsBadProfilesFile(t *testing.T) {
	p := writeDoc(t, "profiles.yaml", "- id: x\n")
	if _, err := New(context.Background(), Config{ProfilesPath: p}); err == nil {
		t.Fatalf("expected profile validation error")
	}
}
