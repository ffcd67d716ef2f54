package batch

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/aisp-verify/internal/config"
	"github.com/danielpatrickdp/aisp-verify/internal/validator"
)

// stubValidator marks documents valid unless their name is listed in fail.
type stubValidator struct {
	fail     map[string]error
	inflight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	seen     []string
}

func (s *stubValidator) Validate(ctx context.Context, name string, src []byte) (*validator.Result, error) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	s.seen = append(s.seen, name)
	s.mu.Unlock()
	if err := s.fail[filepath.Base(name)]; err != nil {
		return nil, err
	}
	return &validator.Result{Document: name, Valid: len(src) > 0, Tier: "Gold"}, nil
}

func TestExpand_DirectoryFiltersByExtension(t *testing.T) {
	got, err := Expand([]string{"testdata/docs"}, DefaultConfig().Extensions)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{
		filepath.Join("testdata", "docs", "nested", "ambiguous.aisp"),
		filepath.Join("testdata", "docs", "platinum.aisp"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("expand mismatch (-want +got):\n%s", diff)
	}
}

func TestExpand_GlobAndExplicitFileDeduplicate(t *testing.T) {
	got, err := Expand([]string{
		"testdata/**/*.aisp",
		"testdata/docs/platinum.aisp",
		"testdata/docs/notes.log",
	}, DefaultConfig().Extensions)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 paths (two globbed, one explicit .log), got %v", got)
	}
}

func TestExpand_MissingPath(t *testing.T) {
	if _, err := Expand([]string{"testdata/nope.aisp"}, nil); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestRun_BoundsParallelismAndKeepsOrder(t *testing.T) {
	paths := []string{
		"testdata/docs/platinum.aisp",
		"testdata/docs/nested/ambiguous.aisp",
		"testdata/docs/platinum.aisp",
		"testdata/docs/nested/ambiguous.aisp",
		"testdata/docs/platinum.aisp",
	}
	stub := &stubValidator{}
	items, err := Run(context.Background(), stub, paths, Config{Parallel: 2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if p := stub.peak.Load(); p > 2 {
		t.Errorf("expected at most 2 documents in flight, saw %d", p)
	}
	for i, it := range items {
		if it.Path != paths[i] {
			t.Errorf("item %d: path %s, want %s", i, it.Path, paths[i])
		}
	}
}

func TestRun_DocumentErrorsDoNotAbort(t *testing.T) {
	stub := &stubValidator{fail: map[string]error{"ambiguous.aisp": errors.New("boom")}}
	items, err := Run(context.Background(), stub, []string{
		"testdata/docs/platinum.aisp",
		"testdata/docs/nested/ambiguous.aisp",
		"testdata/docs/missing.aisp",
	}, DefaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	s := Summarize(items)
	if s.Total != 3 || s.Valid != 1 || s.Errors != 2 {
		t.Errorf("unexpected summary %+v", s)
	}
	if len(Results(items)) != 1 {
		t.Errorf("expected 1 result, got %d", len(Results(items)))
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, &stubValidator{}, []string{"testdata/docs/platinum.aisp"}, DefaultConfig()); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestRun_ExpectationsEndToEnd(t *testing.T) {
	cfg := config.Default()
	cfg.SMT.Enabled = false
	v, err := validator.New(cfg)
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	exp, err := LoadExpectations("testdata/expect.yaml")
	if err != nil {
		t.Fatalf("load expectations: %v", err)
	}
	items, err := Run(context.Background(), v, exp.Paths(), DefaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if mm := exp.Check(items); len(mm) != 0 {
		t.Fatalf("unexpected mismatches: %v", mm)
	}
	s := Summarize(items)
	if s.Valid != 1 || s.Invalid != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
}
