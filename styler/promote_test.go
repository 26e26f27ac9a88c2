package styler

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/mr-martian/transfuse/sentinel"
	"github.com/mr-martian/transfuse/style"
)

func testPromoteStore(t *testing.T) *style.Store {
	t.Helper()
	s, err := style.Open(filepath.Join(t.TempDir(), "state.sqlite3"))
	if err != nil {
		t.Fatalf("style.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMergeAdjacentProtected(t *testing.T) {
	in := protectClose + "  " + protectOpen
	got := mergeAdjacentProtected(in)
	if got != "  " {
		t.Errorf("got %q, want the whitespace with both tags stripped", got)
	}
}

func TestPromoteLeavesInPlaceAtBlockStart(t *testing.T) {
	store := testPromoteStore(t)
	in := "<p>" + protectOpen + "<br/>" + protectClose + "text"
	got, err := PromoteProtected(in, store)
	if err != nil {
		t.Fatalf("PromoteProtected: %v", err)
	}
	if !sentinel.RxProts.MatchString(got) {
		t.Fatalf("expected a protected-inline delimiter in %q", got)
	}
	m := sentinel.RxProts.FindStringSubmatch(got)
	open, _, err := store.Get("P", m[2])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if open != "<br/>" {
		t.Errorf("stored open = %q, want <br/>", open)
	}
}

func TestPromoteKeepsPositionAfterPrecedingToken(t *testing.T) {
	store := testPromoteStore(t)
	in := "hello" + protectOpen + "<br/>" + protectClose + " world"
	got, err := PromoteProtected(in, store)
	if err != nil {
		t.Fatalf("PromoteProtected: %v", err)
	}
	m := sentinel.RxProts.FindStringSubmatchIndex(got)
	if m == nil {
		t.Fatalf("expected a protected-inline delimiter in %q", got)
	}
	// The delimiter takes the span's place, right after "hello".
	if got[:m[0]] != "hello" {
		t.Errorf("expected delimiter right after the preceding token, got prefix %q", got[:m[0]])
	}
}

func TestPromoteHandlesManyIndependentSpansInOnePass(t *testing.T) {
	store := testPromoteStore(t)
	const n = 5
	var in string
	for i := 0; i < n; i++ {
		in += "<p>" + protectOpen + "<br/>" + protectClose + "text</p>"
	}
	got, err := PromoteProtected(in, store)
	if err != nil {
		t.Fatalf("PromoteProtected: %v", err)
	}
	locs := sentinel.RxProts.FindAllStringIndex(got, -1)
	if len(locs) != n {
		t.Fatalf("expected all %d independent spans promoted in a single call, got %d promoted in %q", n, len(locs), got)
	}
	if strings.Contains(got, protectOpen) || strings.Contains(got, protectClose) {
		t.Errorf("expected no bare tf-protect markup left behind, got %q", got)
	}
}

func TestPromoteWrapsInsideExistingStyle(t *testing.T) {
	store := testPromoteStore(t)
	in := sentinel.InlineOpen("b", "1-abc") + protectOpen + "<br/>" + protectClose + "body" + sentinel.InlineCloseStr()
	got, err := PromoteProtected(in, store)
	if err != nil {
		t.Fatalf("PromoteProtected: %v", err)
	}
	if sentinel.RxProts.FindStringIndex(got) == nil {
		t.Fatalf("expected a protected-inline delimiter in %q", got)
	}
}
