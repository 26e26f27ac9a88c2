package injector

import (
	"path/filepath"
	"testing"

	"github.com/mr-martian/transfuse/sentinel"
	"github.com/mr-martian/transfuse/style"
	"github.com/mr-martian/transfuse/tagpolicy"
)

func testStore(t *testing.T) *style.Store {
	t.Helper()
	s, err := style.Open(filepath.Join(t.TempDir(), "state.sqlite3"))
	if err != nil {
		t.Fatalf("style.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type fakeSource struct {
	blocks []struct{ id, body string }
	i      int
}

func (f *fakeSource) GetBlock() (string, string, bool, error) {
	if f.i >= len(f.blocks) {
		return "", "", false, nil
	}
	b := f.blocks[f.i]
	f.i++
	return b.id, b.body, true, nil
}

func TestInjectPlainBlock(t *testing.T) {
	sentinel.ResetCounter()
	store := testStore(t)
	policy := &tagpolicy.Policy{}
	policy.Compile()

	content := "<p>" + sentinel.BlockOpen("1-aaa") + "hello world" + sentinel.BlockClose("1-aaa") + "</p>"
	src := &fakeSource{blocks: []struct{ id, body string }{{"1-aaa", "bonjour monde"}}}

	doc, warnings, err := Inject(content, src, store, policy, nil)
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if err := warnings.Err(); err != nil {
		t.Fatalf("unexpected warnings: %v", err)
	}

	got, err := doc.WriteToString()
	if err != nil {
		t.Fatalf("WriteToString: %v", err)
	}
	if got != "<p>bonjour monde</p>" {
		t.Errorf("got %q", got)
	}
}

func TestInjectExpandsInlineStyle(t *testing.T) {
	sentinel.ResetCounter()
	store := testStore(t)
	policy := &tagpolicy.Policy{}
	policy.Compile()

	id, err := store.Put("b", "<b>", "</b>")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	body := "hello " + sentinel.InlineOpen("b", id) + "world" + sentinel.InlineCloseStr()
	content := "<p>" + sentinel.BlockOpen("1-aaa") + body + sentinel.BlockClose("1-aaa") + "</p>"
	src := &fakeSource{blocks: []struct{ id, body string }{{"1-aaa", body}}}

	doc, warnings, err := Inject(content, src, store, policy, nil)
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if err := warnings.Err(); err != nil {
		t.Fatalf("unexpected warnings: %v", err)
	}

	got, err := doc.WriteToString()
	if err != nil {
		t.Fatalf("WriteToString: %v", err)
	}
	if got != "<p>hello <b>world</b></p>" {
		t.Errorf("got %q", got)
	}
}

func TestInjectExpandsProtectedInline(t *testing.T) {
	sentinel.ResetCounter()
	store := testStore(t)
	policy := &tagpolicy.Policy{Prot: []string{"br"}}
	policy.Compile()

	id, err := store.Put("P", "<br/>", "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	body := "foo" + sentinel.ProtectedInline("P", id) + "bar"
	content := "<p>" + sentinel.BlockOpen("1-aaa") + body + sentinel.BlockClose("1-aaa") + "</p>"
	src := &fakeSource{blocks: []struct{ id, body string }{{"1-aaa", body}}}

	doc, _, err := Inject(content, src, store, policy, nil)
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}

	got, err := doc.WriteToString()
	if err != nil {
		t.Fatalf("WriteToString: %v", err)
	}
	if got != "<p>foo<br/>bar</p>" {
		t.Errorf("got %q", got)
	}
}

func TestInjectDroppedBlockFallsBackToOriginal(t *testing.T) {
	sentinel.ResetCounter()
	store := testStore(t)
	policy := &tagpolicy.Policy{}
	policy.Compile()

	content := "<p>" + sentinel.BlockOpen("1-aaa") + "original text" + sentinel.BlockClose("1-aaa") + "</p>"
	src := &fakeSource{} // translator dropped the block entirely

	doc, warnings, err := Inject(content, src, store, policy, nil)
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if warnings.Err() != nil {
		t.Fatalf("dropped block (never referenced by the stream) should not itself warn: %v", warnings.Err())
	}

	got, err := doc.WriteToString()
	if err != nil {
		t.Fatalf("WriteToString: %v", err)
	}
	if got != "<p>original text</p>" {
		t.Errorf("got %q, want fallback to original text", got)
	}
}

func TestInjectUnknownBlockIDWarns(t *testing.T) {
	sentinel.ResetCounter()
	store := testStore(t)
	policy := &tagpolicy.Policy{}
	policy.Compile()

	content := "<p>" + sentinel.BlockOpen("1-aaa") + "hello" + sentinel.BlockClose("1-aaa") + "</p>"
	src := &fakeSource{blocks: []struct{ id, body string }{{"9-zzz", "nobody asked for this"}}}

	_, warnings, err := Inject(content, src, store, policy, nil)
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if warnings.Err() == nil {
		t.Error("expected a warning for a block id absent from the interim document")
	}
}

func TestInjectUnknownStyleIDWarnsAndPreservesBody(t *testing.T) {
	sentinel.ResetCounter()
	store := testStore(t)
	policy := &tagpolicy.Policy{}
	policy.Compile()

	body := "hello " + sentinel.InlineOpen("b", "99-missing") + "world" + sentinel.InlineCloseStr()
	content := "<p>" + sentinel.BlockOpen("1-aaa") + body + sentinel.BlockClose("1-aaa") + "</p>"
	src := &fakeSource{blocks: []struct{ id, body string }{{"1-aaa", body}}}

	doc, warnings, err := Inject(content, src, store, policy, nil)
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if warnings.Err() == nil {
		t.Error("expected a warning for an unknown style id")
	}

	got, err := doc.WriteToString()
	if err != nil {
		t.Fatalf("WriteToString: %v", err)
	}
	if got != "<p>hello world</p>" {
		t.Errorf("got %q, want body preserved with empty open/close markup", got)
	}
}

func TestInjectMultipleOccurrencesOfSameBlock(t *testing.T) {
	sentinel.ResetCounter()
	store := testStore(t)
	policy := &tagpolicy.Policy{}
	policy.Compile()

	one := sentinel.BlockOpen("1-aaa") + "shared" + sentinel.BlockClose("1-aaa")
	content := "<body><p>" + one + "</p><p>" + one + "</p></body>"
	src := &fakeSource{blocks: []struct{ id, body string }{{"1-aaa", "translated"}}}

	doc, _, err := Inject(content, src, store, policy, nil)
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}

	got, err := doc.WriteToString()
	if err != nil {
		t.Fatalf("WriteToString: %v", err)
	}
	want := "<body><p>translated</p><p>translated</p></body>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
