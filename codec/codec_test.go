package codec

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriterLineVariantRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Line, "/tmp/proj-1")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WriteBlock("1-abc", "hello world"); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if err := w.WriteBlock("2-def", "second block"); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	r, dir, variant, err := NewReader(&buf, Detect)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if dir != "/tmp/proj-1" {
		t.Errorf("dir = %q, want /tmp/proj-1", dir)
	}
	if variant != Line {
		t.Errorf("variant = %v, want Line", variant)
	}

	id, body, ok, err := r.GetBlock()
	if err != nil || !ok {
		t.Fatalf("GetBlock #1: ok=%v err=%v", ok, err)
	}
	if id != "1-abc" || body != "hello world" {
		t.Errorf("block #1 = (%q, %q)", id, body)
	}

	id, body, ok, err = r.GetBlock()
	if err != nil || !ok {
		t.Fatalf("GetBlock #2: ok=%v err=%v", ok, err)
	}
	if id != "2-def" || body != "second block" {
		t.Errorf("block #2 = (%q, %q)", id, body)
	}

	_, _, ok, err = r.GetBlock()
	if err != nil {
		t.Fatalf("GetBlock #3: err=%v", err)
	}
	if ok {
		t.Error("expected end of stream")
	}
}

func TestWriterCommandVariantRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Command, "/tmp/proj-2")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WriteBlock("1-xyz", "multi\nline body"); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	r, dir, variant, err := NewReader(&buf, Detect)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if dir != "/tmp/proj-2" {
		t.Errorf("dir = %q, want /tmp/proj-2", dir)
	}
	if variant != Command {
		t.Errorf("variant = %v, want Command", variant)
	}

	id, body, ok, err := r.GetBlock()
	if err != nil || !ok {
		t.Fatalf("GetBlock: ok=%v err=%v", ok, err)
	}
	if id != "1-xyz" || body != "multi\nline body" {
		t.Errorf("block = (%q, %q)", id, body)
	}
}

func TestSniffDetectsBothVariants(t *testing.T) {
	v, err := sniff("[transfuse:/tmp/a]")
	if err != nil || v != Line {
		t.Errorf("sniff line header = %v, %v", v, err)
	}
	v, err = sniff("<STREAMCMD:TRANSFUSE:/tmp/b>")
	if err != nil || v != Command {
		t.Errorf("sniff command header = %v, %v", v, err)
	}
	if _, err := sniff("nothing recognizable"); err != ErrNoHeader {
		t.Errorf("expected ErrNoHeader, got %v", err)
	}
}

func TestGetTmpdirBothVariants(t *testing.T) {
	if dir, ok := GetTmpdir("[transfuse:/some/dir]"); !ok || dir != "/some/dir" {
		t.Errorf("GetTmpdir line = (%q, %v)", dir, ok)
	}
	if dir, ok := GetTmpdir("<STREAMCMD:TRANSFUSE:/other/dir>"); !ok || dir != "/other/dir" {
		t.Errorf("GetTmpdir command = (%q, %v)", dir, ok)
	}
	if _, ok := GetTmpdir("garbage"); ok {
		t.Error("expected no match for unrecognized header")
	}
}

func TestGetBlockSkipsChatterBetweenBlocks(t *testing.T) {
	input := "[transfuse:/tmp/p]\n" +
		"some chatter line\n" +
		"[transfuse-block:1-a]\n" +
		"body text\n" +
		"[/transfuse-block:1-a]\n" +
		"more chatter\n"
	r, _, _, err := NewReader(strings.NewReader(input), Detect)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	id, body, ok, err := r.GetBlock()
	if err != nil || !ok {
		t.Fatalf("GetBlock: ok=%v err=%v", ok, err)
	}
	if id != "1-a" || body != "body text" {
		t.Errorf("block = (%q, %q)", id, body)
	}
	_, _, ok, err = r.GetBlock()
	if err != nil {
		t.Fatalf("GetBlock #2: %v", err)
	}
	if ok {
		t.Error("expected end of stream after trailing chatter")
	}
}

func TestGetBlockUnclosedIsError(t *testing.T) {
	input := "[transfuse:/tmp/p]\n[transfuse-block:1-a]\nbody\n"
	r, _, _, err := NewReader(strings.NewReader(input), Detect)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	_, _, _, err = r.GetBlock()
	if err == nil {
		t.Error("expected an error for an unclosed block")
	}
}

func TestNewReaderNoHeaderError(t *testing.T) {
	_, _, _, err := NewReader(strings.NewReader("not a header\n"), Detect)
	if err != ErrNoHeader {
		t.Errorf("err = %v, want ErrNoHeader", err)
	}
}
