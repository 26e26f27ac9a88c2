// Package sentinel defines the private-use-codepoint and literal-byte
// delimiter alphabet the interim textual form uses to stand in for inline
// markup and block boundaries (spec §3), plus the content-addressed id
// scheme used to mint style and block identifiers.
package sentinel

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Private-use codepoints forming the inline delimiter alphabet. Chosen
// (per spec §6) from a range that cannot occur in a well-formed source
// document; if it does, the document must be rejected rather than risk
// silently corrupting the interim form.
const (
	InlineOpenB  = '' // inline open, begins "kind:id"
	InlineOpenE  = '' // inline open, ends "kind:id", begins body
	InlineClose  = '' // inline close
	ProtOpenB    = '' // protected-inline self-closing open, begins "kind:id"
	ProtOpenE    = '' // protected-inline self-closing open, ends "kind:id"
)

// Block sentinels are literal multi-byte ASCII sequences outside any legal
// XML text range, distinct from the inline codepoints above.
const (
	blockOpenB  = "\x01["
	blockOpenE  = "]\x02"
	blockCloseB = "\x01["
	blockCloseE = "]\x03"
)

// BlockOpen renders the literal open sentinel for block id.
func BlockOpen(id string) string {
	return blockOpenB + id + blockOpenE
}

// BlockClose renders the literal close sentinel for block id.
func BlockClose(id string) string {
	return blockCloseB + id + blockCloseE
}

// BlockOpenPrefix and BlockClosePrefix let callers scan for a block
// sentinel without knowing the id in advance (used when stripping leftover
// markers for dropped blocks).
const (
	BlockOpenPrefix  = blockOpenB
	BlockClosePrefix = blockCloseB
)

// InlineOpen renders "U+E011 kind ':' id U+E012".
func InlineOpen(kind, id string) string {
	var b strings.Builder
	b.WriteRune(InlineOpenB)
	b.WriteString(kind)
	b.WriteByte(':')
	b.WriteString(id)
	b.WriteRune(InlineOpenE)
	return b.String()
}

// InlineCloseStr renders the inline close delimiter.
func InlineCloseStr() string {
	return string(rune(InlineClose))
}

// ProtectedInline renders the self-closing "U+E020 kind ':' id U+E021" form.
func ProtectedInline(kind, id string) string {
	var b strings.Builder
	b.WriteRune(ProtOpenB)
	b.WriteString(kind)
	b.WriteByte(':')
	b.WriteString(id)
	b.WriteRune(ProtOpenE)
	return b.String()
}

// RxInlines matches "U+E011 kind:id U+E012 body U+E013" spans. Body may not
// itself contain an unmatched delimiter codepoint, so expansion proceeds
// from the innermost span outward across repeated passes.
var RxInlines = regexp.MustCompile(`\x{E011}([^\x{E012}]+?):([^\x{E012}:]+)\x{E012}([^\x{E011}-\x{E013}]*)\x{E013}`)

// RxProts matches the self-closing protected-inline form.
var RxProts = regexp.MustCompile(`\x{E020}([^\x{E021}]+?):([^\x{E021}:]+)\x{E021}`)

// rxBlockOpenAny and rxBlockCloseAny match a block sentinel for any id,
// used by the Injector to strip leftover markers for blocks a translator
// dropped (spec §4.7 step 3) without needing to know the id in advance.
var (
	rxBlockOpenAny  = regexp.MustCompile(`\x01\[[^\]]*\]\x02`)
	rxBlockCloseAny = regexp.MustCompile(`\x01\[[^\]]*\]\x03`)
)

// StripBlockSentinels removes every remaining block open/close sentinel
// from s, leaving the original value that was preserved between them.
func StripBlockSentinels(s string) string {
	s = rxBlockOpenAny.ReplaceAllString(s, "")
	s = rxBlockCloseAny.ReplaceAllString(s, "")
	return s
}

var idCounter atomic.Uint64

// ResetCounter reinitializes the monotonic id counter; used at the start of
// an extraction run so ids are stable across otherwise-identical runs.
func ResetCounter() {
	idCounter.Store(0)
}

// NextID returns the next "<n>-<hash>" identifier for value, where n is a
// 1-based monotonically increasing counter and hash is the base64url
// encoding of a 32-bit hash of value. The reference implementation uses
// 32-bit XXH32; no XXH32 binding is available, so the low 32 bits of
// cespare/xxhash/v2 (XXH64) stand in — see DESIGN.md.
func NextID(value string) string {
	n := idCounter.Add(1)
	return strconv.FormatUint(n, 10) + "-" + hashValue(value)
}

func hashValue(value string) string {
	sum := xxhash.Sum64String(value)
	var buf [4]byte
	buf[0] = byte(sum)
	buf[1] = byte(sum >> 8)
	buf[2] = byte(sum >> 16)
	buf[3] = byte(sum >> 24)
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(buf[:])
}

// StyleID mints a style catalogue key. Kind, open and close are joined with
// "|" per spec §3's "hash of kind|open|close" rule so identical triples
// yield identical ids independent of the call site or of how many other
// Puts preceded this one — unlike NextID, no counter is mixed in.
func StyleID(kind, open, close_ string) string {
	composite := kind + "|" + open + "|" + close_
	return hashValue(composite)
}

// ContainsReservedCodepoints reports whether s already contains one of the
// private-use delimiter codepoints, meaning the source document must be
// rejected rather than risk corrupting the interim alphabet.
func ContainsReservedCodepoints(s string) bool {
	for _, r := range s {
		switch r {
		case InlineOpenB, InlineOpenE, InlineClose, ProtOpenB, ProtOpenE:
			return true
		}
	}
	return strings.Contains(s, blockOpenB) || strings.ContainsAny(s, "\x01")
}

// ErrReservedCodepoint is returned (wrapped with the offending document
// name) when a source document contains the private-use sentinel alphabet.
func ErrReservedCodepoint(docName string) error {
	return fmt.Errorf("document %q contains reserved Transfuse sentinel codepoints", docName)
}
