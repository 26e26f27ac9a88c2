package styler

import (
	"regexp"
	"strings"

	"github.com/mr-martian/transfuse/sentinel"
	"github.com/mr-martian/transfuse/style"
)

// maxPromotionPasses bounds the convergence loop; each pass promotes every
// independent protected span it finds in one scan (mirroring dom.cpp's
// protect_to_styles, which drains its inner while loop before the outer
// iteration counts against its own cap), so this backstop only needs to
// cover chained re-promotion rounds, not the total number of protected
// spans in the document.
const maxPromotionPasses = 100

var (
	rxAdjacentProtect = regexp.MustCompile(protectClose + `([\s\r\n\p{Z}]*)` + protectOpen)
	rxProtectSpan     = regexp.MustCompile(`(?s)` + protectOpen + `(.*?)` + protectClose)
	rxBlockStart      = regexp.MustCompile(`>[\s\p{Zs}]*$`)
	rxBlockEnd        = regexp.MustCompile(`^[\s\p{Zs}]*<`)
	rxInlineOpenAtEnd = regexp.MustCompile(`(\x{E011}[^\x{E012}]+\x{E012})[\s\p{Zs}]*$`)
	rxInlineCloseAtEnd = regexp.MustCompile(`\x{E013}[\s\p{Zs}]*$`)
	rxTokenAtEnd      = regexp.MustCompile(`[^>\s\p{Z}\x{E012}]+[\s\p{Zs}]*$`)
)

// PromoteProtected turns protected-tag spans into stored styles referenced
// by self-closing protected-inline delimiters at the spans' own places, so
// they no longer sit as opaque markup inside running text (spec §4.3).
func PromoteProtected(s string, store *style.Store) (string, error) {
	s = mergeAdjacentProtected(s)

	for i := 0; i < maxPromotionPasses; i++ {
		next, changed, err := promotePass(s, store)
		if err != nil {
			return "", err
		}
		if !changed {
			return next, nil
		}
		s = next
	}
	return s, nil
}

func mergeAdjacentProtected(s string) string {
	return rxAdjacentProtect.ReplaceAllString(s, "$1")
}

// promotePass scans s for every non-overlapping `<tf-protect>` span in one
// left-to-right sweep (the equivalent of dom.cpp's inner while loop) and
// promotes each to a stored style, so a document with many independent
// protected spans (docx field codes, footnote refs) converges in a single
// pass rather than spending one maxPromotionPasses iteration per span.
//
// Context for a given span (whether it sits at a block boundary, right
// after an inline open, right after an inline close, or mid-token) is
// looked at only in the text since the previous span's end. It decides
// whether the span's markup is stored as the style's open or close half;
// the self-closing delimiter always takes the span's own place (right
// after an inline open, it goes directly after that open), so the markup
// comes back at the same position on expansion. A later sweep over the
// now-rewritten string still sees plain text in that position, not a
// bare `<tf-protect>`, so this never leaves unpromoted markup behind.
func promotePass(s string, store *style.Store) (string, bool, error) {
	locs := rxProtectSpan.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return s, false, nil
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		matchStart, matchEnd := loc[0], loc[1]
		if matchStart < last {
			continue
		}
		innerStart, innerEnd := loc[2], loc[3]
		inner := s[innerStart:innerEnd]

		prefix := s[last:matchStart]
		suffix := s[matchEnd:]

		if rxBlockStart.MatchString(prefix) || rxBlockEnd.MatchString(suffix) {
			id, err := store.Put("P", inner, "")
			if err != nil {
				return "", false, err
			}
			b.WriteString(s[last:matchStart])
			b.WriteString(sentinel.ProtectedInline("P", id))
			last = matchEnd
			continue
		}

		if m := rxInlineOpenAtEnd.FindStringSubmatchIndex(prefix); m != nil {
			id, err := store.Put("P", inner, "")
			if err != nil {
				return "", false, err
			}
			openEnd := last + m[3]
			b.WriteString(s[last:openEnd])
			b.WriteString(sentinel.ProtectedInline("P", id))
			b.WriteString(s[openEnd:matchStart])
			last = matchEnd
			continue
		}

		if rxInlineCloseAtEnd.MatchString(prefix) {
			id, err := store.Put("P", "", inner)
			if err != nil {
				return "", false, err
			}
			b.WriteString(s[last:matchStart])
			b.WriteString(sentinel.ProtectedInline("P", id))
			last = matchEnd
			continue
		}

		if rxTokenAtEnd.MatchString(prefix) {
			id, err := store.Put("P", "", inner)
			if err != nil {
				return "", false, err
			}
			b.WriteString(s[last:matchStart])
			b.WriteString(sentinel.ProtectedInline("P", id))
			last = matchEnd
			continue
		}

		// Nothing matched; leave this span as a standalone protected-inline so
		// the sweep still makes progress and terminates.
		id, err := store.Put("P", inner, "")
		if err != nil {
			return "", false, err
		}
		b.WriteString(s[last:matchStart])
		b.WriteString(sentinel.ProtectedInline("P", id))
		last = matchEnd
	}
	b.WriteString(s[last:])
	return b.String(), true, nil
}
