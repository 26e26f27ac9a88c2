// Package injector implements the Injector (spec §4.7): it consumes
// translated blocks from a Stream Codec reader, splices them into the
// stored interim document at the matching sentinels, falls back to the
// original value for any block a translator dropped, re-applies Style
// Cleanup, expands inline and protected-inline style delimiters via the
// Style Store, and hands back a fresh element tree with whitespace
// restored for the format adapter to emit.
package injector

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mr-martian/transfuse/sentinel"
	"github.com/mr-martian/transfuse/style"
	"github.com/mr-martian/transfuse/styler"
	"github.com/mr-martian/transfuse/tagpolicy"
	"github.com/mr-martian/transfuse/treeutil"
	"github.com/mr-martian/transfuse/whitespace"
)

// maxExpandPasses bounds the inline/protected-inline expansion fixpoint
// loop (spec §4.7 step 5); expanded markup can itself carry style
// delimiters recorded by protect promotion, so a single pass is not
// sufficient in general, but realistic documents converge quickly.
const maxExpandPasses = 100

// BlockSource yields translated (id, body) pairs in stream order, ok is
// false at end of input. codec.Reader satisfies this directly.
type BlockSource interface {
	GetBlock() (id, body string, ok bool, err error)
}

// Warnings aggregates the non-fatal conditions spec §7 describes: a block
// id referenced by the stream but never found in the interim document, or
// a style (kind, id) pair absent from the Style Store. Processing
// continues in both cases; the final document reflects the partial
// success.
type Warnings struct {
	err error
}

func (w *Warnings) add(err error) {
	w.err = multierr.Append(w.err, err)
}

// Err returns the combined non-fatal warnings accumulated during an
// Inject call, or nil if there were none.
func (w *Warnings) Err() error {
	return w.err
}

// Inject runs the full splice/cleanup/expand/reparse/restore sequence of
// spec §4.7 against content (the interim textual form loaded from
// content.xml) and returns the reconstructed document. log may be nil.
func Inject(content string, blocks BlockSource, store *style.Store, policy *tagpolicy.Policy, log *zap.Logger) (*etree.Document, *Warnings, error) {
	warnings := &Warnings{}

	for {
		id, body, ok, err := blocks.GetBlock()
		if err != nil {
			return nil, warnings, fmt.Errorf("read translated block: %w", err)
		}
		if !ok {
			break
		}
		spliced, n := spliceBlock(content, id, body)
		if n == 0 {
			err := fmt.Errorf("block %q not found in interim document", id)
			warnings.add(err)
			if log != nil {
				log.Warn("block id not found in interim document", zap.String("id", id))
			}
			continue
		}
		content = spliced
	}

	content = sentinel.StripBlockSentinels(content)
	content = styler.Cleanup(content)

	content, err := expandStyles(content, store, warnings, log)
	if err != nil {
		return nil, warnings, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(content); err != nil {
		return nil, warnings, fmt.Errorf("parse reconstructed document: %w", err)
	}
	if root := doc.Root(); root != nil {
		whitespace.Restore(root, policy)
	}
	return doc, warnings, nil
}

// spliceBlock replaces every occurrence of the open/close sentinel pair
// for id in content (sentinels included) with body, trimmed and
// entity-escaped. Multiple occurrences are replaced, matching spec §4.7
// step 2's "a block may be referenced from multiple places when the
// extractor deduplicated". n reports how many occurrences were replaced.
func spliceBlock(content, id, body string) (string, int) {
	open := sentinel.BlockOpen(id)
	close_ := sentinel.BlockClose(id)
	replacement := treeutil.EscapeText(strings.TrimSpace(body))

	var b strings.Builder
	rest := content
	n := 0
	for {
		oi := strings.Index(rest, open)
		if oi < 0 {
			b.WriteString(rest)
			break
		}
		afterOpen := oi + len(open)
		ci := strings.Index(rest[afterOpen:], close_)
		if ci < 0 {
			// Malformed: an open sentinel with no matching close. Leave the
			// remainder untouched rather than risk corrupting the document.
			b.WriteString(rest)
			break
		}
		closeEnd := afterOpen + ci + len(close_)
		b.WriteString(rest[:oi])
		b.WriteString(replacement)
		rest = rest[closeEnd:]
		n++
	}
	if n == 0 {
		return content, 0
	}
	return b.String(), n
}

// expandStyles runs the inline/protected-inline expansion fixpoint loop.
func expandStyles(content string, store *style.Store, warnings *Warnings, log *zap.Logger) (string, error) {
	for i := 0; i < maxExpandPasses; i++ {
		next, changedInline, err := expandInlinePass(content, store, warnings, log)
		if err != nil {
			return "", err
		}
		next, changedProt, err := expandProtectedPass(next, store, warnings, log)
		if err != nil {
			return "", err
		}
		if !changedInline && !changedProt {
			return next, nil
		}
		content = next
	}
	return content, nil
}

// expandInlinePass expands every "U+E011 kind:id U+E012 body U+E013" span
// found in a single left-to-right scan. Matches found by a prior call in
// the same pass are not rescanned within this pass; repeated calls from
// expandStyles handle spans nested inside a just-expanded style's markup.
func expandInlinePass(content string, store *style.Store, warnings *Warnings, log *zap.Logger) (string, bool, error) {
	locs := sentinel.RxInlines.FindAllStringSubmatchIndex(content, -1)
	if len(locs) == 0 {
		return content, false, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range locs {
		if m[0] < last {
			continue
		}
		kind := content[m[2]:m[3]]
		id := content[m[4]:m[5]]
		body := content[m[6]:m[7]]

		open, close_, err := store.Get(kind, id)
		if err != nil {
			return "", false, fmt.Errorf("look up style (%s,%s): %w", kind, id, err)
		}
		if open == "" && close_ == "" {
			err := fmt.Errorf("style (%s,%s) not found in style store", kind, id)
			warnings.add(err)
			if log != nil {
				log.Warn("style id not found in style store", zap.String("kind", kind), zap.String("id", id))
			}
		}

		b.WriteString(content[last:m[0]])
		b.WriteString(open)
		b.WriteString(body)
		b.WriteString(close_)
		last = m[1]
	}
	b.WriteString(content[last:])
	return b.String(), true, nil
}

// expandProtectedPass expands every self-closing
// "U+E020 kind:id U+E021" span found in a single left-to-right scan.
func expandProtectedPass(content string, store *style.Store, warnings *Warnings, log *zap.Logger) (string, bool, error) {
	locs := sentinel.RxProts.FindAllStringSubmatchIndex(content, -1)
	if len(locs) == 0 {
		return content, false, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range locs {
		if m[0] < last {
			continue
		}
		kind := content[m[2]:m[3]]
		id := content[m[4]:m[5]]

		open, close_, err := store.Get(kind, id)
		if err != nil {
			return "", false, fmt.Errorf("look up style (%s,%s): %w", kind, id, err)
		}
		if open == "" && close_ == "" {
			err := fmt.Errorf("style (%s,%s) not found in style store", kind, id)
			warnings.add(err)
			if log != nil {
				log.Warn("style id not found in style store", zap.String("kind", kind), zap.String("id", id))
			}
		}

		b.WriteString(content[last:m[0]])
		b.WriteString(open)
		b.WriteString(close_)
		last = m[1]
	}
	b.WriteString(content[last:])
	return b.String(), true, nil
}
