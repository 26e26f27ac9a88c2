// Package treeutil holds element-tree navigation and markup-rendering
// helpers shared by the Whitespace Preserver and the Styler: sibling
// access, the "only child" and "has block child" predicates, and
// open/close tag markup construction.
package treeutil

import (
	"strings"
	"unicode"

	"github.com/beevik/etree"

	"github.com/mr-martian/transfuse/tagpolicy"
)

// TagSidecarPrefix is the prefix reserved for sidecar attributes and
// elements the pipeline introduces and must never leak into output.
const TagSidecarPrefix = "tf-"

// QualifiedName returns an element's namespace-prefixed tag, e.g. "w:ins"
// or "p", exactly as it appears in markup.
func QualifiedName(el *etree.Element) string {
	if el.Space != "" {
		return el.Space + ":" + el.Tag
	}
	return el.Tag
}

// PrevSibling returns the token immediately before t among its parent's
// children, or nil if t is the first child or has no parent.
func PrevSibling(t etree.Token) etree.Token {
	parent := t.Parent()
	if parent == nil {
		return nil
	}
	idx := t.Index()
	if idx <= 0 || idx > len(parent.Child) {
		return nil
	}
	return parent.Child[idx-1]
}

// NextSibling returns the token immediately after t among its parent's
// children, or nil if t is the last child or has no parent.
func NextSibling(t etree.Token) etree.Token {
	parent := t.Parent()
	if parent == nil {
		return nil
	}
	idx := t.Index()
	if idx < 0 || idx+1 >= len(parent.Child) {
		return nil
	}
	return parent.Child[idx+1]
}

// IsElementLike reports whether a token is an element, or any other kind of
// node that is not pure character data (the Whitespace Preserver anchors
// whitespace to "element-like" neighbors).
func IsElementLike(t etree.Token) bool {
	if t == nil {
		return false
	}
	switch t.(type) {
	case *etree.CharData:
		return false
	default:
		// elements, comments, directives, proc-insts: treat as element-like boundaries
		return true
	}
}

// HasAttrs reports whether an element carries any attributes.
func HasAttrs(t etree.Token) bool {
	el, ok := t.(*etree.Element)
	return ok && len(el.Attr) > 0
}

// IsOnlyMeaningfulChild reports whether el is the sole non-whitespace child
// of its parent, recursively through chains of inline parents — such
// inlines are not collapsed by the Styler since doing so would add no
// translator-visible structure.
func IsOnlyMeaningfulChild(el *etree.Element, policy *tagpolicy.Policy) bool {
	parent := el.Parent()
	if parent == nil {
		return false
	}
	for _, c := range parent.Child {
		if c == el {
			continue
		}
		switch n := c.(type) {
		case *etree.CharData:
			if !isBlank(n.Data) {
				return false
			}
		default:
			return false
		}
	}
	if policy.IsInline(QualifiedName(parent)) {
		return IsOnlyMeaningfulChild(parent, policy)
	}
	return true
}

// HasBlockDescendant reports whether el has any descendant element that is
// neither inline nor protected-inline — collapsing an inline across a block
// boundary would produce ill-formed interim text.
func HasBlockDescendant(el *etree.Element, policy *tagpolicy.Policy) bool {
	for _, c := range el.Child {
		child, ok := c.(*etree.Element)
		if !ok {
			continue
		}
		name := QualifiedName(child)
		if !policy.IsInline(name) && !policy.IsProtInline(name) {
			return true
		}
		if HasBlockDescendant(child, policy) {
			return true
		}
	}
	return false
}

const blankRunes = " \t\r\n\v\f"

// isBlank reports whether s consists entirely of whitespace: the ASCII
// control whitespace in blankRunes plus any Unicode separator (\p{Z}, e.g.
// NBSP or EM SPACE) - the same class the Whitespace Preserver's and
// Styler's own blank-run regexes use.
func isBlank(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(blankRunes, r) && !unicode.Is(unicode.Z, r) {
			return false
		}
	}
	return true
}

// OpenTag renders an element's opening markup (tag name, namespace
// declarations, and attributes), optionally self-closed. withTF controls
// whether sidecar (tf-) attributes are included: false strips them, for
// markup that is final output; true keeps them, for serializing into the
// interim tree the Whitespace Preserver's and Promotion's sidecar
// attributes must survive in so Restore and the Injector can read them
// back (spec §4.1, §4.7).
func OpenTag(el *etree.Element, selfClose, withTF bool) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(QualifiedName(el))
	for _, a := range el.Attr {
		if !withTF && strings.HasPrefix(a.Key, TagSidecarPrefix) {
			continue
		}
		b.WriteByte(' ')
		if a.Space != "" {
			b.WriteString(a.Space)
			b.WriteByte(':')
		}
		b.WriteString(a.Key)
		b.WriteString(`="`)
		EscapeAttrInto(&b, a.Value)
		b.WriteByte('"')
	}
	if selfClose {
		b.WriteString("/>")
	} else {
		b.WriteByte('>')
	}
	return b.String()
}

// CloseTag renders an element's closing markup.
func CloseTag(el *etree.Element) string {
	return "</" + QualifiedName(el) + ">"
}

// EscapeText entity-escapes text content for inclusion in element content.
func EscapeText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

// EscapeAttrInto entity-escapes an attribute value into b.
func EscapeAttrInto(b *strings.Builder, s string) {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	b.WriteString(r.Replace(s))
}

// HasAlphanumeric reports whether s contains at least one Unicode
// letter/number/mark character, the threshold spec.md uses to decide
// whether an attribute value or text run is worth extracting as a block.
func HasAlphanumeric(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r) {
			return true
		}
	}
	return false
}
