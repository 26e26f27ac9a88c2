// Package whitespace implements the Whitespace Preserver (spec §4.1): it
// records, as sidecar attributes, whitespace the downstream Styler would
// otherwise collapse, and restores that whitespace on the reverse path
// after injection.
package whitespace

import (
	"regexp"

	"github.com/beevik/etree"

	"github.com/mr-martian/transfuse/tagpolicy"
	"github.com/mr-martian/transfuse/treeutil"
)

const (
	attrSpacePrefix = "tf-space-prefix"
	attrSpaceSuffix = "tf-space-suffix"
	attrSpaceBefore = "tf-space-before"
	attrSpaceAfter  = "tf-space-after"
)

var (
	rxBlankOnly = regexp.MustCompile(`^[\s\p{Z}]+$`)
	rxBlankHead = regexp.MustCompile(`^[\s\p{Z}]+`)
	rxBlankTail = regexp.MustCompile(`[\s\p{Z}]+$`)
)

// Save performs the recursive pre-order save operation, mutating el and its
// descendants in place with tf-space-* sidecar attributes. Subtrees whose
// element name is in policy's prot set are skipped entirely.
func Save(el *etree.Element, policy *tagpolicy.Policy) {
	for _, c := range el.Child {
		switch n := c.(type) {
		case *etree.Element:
			if policy.IsProt(treeutil.QualifiedName(n)) {
				continue
			}
			Save(n, policy)
		case *etree.CharData:
			saveTextNode(n, policy)
		}
	}
}

func saveTextNode(cd *etree.CharData, policy *tagpolicy.Policy) {
	parent := cd.Parent()
	if parent == nil || cd.Data == "" {
		return
	}
	if policy.IsProt(treeutil.QualifiedName(parent)) {
		return
	}

	prev := treeutil.PrevSibling(cd)
	next := treeutil.NextSibling(cd)

	if rxBlankOnly.MatchString(cd.Data) {
		switch {
		case prev == nil:
			parent.CreateAttr(attrSpacePrefix, cd.Data)
		case next == nil:
			parent.CreateAttr(attrSpaceSuffix, cd.Data)
		case treeutil.IsElementLike(prev) || treeutil.HasAttrs(prev):
			setAttr(prev, attrSpaceAfter, cd.Data)
		case treeutil.IsElementLike(next) || treeutil.HasAttrs(next):
			setAttr(next, attrSpaceBefore, cd.Data)
		}
		return
	}

	if m := rxBlankHead.FindString(cd.Data); m != "" {
		if prev != nil {
			if treeutil.IsElementLike(prev) || treeutil.HasAttrs(prev) {
				setAttr(prev, attrSpaceAfter, m)
			}
		} else {
			parent.CreateAttr(attrSpacePrefix, m)
		}
	}
	if m := rxBlankTail.FindString(cd.Data); m != "" {
		if next != nil {
			if treeutil.IsElementLike(next) || treeutil.HasAttrs(next) {
				setAttr(next, attrSpaceBefore, m)
			}
		} else {
			parent.CreateAttr(attrSpaceSuffix, m)
		}
	}
}

func setAttr(t etree.Token, key, value string) {
	if el, ok := t.(*etree.Element); ok {
		el.CreateAttr(key, value)
	}
}

// Restore reverses Save's annotations after a document has been
// reconstructed from the interim textual form: adjacent text nodes absorb
// the saved whitespace, and any sidecar left unconsumed (no adjacent text
// node to attach to) materializes as a new text node.
func Restore(el *etree.Element, policy *tagpolicy.Policy) {
	restorePass(el, policy)
	createPass(el, policy)
}

func restorePass(el *etree.Element, policy *tagpolicy.Policy) {
	for _, c := range el.Child {
		switch n := c.(type) {
		case *etree.Element:
			if policy.IsProt(treeutil.QualifiedName(n)) {
				continue
			}
			restorePass(n, policy)
		case *etree.CharData:
			restoreTextNode(n)
		}
	}
}

func restoreTextNode(cd *etree.CharData) {
	parent := cd.Parent()
	if parent == nil {
		return
	}
	prev := treeutil.PrevSibling(cd)
	next := treeutil.NextSibling(cd)

	if prevEl, ok := prev.(*etree.Element); ok {
		if v, ok := takeAttr(prevEl, attrSpaceAfter); ok {
			cd.Data = v + ltrim(cd.Data)
		}
	}
	if cd.Index() == 0 {
		if v, ok := takeAttr(parent, attrSpacePrefix); ok {
			cd.Data = v + ltrim(cd.Data)
		}
	}
	if nextEl, ok := next.(*etree.Element); ok {
		if v, ok := takeAttr(nextEl, attrSpaceBefore); ok {
			cd.Data = rtrim(cd.Data) + v
		}
	}
	if next == nil {
		if v, ok := takeAttr(parent, attrSpaceSuffix); ok {
			cd.Data = rtrim(cd.Data) + v
		}
	}
}

func takeAttr(el *etree.Element, key string) (string, bool) {
	a := el.SelectAttr(key)
	if a == nil {
		return "", false
	}
	el.RemoveAttr(key)
	return a.Value, true
}

func ltrim(s string) string {
	return rxBlankHead.ReplaceAllString(s, "")
}

func rtrim(s string) string {
	return rxBlankTail.ReplaceAllString(s, "")
}

// createPass materializes any tf-space-* attribute restorePass left
// unconsumed as a brand new text node at the implied position: after/before
// el among its own siblings, or prefix/suffix inside el's own children.
func createPass(el *etree.Element, policy *tagpolicy.Policy) {
	if v, ok := takeAttr(el, attrSpaceAfter); ok {
		insertAfter(el, v)
	}
	if v, ok := takeAttr(el, attrSpacePrefix); ok {
		insertFirstChild(el, v)
	}
	if v, ok := takeAttr(el, attrSpaceBefore); ok {
		insertBefore(el, v)
	}
	if v, ok := takeAttr(el, attrSpaceSuffix); ok {
		el.CreateText(v)
	}

	for _, c := range el.Child {
		child, ok := c.(*etree.Element)
		if !ok {
			continue
		}
		if policy.IsProt(treeutil.QualifiedName(child)) {
			continue
		}
		createPass(child, policy)
	}
}

// insertAfter adds a new text node immediately following el among its
// parent's children. CreateText appends the node at the end of the
// parent's child list; InsertChild then relocates it into position.
func insertAfter(el *etree.Element, text string) {
	parent := el.Parent()
	if parent == nil {
		return
	}
	existing := treeutil.NextSibling(el)
	cd := parent.CreateText(text)
	if existing != nil {
		parent.InsertChild(existing, cd)
	}
}

// insertBefore adds a new text node immediately preceding el among its
// parent's children.
func insertBefore(el *etree.Element, text string) {
	parent := el.Parent()
	if parent == nil {
		return
	}
	cd := parent.CreateText(text)
	parent.InsertChild(el, cd)
}

// insertFirstChild adds a new text node as el's first child.
func insertFirstChild(el *etree.Element, text string) {
	var existing etree.Token
	if len(el.Child) > 0 {
		existing = el.Child[0]
	}
	cd := el.CreateText(text)
	if existing != nil {
		el.InsertChild(existing, cd)
	}
}
