// Package styler implements the Styler (spec §4.2): it serializes an
// element tree to the interim textual form, runs Protected-Inline
// Promotion (§4.3) to relocate protected spans onto surrounding tokens,
// and applies Style Cleanup (§4.6) to tighten the result.
package styler

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/mr-martian/transfuse/sentinel"
	"github.com/mr-martian/transfuse/style"
	"github.com/mr-martian/transfuse/tagpolicy"
	"github.com/mr-martian/transfuse/treeutil"
)

const protectOpen = "<tf-protect>"
const protectClose = "</tf-protect>"

// Render serializes root's children to the interim textual form, keyed to
// store for any inline style it allocates along the way.
func Render(root *etree.Element, policy *tagpolicy.Policy, store *style.Store) (string, error) {
	var b strings.Builder
	if err := renderChildren(&b, root, policy, store, false); err != nil {
		return "", err
	}
	return b.String(), nil
}

func renderChildren(b *strings.Builder, el *etree.Element, policy *tagpolicy.Policy, store *style.Store, protect bool) error {
	for _, c := range el.Child {
		switch n := c.(type) {
		case *etree.CharData:
			if policy.IsRaw(treeutil.QualifiedName(el)) {
				b.WriteString(n.Data)
			} else {
				b.WriteString(treeutil.EscapeText(n.Data))
			}
		case *etree.Element:
			if err := renderElement(b, n, policy, store, protect); err != nil {
				return err
			}
		}
	}
	return nil
}

func renderElement(b *strings.Builder, el *etree.Element, policy *tagpolicy.Policy, store *style.Store, protect bool) error {
	name := treeutil.QualifiedName(el)
	lProtect := protect || policy.IsProt(name) || el.SelectAttr("tf-protect") != nil
	protInline := policy.IsProtInline(name) && !protect

	if len(el.Child) == 0 {
		otag := treeutil.OpenTag(el, true, true)
		if protInline {
			b.WriteString(protectOpen)
			b.WriteString(otag)
			b.WriteString(protectClose)
		} else {
			b.WriteString(otag)
		}
		return nil
	}

	otag := treeutil.OpenTag(el, false, true)
	ctag := treeutil.CloseTag(el)

	if protInline {
		b.WriteString(protectOpen)
		b.WriteString(otag)
		if err := renderChildren(b, el, policy, store, true); err != nil {
			return err
		}
		b.WriteString(ctag)
		b.WriteString(protectClose)
		return nil
	}

	if !lProtect && policy.IsInline(name) && !firstChildProtected(el, policy) &&
		!treeutil.IsOnlyMeaningfulChild(el, policy) && !treeutil.HasBlockDescendant(el, policy) {
		id, err := store.Put(name, otag, ctag)
		if err != nil {
			return err
		}
		b.WriteString(sentinel.InlineOpen(name, id))
		if err := renderChildren(b, el, policy, store, false); err != nil {
			return err
		}
		b.WriteString(sentinel.InlineCloseStr())
		return nil
	}

	b.WriteString(otag)
	if err := renderChildren(b, el, policy, store, lProtect); err != nil {
		return err
	}
	b.WriteString(ctag)
	return nil
}

func firstChildProtected(el *etree.Element, policy *tagpolicy.Policy) bool {
	if len(el.Child) == 0 {
		return false
	}
	child, ok := el.Child[0].(*etree.Element)
	if !ok {
		return false
	}
	return policy.IsProt(treeutil.QualifiedName(child))
}
