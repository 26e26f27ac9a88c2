// Package blockextract implements the Block Extractor (spec §4.4): it
// walks the reparsed "styled" tree, emits translatable attribute values and
// text runs to the output stream, and replaces them in the tree with
// block-sentinel markers so the injector can find them again later.
package blockextract

import (
	"github.com/beevik/etree"

	"github.com/mr-martian/transfuse/sentinel"
	"github.com/mr-martian/transfuse/tagpolicy"
	"github.com/mr-martian/transfuse/treeutil"
)

// BlockWriter receives each extracted block in extraction order. Codec
// implementations satisfy this to stream blocks out as they're found,
// rather than buffering the whole document in memory.
type BlockWriter interface {
	WriteBlock(id, body string) error
}

// Extract walks root's subtree, honoring policy's prot/text_attrs/
// parents_allow/parents_direct tables, writing every translatable block
// through w and replacing its source with a block-sentinel pair. txt
// seeds the "currently inside an allowed parent" flag — pass false at the
// top-level call; parents_allow being empty makes every parent allowed
// regardless.
func Extract(el *etree.Element, policy *tagpolicy.Policy, w BlockWriter, txt bool) error {
	if !policy.HasParentsAllow() {
		txt = true
	}
	if err := extractTextAttrs(el, policy, w); err != nil {
		return err
	}

	for _, c := range el.Child {
		switch n := c.(type) {
		case *etree.Element:
			name := treeutil.QualifiedName(n)
			if policy.IsProt(name) {
				continue
			}
			childTxt := txt
			if policy.HasParentsAllow() && policy.IsParentAllow(name) {
				childTxt = true
			}
			if err := Extract(n, policy, w, childTxt); err != nil {
				return err
			}
		case *etree.CharData:
			if err := extractText(n, policy, w, txt); err != nil {
				return err
			}
		}
	}
	return nil
}

func extractTextAttrs(el *etree.Element, policy *tagpolicy.Policy, w BlockWriter) error {
	for _, a := range el.Attr {
		if !policy.IsTextAttr(a.Key) {
			continue
		}
		if !treeutil.HasAlphanumeric(a.Value) {
			continue
		}
		id := sentinel.NextID(a.Value)
		if err := w.WriteBlock(id, a.Value); err != nil {
			return err
		}
		el.CreateAttr(a.Key, sentinel.BlockOpen(id)+a.Value+sentinel.BlockClose(id))
	}
	return nil
}

func extractText(cd *etree.CharData, policy *tagpolicy.Policy, w BlockWriter, txt bool) error {
	if !txt || cd.Data == "" {
		return nil
	}
	parent := cd.Parent()
	if parent == nil || parent.SelectAttr("tf-protect") != nil {
		return nil
	}
	pname := treeutil.QualifiedName(parent)
	if policy.HasParentsDirect() && !policy.IsParentDirect(pname) {
		return nil
	}
	if !treeutil.HasAlphanumeric(cd.Data) {
		return nil
	}

	id := sentinel.NextID(cd.Data)
	if err := w.WriteBlock(id, cd.Data); err != nil {
		return err
	}
	cd.Data = sentinel.BlockOpen(id) + cd.Data + sentinel.BlockClose(id)
	return nil
}
