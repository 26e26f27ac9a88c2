// Package tagpolicy holds the per-format-adapter tag classification tables
// the rest of the pipeline consults: which element names are inline,
// protected, protected-inline, raw, which parents carry translatable text,
// and which attributes carry translatable values.
//
// All name comparisons are case-insensitive, ASCII-lower canonical form,
// matching the reference implementation's to_lower(name) convention.
package tagpolicy

import "strings"

// Policy is one named set of tag tables, scoped to a single format adapter
// (e.g. "html", "text").
type Policy struct {
	// Inline names carry character-level formatting (span-like).
	Inline []string `yaml:"inline"`
	// Prot names have subtrees that must be passed through opaque.
	Prot []string `yaml:"prot"`
	// ProtInline names are inline but their markup must be preserved verbatim.
	ProtInline []string `yaml:"prot_inline"`
	// Raw names have text content that must not be entity-escaped.
	Raw []string `yaml:"raw"`
	// ParentsAllow lists names whose text children are translatable. Empty ⇒ all allowed.
	ParentsAllow []string `yaml:"parents_allow"`
	// ParentsDirect further restricts ParentsAllow to only these names, when non-empty.
	ParentsDirect []string `yaml:"parents_direct"`
	// TextAttrs lists attribute names whose values are translatable strings.
	TextAttrs []string `yaml:"text_attrs"`

	inline        set
	prot          set
	protInline    set
	raw           set
	parentsAllow  set
	parentsDirect set
	textAttrs     set
}

type set map[string]struct{}

func newSet(names []string) set {
	s := make(set, len(names))
	for _, n := range names {
		s[canon(n)] = struct{}{}
	}
	return s
}

// canon lower-cases a name for table comparison. Qualified names (e.g.
// "w:ins") are compared whole, prefix included, matching the reference
// implementation's to_lower(prefix:local) convention — policy tables for
// namespaced formats list the prefixed form explicitly.
func canon(name string) string {
	return strings.ToLower(name)
}

func (s set) has(name string) bool {
	_, ok := s[canon(name)]
	return ok
}

// Compile indexes the table slices into lookup sets. Must be called once
// after the Policy is loaded (e.g. from YAML) and before any lookup method
// is used.
func (p *Policy) Compile() {
	p.inline = newSet(p.Inline)
	p.prot = newSet(p.Prot)
	p.protInline = newSet(p.ProtInline)
	p.raw = newSet(p.Raw)
	p.parentsAllow = newSet(p.ParentsAllow)
	p.parentsDirect = newSet(p.ParentsDirect)
	p.textAttrs = newSet(p.TextAttrs)
}

// IsInline reports whether name is in the inline set.
func (p *Policy) IsInline(name string) bool { return p.inline.has(name) }

// IsProt reports whether name is in the prot (opaque subtree) set.
func (p *Policy) IsProt(name string) bool { return p.prot.has(name) }

// IsProtInline reports whether name is in the prot_inline set.
func (p *Policy) IsProtInline(name string) bool { return p.protInline.has(name) }

// IsRaw reports whether name's text content must not be entity-escaped.
func (p *Policy) IsRaw(name string) bool { return p.raw.has(name) }

// IsTextAttr reports whether attrName carries a translatable value.
func (p *Policy) IsTextAttr(attrName string) bool { return p.textAttrs.has(attrName) }

// AllowsText reports whether an element named parentName may have
// translatable text children, honoring both ParentsAllow and the further
// ParentsDirect restriction.
func (p *Policy) AllowsText(parentName string) bool {
	if len(p.parentsDirect) > 0 {
		return p.parentsDirect.has(parentName)
	}
	if len(p.parentsAllow) == 0 {
		return true
	}
	return p.parentsAllow.has(parentName)
}

// IsParentAllow reports whether name is in the parents_allow set, or
// whether that set is empty (meaning every parent is allowed). Unlike
// AllowsText, this ignores ParentsDirect — the Block Extractor applies
// that restriction separately, at the point a text node is about to be
// emitted, against its immediate parent only.
func (p *Policy) IsParentAllow(name string) bool {
	return len(p.parentsAllow) == 0 || p.parentsAllow.has(name)
}

// HasParentsAllow reports whether any parents_allow restriction is configured.
func (p *Policy) HasParentsAllow() bool { return len(p.parentsAllow) > 0 }

// IsParentDirect reports whether name is in the parents_direct set.
func (p *Policy) IsParentDirect(name string) bool { return p.parentsDirect.has(name) }

// HasParentsDirect reports whether any parents_direct restriction is configured.
func (p *Policy) HasParentsDirect() bool { return len(p.parentsDirect) > 0 }
