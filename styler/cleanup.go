package styler

import "regexp"

var (
	rxAlphaPrefix = regexp.MustCompile(`([\p{L}\p{N}\p{M}]*?[\p{L}\p{M}])(\x{E011}[^\x{E012}]+\x{E012})(\p{L}+)`)
	rxAlphaSuffix = regexp.MustCompile(`(\p{L}[\p{L}\p{M}]*)(\x{E013})(\p{L}[\p{L}\p{N}\p{M}]*)`)
	rxSpcPrefix   = regexp.MustCompile(`(\x{E011}[^\x{E012}]+\x{E012})([\s\p{Zs}]+)`)
	rxSpcSuffix   = regexp.MustCompile(`([\s\p{Zs}]+)(\x{E013})`)
	rxMergeHead   = regexp.MustCompile(`(\x{E011}[^\x{E012}]+\x{E012})([^\x{E011}-\x{E013}]+)\x{E013}([\s\p{Zs}]*)`)
)

// Cleanup runs the Style Cleanup passes (spec §4.6), in order: alphanumeric
// prefix/suffix migration across inline boundaries, whitespace migration
// out of spans, then merging of adjacent identical spans.
func Cleanup(s string) string {
	s = migrateAlphaPrefix(s)
	s = migrateAlphaSuffix(s)
	s = migrateSpacePrefix(s)
	s = migrateSpaceSuffix(s)
	s = mergeAdjacentIdenticalSpans(s)
	return s
}

// migrateAlphaPrefix moves an alphanumeric run immediately preceding an
// inline-open delimiter to just inside it, when the delimiter's body
// itself starts with a letter run — "abc<open>def" -> "<open>abcdef".
func migrateAlphaPrefix(s string) string {
	var out []byte
	last := 0
	for _, m := range rxAlphaPrefix.FindAllStringSubmatchIndex(s, -1) {
		if m[0] < last {
			continue
		}
		pb, pe := m[2], m[3]
		tb, te := m[4], m[5]
		sb, se := m[6], m[7]
		out = append(out, s[last:pb]...)
		out = append(out, s[tb:te]...)
		out = append(out, s[pb:pe]...)
		out = append(out, s[sb:se]...)
		last = se
	}
	out = append(out, s[last:]...)
	return string(out)
}

// migrateAlphaSuffix moves a letter run immediately following an
// inline-close delimiter to just inside it.
func migrateAlphaSuffix(s string) string {
	var out []byte
	last := 0
	for _, m := range rxAlphaSuffix.FindAllStringSubmatchIndex(s, -1) {
		if m[0] < last {
			continue
		}
		pb, pe := m[2], m[3]
		tb, te := m[4], m[5]
		sb, se := m[6], m[7]
		out = append(out, s[last:pb]...)
		out = append(out, s[pb:pe]...)
		out = append(out, s[sb:se]...)
		out = append(out, s[tb:te]...)
		last = se
	}
	out = append(out, s[last:]...)
	return string(out)
}

// migrateSpacePrefix moves whitespace immediately inside an inline-open
// delimiter to just before it.
func migrateSpacePrefix(s string) string {
	var out []byte
	last := 0
	for _, m := range rxSpcPrefix.FindAllStringSubmatchIndex(s, -1) {
		if m[0] < last {
			continue
		}
		tb, te := m[2], m[3]
		sb, se := m[4], m[5]
		out = append(out, s[last:tb]...)
		out = append(out, s[sb:se]...)
		out = append(out, s[tb:te]...)
		last = se
	}
	out = append(out, s[last:]...)
	return string(out)
}

// migrateSpaceSuffix moves whitespace immediately inside an inline-close
// delimiter to just after it.
func migrateSpaceSuffix(s string) string {
	var out []byte
	last := 0
	for _, m := range rxSpcSuffix.FindAllStringSubmatchIndex(s, -1) {
		if m[0] < last {
			continue
		}
		tb, te := m[2], m[3]
		sb, se := m[4], m[5]
		out = append(out, s[last:tb]...)
		out = append(out, s[sb:se]...)
		out = append(out, s[tb:te]...)
		last = se
	}
	out = append(out, s[last:]...)
	return string(out)
}

// mergeAdjacentIdenticalSpans merges "<open>body</close><ws><open>" into a
// single span when the two open delimiters are byte-identical, preserving
// the whitespace between the bodies. Go's RE2 engine has no backreference
// support, so the repeated-delimiter test is done by direct string
// comparison against the regex's first capture rather than in the pattern.
func mergeAdjacentIdenticalSpans(s string) string {
	var out []byte
	pos := 0
	for pos < len(s) {
		m := rxMergeHead.FindStringSubmatchIndex(s[pos:])
		if m == nil {
			break
		}
		openB, openE := pos+m[2], pos+m[3]
		bodyE := pos + m[5]
		spaceB, spaceE := pos+m[6], pos+m[7]
		open := s[openB:openE]

		afterSpace := spaceE
		if !hasPrefixAt(s, afterSpace, open) {
			out = append(out, s[pos:pos+m[1]]...)
			pos = pos + m[1]
			continue
		}

		out = append(out, s[pos:openB]...)
		out = append(out, s[openB:bodyE]...)
		out = append(out, s[spaceB:spaceE]...)
		pos = afterSpace + len(open)
	}
	out = append(out, s[pos:]...)
	return string(out)
}

func hasPrefixAt(s string, at int, prefix string) bool {
	if at+len(prefix) > len(s) {
		return false
	}
	return s[at:at+len(prefix)] == prefix
}
