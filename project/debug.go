package project

import (
	"github.com/beevik/etree"

	"github.com/mr-martian/transfuse/treeutil"
	"github.com/mr-martian/transfuse/utils/debug"
)

// dumpTree renders el's subtree as an indented, human-readable listing for
// inclusion in a debug report bundle, alongside the project's raw XML
// artifacts - easier to eyeball than styled.xml/injected.xml when a run's
// sidecar attributes or sentinel placement need checking by hand.
func dumpTree(el *etree.Element) string {
	tw := debug.NewTreeWriter()
	dumpElement(tw, el, 0)
	return tw.String()
}

func dumpElement(tw *debug.TreeWriter, el *etree.Element, depth int) {
	tw.Line(depth, "<%s>", treeutil.QualifiedName(el))
	for _, a := range el.Attr {
		tw.Line(depth+1, "@%s=%q", a.Key, a.Value)
	}
	for _, c := range el.Child {
		switch n := c.(type) {
		case *etree.Element:
			dumpElement(tw, n, depth+1)
		case *etree.CharData:
			tw.TextBlock(depth+1, "text", n.Data)
		}
	}
}
