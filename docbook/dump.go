package docbook

import (
	"dbmd/utils/debug"
)

const dumpTextLimit = 60

// DumpEvents renders event stream of the document as indented tree. When
// document is malformed, dump up to the failure point is returned together
// with the error.
func DumpEvents(data []byte, entities map[string]string) (string, error) {
	src := NewSource(data, entities)
	tw := debug.NewTreeWriter("  ", dumpTextLimit)
	for {
		ev, err := src.Next()
		if err != nil {
			return tw.String(), err
		}
		// depth is taken after the event was consumed
		depth := src.Depth()
		switch ev.Kind {
		case EventEOF:
			return tw.String(), nil
		case EventStart:
			tw.Node(depth-1, ev.String(), attrPairs(ev.Attrs)...)
		case EventEmpty:
			tw.Node(depth, ev.String(), attrPairs(ev.Attrs)...)
		case EventEnd:
			tw.Node(depth, ev.String())
		case EventText:
			if !ev.IsBlank() {
				tw.Text(depth, ev.String(), ev.Text)
			}
		case EventEntityRef:
			tw.Text(depth, ev.String(), ev.Decoded())
		default:
			tw.Node(depth, ev.String())
		}
	}
}

func attrPairs(attrs []Attr) []string {
	pairs := make([]string, 0, len(attrs)*2)
	for _, a := range attrs {
		pairs = append(pairs, a.Name, a.Value)
	}
	return pairs
}
