package render

import (
	"fmt"
	"strings"

	"github.com/pklgo/pklcore/util"
	"github.com/pklgo/pklcore/value"
)

// XML renders a module's root object as an indented XML document, the
// same stack-based open/close-node bookkeeping as the teacher's
// encoder.XMLEncoder (openNodes stack, deferred tag-open until a
// node's first child forces it, util.AttributeList for scalar members
// rendered as attributes rather than child elements), but walking an
// already-evaluated value.Value tree instead of a live parser event
// stream.
type XML struct{}

func (XML) Render(ev value.Evaluator, root value.ObjectValue) ([]byte, error) {
	w := &xmlWriter{}
	if err := w.writeObject(ev, "module", root, 0); err != nil {
		return nil, err
	}
	return []byte(w.sb.String()), nil
}

type xmlWriter struct {
	sb strings.Builder
}

func (w *xmlWriter) indentString(depth int) string {
	return strings.Repeat("    ", depth)
}

// writeObject renders one object as an XML element named tag: its
// scalar members become attributes (collected via a util.AttributeList
// the same way the teacher's encoder batches a node's attributes
// before the tag's opening `>` is written), its object/collection
// members become nested elements.
func (w *xmlWriter) writeObject(ev value.Evaluator, tag string, obj value.ObjectValue, depth int) error {
	attrs := util.NewAttributeList()
	var children []value.MemberKey

	err := obj.ForEachMember(func(key value.MemberKey) error {
		v, err := obj.Read(ev, obj, key)
		if err != nil {
			return err
		}
		if isScalar(v) {
			attrs.Add(key, scalarText(v))
		} else {
			children = append(children, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("render: xml: rendering %q: %w", tag, err)
	}

	w.sb.WriteString(w.indentString(depth))
	w.sb.WriteString("<")
	w.sb.WriteString(escapeXML(tag))
	for attrs.Len() > 0 {
		a := attrs.Pop()
		w.sb.WriteString(fmt.Sprintf(` %s="%s"`, escapeXML(a.Key.String()), escapeXML(a.Value)))
	}

	if len(children) == 0 {
		w.sb.WriteString("/>\n")
		return nil
	}
	w.sb.WriteString(">\n")

	for _, key := range children {
		v, err := obj.Read(ev, obj, key)
		if err != nil {
			return err
		}
		if err := w.writeMember(ev, key.String(), v, depth+1); err != nil {
			return err
		}
	}

	w.sb.WriteString(w.indentString(depth))
	w.sb.WriteString("</")
	w.sb.WriteString(escapeXML(tag))
	w.sb.WriteString(">\n")
	return nil
}

func (w *xmlWriter) writeMember(ev value.Evaluator, tag string, v value.Value, depth int) error {
	switch nv := v.(type) {
	case value.ObjectValue:
		return w.writeObject(ev, tag, nv, depth)
	default:
		w.sb.WriteString(w.indentString(depth))
		w.sb.WriteString(fmt.Sprintf("<%s>%s</%s>\n", escapeXML(tag), escapeXML(scalarText(v)), escapeXML(tag)))
		return nil
	}
}

func isScalar(v value.Value) bool {
	_, ok := v.(value.ObjectValue)
	return !ok
}

func scalarText(v value.Value) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}

// escapeXML replaces XML's four reserved characters, same replacer the
// teacher's escapeXMLSafe uses.
func escapeXML(s string) string {
	replacer := strings.NewReplacer("<", "&lt;", ">", "&gt;", "&", "&amp;", `"`, "&quot;")
	return replacer.Replace(s)
}
