package irfmt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// TextOpts configures the text form.
type TextOpts struct {
	Color bool
	// IDs appends the original SPIR-V id of declarations.
	IDs bool
}

type palette struct {
	name, op, lit, comment *color.Color
}

func newPalette(on bool) palette {
	p := palette{
		name:    color.New(color.FgYellow),
		op:      color.New(color.FgCyan, color.Bold),
		lit:     color.New(color.FgGreen),
		comment: color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{p.name, p.op, p.lit, p.comment} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Text writes l in its indented text form.
func Text(w io.Writer, l *Listing, opts TextOpts) error {
	bw := bufio.NewWriter(w)
	p := newPalette(opts.Color)
	pr := func(format string, args ...any) { fmt.Fprintf(bw, format, args...) }

	pr("%s\n", p.comment.Sprintf("; SPIR-V %s, generator 0x%08x, bound %d", l.Version, l.Generator, l.Bound))
	if len(l.Capabilities) > 0 {
		pr("capabilities %s\n", strings.Join(l.Capabilities, " "))
	}
	for _, ext := range l.Extensions {
		pr("extension %s\n", p.lit.Sprintf("%q", ext))
	}
	pr("memory_model %s %s\n", l.AddressingModel, l.MemoryModel)
	for _, ext := range l.SourceExts {
		pr("source_extension %s\n", p.lit.Sprintf("%q", ext))
	}
	for _, proc := range l.Processes {
		pr("processed %s\n", p.lit.Sprintf("%q", proc))
	}

	if len(l.AttrSets) > 0 {
		pr("\n")
	}
	for _, a := range l.AttrSets {
		pr("%s = {%s}\n", p.name.Sprint(a.Name), strings.Join(a.Attrs, ", "))
	}
	if len(l.Types)+len(l.Consts) > 0 {
		pr("\n")
	}
	for _, t := range l.Types {
		pr("%s = %s%s\n", p.name.Sprint(t.Name), prefixAttrs(t.Attrs), call(p, t.Ctor, t.Args))
	}
	for _, c := range l.Consts {
		pr("%s = %s%s: %s\n", p.name.Sprint(c.Name), prefixAttrs(c.Attrs), call(p, c.Ctor, c.Args), c.Type)
	}

	if len(l.GlobalVars) > 0 {
		pr("\n")
	}
	for _, gv := range l.GlobalVars {
		pr("%s = %svar %s in %s", p.name.Sprint(gv.Name), prefixAttrs(gv.Attrs), gv.Type, gv.AddrSpace)
		switch {
		case gv.Import != "":
			pr(" import %s", p.lit.Sprintf("%q", gv.Import))
		case gv.Initializer != "":
			pr(" = %s", gv.Initializer)
		}
		if opts.IDs && gv.ID != 0 {
			pr(" %s", p.comment.Sprintf("; %%%d", gv.ID))
		}
		pr("\n")
	}

	for _, f := range l.Funcs {
		pr("\n%s = %sfunc %s -> %s", p.name.Sprint(f.Name), prefixAttrs(f.Attrs), f.Type, f.RetType)
		if f.Import != "" {
			pr(" import %s", p.lit.Sprintf("%q", f.Import))
		}
		if opts.IDs && f.ID != 0 {
			pr(" %s", p.comment.Sprintf("; %%%d", f.ID))
		}
		if f.Import != "" {
			pr("\n")
			continue
		}
		pr(" {\n")
		for _, in := range f.Body {
			pr("  %s\n", inst(p, in))
		}
		pr("}\n")
	}

	if len(l.Globals) > 0 {
		pr("\nglobals {\n")
		for _, in := range l.Globals {
			pr("  %s\n", inst(p, in))
		}
		pr("}\n")
	}
	if len(l.Exports) > 0 {
		pr("\nexports {\n")
		for _, ex := range l.Exports {
			pr("  %s => %s\n", ex.Key, p.name.Sprint(ex.Exportee))
		}
		pr("}\n")
	}
	return bw.Flush()
}

func prefixAttrs(name string) string {
	if name == "" {
		return ""
	}
	return name + " "
}

func call(p palette, op string, args []string) string {
	return p.op.Sprint(op) + "(" + strings.Join(args, ", ") + ")"
}

func inst(p palette, in InstEntry) string {
	var b strings.Builder
	b.WriteString(prefixAttrs(in.Attrs))
	if in.Result != "" {
		b.WriteString(in.Result)
		if in.ResultType != "" {
			b.WriteString(": " + in.ResultType)
		}
		b.WriteString(" = ")
	}
	b.WriteString(call(p, in.Op, in.Operands))
	return b.String()
}
