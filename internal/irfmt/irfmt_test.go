package irfmt_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"spvir/internal/ir"
	"spvir/internal/irfmt"
	"spvir/internal/lower"
	"spvir/internal/spv"
	"spvir/internal/testkit"
)

func sampleListing(t *testing.T) (*ir.Module, *irfmt.Listing) {
	t.Helper()
	sm, err := spv.Read(testkit.SampleModule())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	m, err := lower.Lower(context.Background(), ir.NewContext(), sm)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return m, irfmt.Build(m)
}

func TestBuildHeader(t *testing.T) {
	_, l := sampleListing(t)
	if l.Version != "1.5" || l.Bound != testkit.SampleBound || l.Generator != testkit.SampleGenerator {
		t.Fatalf("unexpected header %q %d 0x%x", l.Version, l.Bound, l.Generator)
	}
	if diff := cmp.Diff([]string{"Shader", "Linkage", "Float64"}, l.Capabilities); diff != "" {
		t.Fatalf("capabilities (-want +got):\n%s", diff)
	}
	if l.AddressingModel != "Logical" || l.MemoryModel != "GLSL450" {
		t.Fatalf("memory model %s %s", l.AddressingModel, l.MemoryModel)
	}
}

func TestBuildEntities(t *testing.T) {
	_, l := sampleListing(t)
	if len(l.GlobalVars) != 1 || l.GlobalVars[0].AddrSpace != "Output" || l.GlobalVars[0].ID != 8 {
		t.Fatalf("global vars: %+v", l.GlobalVars)
	}
	if l.GlobalVars[0].Initializer == "" || l.GlobalVars[0].Attrs == "" {
		t.Fatalf("global var lost initializer or attrs: %+v", l.GlobalVars[0])
	}
	if len(l.Funcs) != 3 || l.Funcs[0].Import != "ext_helper" || len(l.Funcs[0].Body) != 0 {
		t.Fatalf("funcs: %+v", l.Funcs)
	}
	first := l.Funcs[1].Body[0]
	if first.Op != "OpLabel" || first.Result != "%16" || first.ResultType != "" {
		t.Fatalf("first instruction of main: %+v", first)
	}
	call := l.Funcs[1].Body[1]
	if call.Op != "OpFunctionCall" || len(call.Operands) != 2 || call.Operands[0] != "func2" {
		t.Fatalf("call: %+v", call)
	}

	var args [][]string
	for _, c := range l.Consts {
		args = append(args, c.Args)
	}
	want := [][]string{{"7"}, {"0x4014000000000000"}}
	if diff := cmp.Diff(want, args, cmpopts.SortSlices(func(a, b []string) bool { return a[0] < b[0] })); diff != "" {
		t.Fatalf("constant args (-want +got):\n%s", diff)
	}

	wantExports := []irfmt.ExportEntry{
		{Key: `"exported_fn"`, Exportee: "func2"},
		{Key: `EntryPoint(GLCompute, "main", gv0)`, Exportee: "func1"},
	}
	if diff := cmp.Diff(wantExports, l.Exports); diff != "" {
		t.Fatalf("exports (-want +got):\n%s", diff)
	}
}

func TestAttrSetsAreNamed(t *testing.T) {
	_, l := sampleListing(t)
	var all []string
	for _, a := range l.AttrSets {
		all = append(all, a.Attrs...)
	}
	joined := strings.Join(all, "\n")
	for _, want := range []string{
		`OpName("counter")`,
		`OpDecorate(Location, 0)`,
		`OpExecutionMode(LocalSize, 1, 1, 1)`,
		`line "shader.comp":3:1`,
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing attribute %s in:\n%s", want, joined)
		}
	}
}

func TestTextForm(t *testing.T) {
	_, l := sampleListing(t)
	var buf bytes.Buffer
	if err := irfmt.Text(&buf, l, irfmt.TextOpts{IDs: true}); err != nil {
		t.Fatalf("text: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"; SPIR-V 1.5, generator 0x00080001, bound 40",
		"capabilities Shader Linkage Float64",
		`func0 = func `,
		`import "ext_helper"`,
		"OpFunctionCall(func2, ",
		"; %8",
		`"exported_fn" => func2`,
		`%2 = OpString("shader.comp")`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text form lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("color escapes with color off:\n%s", out)
	}
}

func TestEncodings(t *testing.T) {
	m, l := sampleListing(t)
	opt := cmpopts.EquateEmpty()

	var jbuf bytes.Buffer
	if err := irfmt.Write(&jbuf, m, irfmt.FormatJSON, irfmt.TextOpts{}); err != nil {
		t.Fatalf("json: %v", err)
	}
	var fromJSON irfmt.Listing
	if err := json.Unmarshal(jbuf.Bytes(), &fromJSON); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if diff := cmp.Diff(*l, fromJSON, opt); diff != "" {
		t.Fatalf("json listing (-built +decoded):\n%s", diff)
	}

	var mbuf bytes.Buffer
	if err := irfmt.Write(&mbuf, m, irfmt.FormatMsgpack, irfmt.TextOpts{}); err != nil {
		t.Fatalf("msgpack: %v", err)
	}
	fromMsgpack, err := irfmt.DecodeMsgpack(&mbuf)
	if err != nil {
		t.Fatalf("decode msgpack: %v", err)
	}
	if diff := cmp.Diff(l, fromMsgpack, opt); diff != "" {
		t.Fatalf("msgpack listing (-built +decoded):\n%s", diff)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want irfmt.Format
		ok   bool
	}{
		{"", irfmt.FormatText, true},
		{"JSON", irfmt.FormatJSON, true},
		{"mp", irfmt.FormatMsgpack, true},
		{"yaml", 0, false},
	}
	for _, tt := range tests {
		got, err := irfmt.ParseFormat(tt.in)
		if (err == nil) != tt.ok || (tt.ok && got != tt.want) {
			t.Errorf("ParseFormat(%q) = %v, %v", tt.in, got, err)
		}
	}
}
