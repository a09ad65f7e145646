package irfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"spvir/internal/ir"
)

// Format selects an output form.
type Format uint8

const (
	FormatText Format = iota
	FormatJSON
	FormatMsgpack
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	case FormatMsgpack:
		return "msgpack"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// ParseFormat resolves a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	default:
		return 0, fmt.Errorf("unknown format %q (want text, json or msgpack)", s)
	}
}

// JSON writes l as indented JSON.
func JSON(w io.Writer, l *Listing) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(l)
}

// Msgpack writes l as MessagePack.
func Msgpack(w io.Writer, l *Listing) error {
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	return enc.Encode(l)
}

// DecodeMsgpack reads a listing written by Msgpack.
func DecodeMsgpack(r io.Reader) (*Listing, error) {
	var l Listing
	if err := msgpack.NewDecoder(r).Decode(&l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Write renders m in the given format.
func Write(w io.Writer, m *ir.Module, f Format, opts TextOpts) error {
	l := Build(m)
	switch f {
	case FormatText:
		return Text(w, l, opts)
	case FormatJSON:
		return JSON(w, l)
	case FormatMsgpack:
		return Msgpack(w, l)
	default:
		return fmt.Errorf("irfmt: unsupported format %s", f)
	}
}
