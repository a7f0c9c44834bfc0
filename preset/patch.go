package preset

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-flow/flow"
)

// PatchFormat is the version of the patch file layout written by EncodePatch.
const PatchFormat = 1

// PatchFile is the JSON schema for patch files.
type PatchFile struct {
	Format  int    `json:"format"`
	Name    string `json:"name,omitempty"`
	Author  string `json:"author,omitempty"`
	Info    string `json:"info,omitempty"`
	Date    string `json:"date,omitempty"`
	Version int    `json:"version,omitempty"`

	// Output is the index of the output node; absent means none.
	Output *int         `json:"output,omitempty"`
	Nodes  []NodeRecord `json:"nodes"`
}

// NodeRecord is one node of a patch file.
type NodeRecord struct {
	Type        string       `json:"type"`
	Version     int          `json:"version"`
	Options     []int        `json:"options,omitempty"`
	Modulations []WireRecord `json:"modulations,omitempty"`
	Inputs      []int        `json:"inputs,omitempty"`
}

// WireRecord binds one modulation input. Node -1 is the constant Value.
type WireRecord struct {
	Node  int     `json:"node"`
	Port  int     `json:"port,omitempty"`
	Value float64 `json:"value,omitempty"`
}

// FromPatch converts an engine patch to its file form.
func FromPatch(p *flow.Patch) *PatchFile {
	f := &PatchFile{
		Format:  PatchFormat,
		Name:    p.Name,
		Author:  p.Author,
		Info:    p.Info,
		Date:    p.Date,
		Version: p.Version,
		Nodes:   make([]NodeRecord, len(p.Nodes)),
	}
	if p.Output >= 0 {
		out := p.Output
		f.Output = &out
	}
	for i, r := range p.Nodes {
		nr := NodeRecord{
			Type:    r.Type,
			Version: r.Version,
			Options: append([]int(nil), r.Options...),
			Inputs:  append([]int(nil), r.Inputs...),
		}
		for _, w := range r.Modulations {
			nr.Modulations = append(nr.Modulations, WireRecord(w))
		}
		f.Nodes[i] = nr
	}
	return f
}

// ToPatch converts a parsed file into an engine patch. Graph validation is
// left to flow.Engine.Load.
func (f *PatchFile) ToPatch() (*flow.Patch, error) {
	if f.Format > PatchFormat {
		return nil, fmt.Errorf("patch format %d is newer than supported format %d", f.Format, PatchFormat)
	}
	p := &flow.Patch{
		Name:    f.Name,
		Author:  f.Author,
		Info:    f.Info,
		Date:    f.Date,
		Version: f.Version,
		Output:  -1,
		Nodes:   make([]flow.Record, len(f.Nodes)),
	}
	if f.Output != nil {
		if *f.Output < 0 || *f.Output >= len(f.Nodes) {
			return nil, fmt.Errorf("output %d outside nodes [0,%d)", *f.Output, len(f.Nodes))
		}
		p.Output = *f.Output
	}
	for i, nr := range f.Nodes {
		if strings.TrimSpace(nr.Type) == "" {
			return nil, fmt.Errorf("nodes[%d]: missing type", i)
		}
		r := flow.Record{
			Type:    strings.TrimSpace(nr.Type),
			Version: nr.Version,
			Options: append([]int(nil), nr.Options...),
			Inputs:  append([]int(nil), nr.Inputs...),
		}
		for _, w := range nr.Modulations {
			r.Modulations = append(r.Modulations, flow.Wire(w))
		}
		p.Nodes[i] = r
	}
	return p, nil
}

// EncodePatch writes p as indented JSON, gzip-compressed if compress is set.
func EncodePatch(w io.Writer, p *flow.Patch, compress bool) error {
	if p == nil {
		return fmt.Errorf("nil patch")
	}
	if !compress {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(FromPatch(p))
	}

	zw := gzip.NewWriter(w)
	zw.Name = p.Name
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromPatch(p)); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// DecodePatch reads a patch written by EncodePatch. Compressed and plain
// files are told apart by the gzip magic bytes.
func DecodePatch(r io.Reader) (*flow.Patch, error) {
	br := bufio.NewReader(r)
	src := io.Reader(br)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	var f PatchFile
	if err := json.NewDecoder(src).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	return f.ToPatch()
}

// LoadPatch reads a patch file.
func LoadPatch(path string) (*flow.Patch, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	p, err := DecodePatch(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// SavePatch writes p to path, compressed when the name ends in ".gz".
func SavePatch(path string, p *flow.Patch) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	compress := strings.EqualFold(filepath.Ext(path), ".gz")
	if err := EncodePatch(fh, p, compress); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}
