// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

// openArchive opens an Office Open XML container held in memory.
func openArchive(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return zr, nil
}

func readPart(zr *zip.Reader, name string) ([]byte, error) {
	data, err := fs.ReadFile(zr, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingPart, name)
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

type relationships struct {
	Items []relationship `xml:"Relationship"`
}

// readRels parses the relationships of part, resolving targets against the
// part's directory. A part without relationships yields an empty map.
func readRels(zr *zip.Reader, part string) (map[string]relationship, error) {
	dir, file := path.Split(part)
	data, err := readPart(zr, path.Join(dir, "_rels", file+".rels"))
	if errors.Is(err, ErrMissingPart) {
		return map[string]relationship{}, nil
	}
	if err != nil {
		return nil, err
	}

	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("%w: relationships of %s: %w", ErrMalformedDocument, part, err)
	}
	out := make(map[string]relationship, len(rels.Items))
	for _, r := range rels.Items {
		if !strings.HasPrefix(r.Target, "/") {
			r.Target = path.Join(dir, r.Target)
		} else {
			r.Target = strings.TrimPrefix(r.Target, "/")
		}
		out[r.ID] = r
	}
	return out, nil
}

// tokens walks the XML in data, calling fn for each token. Decoding errors
// other than EOF are reported as malformed markup.
func tokens(data []byte, fn func(xml.Token)) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
		fn(tok)
	}
}

// tableBuilder accumulates table text as rows of " | " separated cells.
type tableBuilder struct {
	rows  []string
	cells []string
	paras []string
}

func (t *tableBuilder) startRow() {
	t.cells = nil
}

func (t *tableBuilder) startCell() {
	t.paras = nil
}

func (t *tableBuilder) addParagraph(s string) {
	if s != "" {
		t.paras = append(t.paras, s)
	}
}

func (t *tableBuilder) endCell() {
	t.cells = append(t.cells, strings.Join(t.paras, " "))
}

func (t *tableBuilder) endRow() {
	for _, c := range t.cells {
		if c != "" {
			t.rows = append(t.rows, strings.Join(t.cells, " | "))
			return
		}
	}
}

func (t *tableBuilder) text() string {
	return strings.Join(t.rows, "\n")
}
