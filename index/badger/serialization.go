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


package badger

import (
	"fmt"
	"maps"
	"slices"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/docproc/index"
)

// recordVersion prefixes every stored value so the layout can evolve.
const recordVersion uint64 = 1

// encoder writes fields into a buffer sized in advance.
type encoder struct {
	buf []byte
	n   int
}

func (e *encoder) uint64(v uint64) { e.n += varint.Uint64.Marshal(v, e.buf[e.n:]) }
func (e *encoder) int(v int)       { e.n += varint.Int64.Marshal(int64(v), e.buf[e.n:]) }
func (e *encoder) string(v string) { e.n += ord.String.Marshal(v, e.buf[e.n:]) }

func (e *encoder) metadata(md map[string]string) {
	e.uint64(uint64(len(md)))
	for _, k := range slices.Sorted(maps.Keys(md)) {
		e.string(k)
		e.string(md[k])
	}
}

func sizeInt(v int) int       { return varint.Int64.Size(int64(v)) }
func sizeString(v string) int { return ord.String.Size(v) }

func sizeMetadata(md map[string]string) int {
	size := varint.Uint64.Size(uint64(len(md)))
	for k, v := range md {
		size += sizeString(k) + sizeString(v)
	}
	return size
}

// decoder reads fields in order and keeps the first error.
type decoder struct {
	data []byte
	n    int
	err  error
}

func (d *decoder) uint64() uint64 {
	if d.err != nil {
		return 0
	}
	v, m, err := varint.Uint64.Unmarshal(d.data[d.n:])
	d.n += m
	d.err = err
	return v
}

func (d *decoder) int() int {
	if d.err != nil {
		return 0
	}
	v, m, err := varint.Int64.Unmarshal(d.data[d.n:])
	d.n += m
	d.err = err
	return int(v)
}

func (d *decoder) string() string {
	if d.err != nil {
		return ""
	}
	v, m, err := ord.String.Unmarshal(d.data[d.n:])
	d.n += m
	d.err = err
	return v
}

func (d *decoder) metadata() map[string]string {
	count := d.uint64()
	if d.err != nil {
		return nil
	}
	if count > uint64(len(d.data)) {
		d.err = fmt.Errorf("metadata count %d exceeds record size", count)
		return nil
	}
	md := make(map[string]string, count)
	for range count {
		k := d.string()
		v := d.string()
		if d.err != nil {
			return nil
		}
		md[k] = v
	}
	return md
}

func (d *decoder) version() {
	if v := d.uint64(); d.err == nil && v != recordVersion {
		d.err = fmt.Errorf("%w: %d", ErrUnknownVersion, v)
	}
}

func (d *decoder) finish() error {
	if d.err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptRecord, d.err)
	}
	return nil
}

// MarshalChunk serializes a ChunkRecord to bytes.
func MarshalChunk(r *index.ChunkRecord) []byte {
	size := varint.Uint64.Size(recordVersion) +
		sizeString(r.ID) +
		sizeString(r.DocumentID) +
		sizeInt(r.ChunkIndex) +
		sizeString(r.Text) +
		sizeMetadata(r.Metadata)

	e := &encoder{buf: make([]byte, size)}
	e.uint64(recordVersion)
	e.string(r.ID)
	e.string(r.DocumentID)
	e.int(r.ChunkIndex)
	e.string(r.Text)
	e.metadata(r.Metadata)
	return e.buf
}

// UnmarshalChunk deserializes a ChunkRecord from bytes.
func UnmarshalChunk(data []byte) (*index.ChunkRecord, error) {
	d := &decoder{data: data}
	d.version()
	r := &index.ChunkRecord{
		ID:         d.string(),
		DocumentID: d.string(),
		ChunkIndex: d.int(),
		Text:       d.string(),
		Metadata:   d.metadata(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return r, nil
}

// MarshalDocument serializes a DocumentRecord to bytes.
func MarshalDocument(r *index.DocumentRecord) []byte {
	size := varint.Uint64.Size(recordVersion) +
		sizeString(r.ID) +
		sizeString(r.Filename) +
		sizeString(r.Summary) +
		sizeInt(r.ChunkCount) +
		sizeInt(r.UnitCount) +
		sizeMetadata(r.Metadata)

	e := &encoder{buf: make([]byte, size)}
	e.uint64(recordVersion)
	e.string(r.ID)
	e.string(r.Filename)
	e.string(r.Summary)
	e.int(r.ChunkCount)
	e.int(r.UnitCount)
	e.metadata(r.Metadata)
	return e.buf
}

// UnmarshalDocument deserializes a DocumentRecord from bytes.
func UnmarshalDocument(data []byte) (*index.DocumentRecord, error) {
	d := &decoder{data: data}
	d.version()
	r := &index.DocumentRecord{
		ID:         d.string(),
		Filename:   d.string(),
		Summary:    d.string(),
		ChunkCount: d.int(),
		UnitCount:  d.int(),
		Metadata:   d.metadata(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return r, nil
}
