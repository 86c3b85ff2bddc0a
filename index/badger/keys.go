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
	"encoding/binary"
)

const (
	documentPrefix = "docrec:"
	chunkPrefix    = "chkrec:"
)

// makeDocumentKey generates a key for a document record by ID.
func makeDocumentKey(id string) []byte {
	return []byte(documentPrefix + id)
}

// makeChunkPrefix generates the prefix shared by all chunks of a document.
// Format: prefix:len(id):id
func makeChunkPrefix(documentID string) []byte {
	buf := make([]byte, 0, len(chunkPrefix)+4+len(documentID))
	buf = append(buf, chunkPrefix...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(documentID)))
	return append(buf, documentID...)
}

// makeChunkKey generates a composite key for a chunk.
// Format: prefix:len(id):id:index, index in BigEndian so chunks sort in order.
func makeChunkKey(documentID string, index int) []byte {
	buf := makeChunkPrefix(documentID)
	return binary.BigEndian.AppendUint32(buf, uint32(index))
}
