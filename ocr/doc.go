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


// Package ocr recognizes text in rasters when a document has no usable text
// layer.
//
// Engine is the contract for an OCR backend and Renderer the contract for
// turning a document page into a raster. Fallback combines the two with a
// fixed default resolution, per-call timeouts, retries of transient failures
// and whitespace normalization. Engine availability is checked lazily so
// documents that never need OCR work on hosts without an engine.
package ocr
