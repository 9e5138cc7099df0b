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


package storage

import "errors"

var (
	// ErrNotFound indicates that no chunk exists with the requested ID.
	ErrNotFound = errors.New("chunk not found")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery indicates invalid search or paging parameters, or a
	// store that lacks the match_documents function.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed indicates a chunk could not be encoded for the
	// store or a response could not be decoded.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrUnexpectedStatus indicates that a remote store answered with a non-success status.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)
