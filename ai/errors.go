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


package ai

import "errors"

var (
	// ErrEmptyEmbedding is returned when the embedding service returns no vector.
	ErrEmptyEmbedding = errors.New("embedding service returned an empty vector")

	// ErrNoCompletion is returned when the chat service returns no choices.
	ErrNoCompletion = errors.New("chat service returned no completion")

	// ErrUnknownRole is returned when a message carries a role the backend cannot map.
	ErrUnknownRole = errors.New("unknown message role")
)
