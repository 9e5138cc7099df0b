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


package supabase

import (
	"errors"
	"fmt"

	"github.com/poiesic/ragask/storage"
)

var (
	// ErrURLRequired is returned when no project URL is configured.
	ErrURLRequired = errors.New("supabase URL is required")

	// ErrKeyRequired is returned when no API key is configured.
	ErrKeyRequired = errors.New("supabase key is required")
)

// APIError is the error object PostgREST returns with non-2xx responses.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Code       string `json:"code"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("supabase: %s (status %d", e.Message, e.StatusCode)
	if e.Code != "" {
		msg += ", code " + e.Code
	}
	msg += ")"
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

// Unwrap maps missing-function errors to storage.ErrInvalidQuery and every
// other failure to storage.ErrUnexpectedStatus.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "PGRST202", "42883":
		return storage.ErrInvalidQuery
	}
	return storage.ErrUnexpectedStatus
}
