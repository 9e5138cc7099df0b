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

package ingestion

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document is a unit of source text and where it came from.
type Document struct {
	Source string
	Text   string
}

// LoadFile reads a document from disk. Files ending in .pdf have their
// plain text extracted; anything else is read as text.
func LoadFile(path string) (Document, error) {
	var (
		text string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = readPDF(path)
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return Document{Source: path, Text: text}, nil
}

func readPDF(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// MaxLineSize is the longest line LoadLines accepts.
const MaxLineSize = 1 << 20

// LoadLines returns an iterator over the lines of a file. A read failure,
// including a line longer than MaxLineSize, is yielded once with an empty
// line and ends iteration. The file is closed when iteration ends.
func LoadLines(path string) (iter.Seq2[string, error], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	return func(yield func(string, error) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
		for scanner.Scan() {
			if !yield(scanner.Text(), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("failed to read %s: %w", path, err))
		}
	}, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
