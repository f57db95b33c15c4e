package ai

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Stream is a pull-based sequence of completion fragments parsed from the
// provider's SSE body. Recv returns io.EOF after the terminal fragment; a
// partial stream cannot be resumed, only restarted with a new call.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner

	pending *Fragment // finish fragment queued behind a content fragment
	done    bool
}

func newStream(body io.ReadCloser) *Stream {
	scanner := bufio.NewScanner(body)
	// Provider chunks may exceed the default scanner buffer
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Stream{body: body, scanner: scanner}
}

// Recv returns the next fragment. A fragment with a FinishReason is always
// the last one before io.EOF.
func (s *Stream) Recv() (Fragment, error) {
	if s.done {
		return Fragment{}, io.EOF
	}
	if s.pending != nil {
		frag := *s.pending
		s.pending = nil
		s.done = true
		return frag, nil
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		if data == "[DONE]" {
			s.done = true
			return Fragment{}, io.EOF
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
				FinishReason *string `json:"finish_reason"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		token := chunk.Choices[0].Delta.Content
		reason := chunk.Choices[0].FinishReason

		if token != "" {
			if reason != nil {
				s.pending = &Fragment{FinishReason: *reason}
			}
			return Fragment{Content: token}, nil
		}
		if reason != nil {
			s.done = true
			return Fragment{FinishReason: *reason}, nil
		}
	}

	if err := s.scanner.Err(); err != nil {
		return Fragment{}, err
	}
	s.done = true
	return Fragment{}, io.EOF
}

func (s *Stream) Close() error {
	return s.body.Close()
}
