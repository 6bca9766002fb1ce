package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// StripCodeFence removes an optional markdown fence (``` or ```json) around a completion.
func StripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "```json"):
		trimmed = trimmed[len("```json"):]
	case strings.HasPrefix(lower, "```"):
		trimmed = trimmed[len("```"):]
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// DecodeObject parses a completion as exactly one JSON object. Numbers are
// kept as json.Number so the payload round-trips verbatim.
func DecodeObject(content string) (map[string]interface{}, error) {
	body := StripCodeFence(content)
	if body == "" {
		return nil, &ResponseError{Reason: "empty completion", Raw: content}
	}

	decoder := json.NewDecoder(bytes.NewBufferString(body))
	decoder.UseNumber()

	var payload map[string]interface{}
	if err := decoder.Decode(&payload); err != nil {
		return nil, &ResponseError{Reason: "decode", Raw: content, Err: err}
	}
	if payload == nil {
		return nil, &ResponseError{Reason: "null object", Raw: content}
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, &ResponseError{Reason: "trailing content after object", Raw: content}
	}

	return payload, nil
}
