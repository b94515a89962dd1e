package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	appErr "rulecard-service/pkg/errors"
)

// Result is the decoded agent move. Only DiscardReturn is acted on.
type Result struct {
	Action        string     `json:"action"`
	DiscardReturn LooseField `json:"discardReturn"`
	UpdatedHand   LooseField `json:"updatedHand"`
}

// LooseField accepts a string, a number, or an array of either, and keeps
// it as '/'-joined text. Models are not consistent about which they send.
type LooseField string

func (f *LooseField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = LooseField(s)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			var part LooseField
			if err := part.UnmarshalJSON(item); err != nil {
				return err
			}
			parts = append(parts, string(part))
		}
		*f = LooseField(strings.Join(parts, "/"))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported value %s", data)
		}
		*f = LooseField(n.String())
	}
	return nil
}

type geminiEnvelope struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// ParseResponse turns a raw agent reply into a Result. The reply may be a
// provider envelope or bare model text, with or without markdown fences and
// surrounding prose.
func ParseResponse(raw string) (*Result, error) {
	text, ok := extractModelText(raw)
	if !ok {
		if !strings.Contains(raw, "{") {
			return nil, fmt.Errorf("%w: no model text and no json block", appErr.ErrMalformedResponse)
		}
		text = raw
	}

	cleaned := stripFences(text)
	obj, ok := firstJSONObject(cleaned)
	if !ok {
		return nil, appErr.ErrNoJSONObject
	}

	var res Result
	if err := json.Unmarshal([]byte(obj), &res); err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrInvalidResponse, err)
	}
	if strings.TrimSpace(res.Action) == "" {
		return nil, appErr.ErrMissingAction
	}
	return &res, nil
}

func extractModelText(raw string) (string, bool) {
	var env geminiEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err == nil {
		var sb strings.Builder
		for _, c := range env.Candidates {
			for _, p := range c.Content.Parts {
				sb.WriteString(p.Text)
			}
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			return text, true
		}
	}
	return scanTextField(raw)
}

var textFieldPattern = regexp.MustCompile(`(?i)"text"\s*:\s*"`)

// scanTextField finds the first "text": "..." pair and decodes its string
// value, escapes included. It works on truncated or otherwise invalid JSON.
func scanTextField(raw string) (string, bool) {
	loc := textFieldPattern.FindStringIndex(raw)
	if loc == nil {
		return "", false
	}
	// rest starts at the opening quote of the value.
	rest := raw[loc[1]-1:]

	end := -1
	escaped := false
	for i := 1; i < len(rest); i++ {
		c := rest[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			end = i
			break
		}
	}
	if end < 0 {
		return "", false
	}

	var text string
	if err := json.Unmarshal([]byte(rest[:end+1]), &text); err != nil {
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// firstJSONObject returns the first balanced {...} span, ignoring braces
// inside strings. An unbalanced object is cut at the last '}'.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	end := strings.LastIndexByte(s, '}')
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// ParseDiscardIndices reads a '/'-separated index list against a hand of
// handLen cards. Valid indices come back unique and sorted descending;
// everything else is returned in skipped.
func ParseDiscardIndices(s string, handLen int) (valid []int, skipped []string) {
	seen := make(map[int]bool)
	for _, part := range strings.Split(s, "/") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 || idx >= handLen || seen[idx] {
			skipped = append(skipped, part)
			continue
		}
		seen[idx] = true
		valid = append(valid, idx)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(valid)))
	return valid, skipped
}
