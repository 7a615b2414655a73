package llm

import (
	"bytes"
	"encoding/json"
)

const (
	stopEnd       = "end"
	stopMaxTokens = "max_tokens"
)

// resolveModel maps a friendly model name to a provider model ID. Unknown
// names pass through so full model IDs work too.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}

// finish applies the checks shared by every provider: truncated structured
// output is an error, and structured output must validate.
func finish(req Request, resp *Response) (*Response, error) {
	if req.Schema == nil {
		return resp, nil
	}
	if resp.StopReason == stopMaxTokens {
		return nil, &ErrMaxTokensExceeded{Content: resp.Content}
	}
	if err := validateResponse(req.Schema, resp.Content); err != nil {
		return nil, err
	}
	return resp, nil
}

// ExtractJSON returns the first balanced JSON object embedded in text,
// skipping code fences and surrounding prose. ok is false when none exists.
func ExtractJSON(text string) (json.RawMessage, bool) {
	b := []byte(text)
	for start := bytes.IndexByte(b, '{'); start >= 0; {
		depth, inString, escaped := 0, false, false
		for i := start; i < len(b); i++ {
			c := b[i]
			switch {
			case escaped:
				escaped = false
			case inString && c == '\\':
				escaped = true
			case c == '"':
				inString = !inString
			case inString:
			case c == '{':
				depth++
			case c == '}':
				depth--
				if depth == 0 {
					candidate := b[start : i+1]
					if json.Valid(candidate) {
						return json.RawMessage(candidate), true
					}
					i = len(b)
				}
			}
		}
		next := bytes.IndexByte(b[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}
