package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/medflow/idscan/internal/idscan/domain"
)

// jsonBlock is greedy on purpose: it spans from the first '{' to the last '}'
// so nested objects survive.
var jsonBlock = regexp.MustCompile(`(?s)\{.*\}`)

// replySchema only pins the top level; non-scalar values are skipped during normalization
const replySchema = `{"type": "object"}`

var compiledReplySchema = jsonschema.MustCompileString("ocr-reply.json", replySchema)

// field is one key/value pair of the reply in document order
type field struct {
	key   string
	value json.RawMessage
}

// ParseReply extracts, validates and normalizes the JSON object in a model reply
func ParseReply(text string) (*domain.Extraction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errEmptyResponse()
	}

	block := jsonBlock.FindString(text)
	if block == "" {
		return nil, errNoJSON()
	}

	var doc interface{}
	dec := json.NewDecoder(strings.NewReader(block))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, errInvalidResponse(fmt.Errorf("decode reply: %w", err))
	}
	if err := compiledReplySchema.Validate(doc); err != nil {
		return nil, errInvalidResponse(fmt.Errorf("reply shape: %w", err))
	}

	fields, err := orderedFields([]byte(block))
	if err != nil {
		return nil, errInvalidResponse(err)
	}

	return normalize(flatten(fields)), nil
}

// orderedFields decodes a JSON object into its key/value pairs, keeping key order
func orderedFields(data []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("reply is not a JSON object")
	}

	var out []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("read value of %q: %w", key, err)
		}
		out = append(out, field{key: key, value: raw})
	}

	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("close object: %w", err)
	}
	return out, nil
}

// flatten inlines nested objects one level deep at the position of their parent key
func flatten(fields []field) []field {
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		raw := bytes.TrimSpace(f.value)
		if len(raw) > 0 && raw[0] == '{' {
			nested, err := orderedFields(raw)
			if err == nil {
				out = append(out, nested...)
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

// isScalar reports whether raw is a JSON string, number, boolean or null
func isScalar(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] != '{' && raw[0] != '['
}

// scalarString renders a JSON scalar as a trimmed string; null becomes empty
func scalarString(raw json.RawMessage) string {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return ""
	}

	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
