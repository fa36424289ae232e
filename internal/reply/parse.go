package reply

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNoPayload        = errors.New("reply has no json payload")
	ErrMalformedPayload = errors.New("reply json payload is malformed")
)

// Parse splits raw and normalizes its payload. It always returns a
// well-formed reply: on error the reply is prose-only with default fields,
// and the error says why the structured fields could not be read.
func Parse(raw string) (StructuredReply, error) {
	segments := Split(raw)
	if !segments.Found {
		fallback := Default(segments.Prose)
		if segments.Candidate {
			return fallback, ErrMalformedPayload
		}
		return fallback, ErrNoPayload
	}

	decoder := json.NewDecoder(strings.NewReader(segments.Payload))
	decoder.UseNumber()
	var parsed map[string]any
	if err := decoder.Decode(&parsed); err != nil || parsed == nil {
		if err == nil {
			err = errors.New("payload is not an object")
		}
		return Default(cleanProse(raw)), errors.Wrap(ErrMalformedPayload, err.Error())
	}

	result := Normalize(parsed)
	result.Response = segments.Prose
	return result, nil
}
