package reply

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

const maxRating = 5.0

// Normalize maps a decoded payload onto StructuredReply. Missing or wrongly
// typed fields fall back to their defaults; it never fails. Response is left
// empty for the caller to fill with prose.
func Normalize(parsed map[string]any) StructuredReply {
	result := Default("")
	if parsed == nil {
		return result
	}

	result.Profiles = normalizeProfiles(parsed["profiles"])
	result.FollowUp = boolField(parsed, "follow_up")
	result.Appointment = boolField(parsed, "appointment")
	result.Task = boolField(parsed, "task")
	if raw, ok := parsed["follow_up_type"].(string); ok {
		if value, ok := parseFollowUpType(raw); ok {
			result.FollowUpType = &value
		}
	}
	return result
}

// EnforceFollowUpPolicy clears follow_up_type when follow_up is false and
// reports whether anything changed.
func EnforceFollowUpPolicy(in StructuredReply) (StructuredReply, bool) {
	if in.FollowUp || in.FollowUpType == nil {
		return in, false
	}
	in.FollowUpType = nil
	return in, true
}

func normalizeProfiles(raw any) []ProfileDetails {
	items, ok := raw.([]any)
	if !ok {
		return []ProfileDetails{}
	}
	return lo.FilterMap(items, func(item any, _ int) (ProfileDetails, bool) {
		fields, ok := item.(map[string]any)
		if !ok {
			return ProfileDetails{}, false
		}
		profile := ProfileDetails{
			Name:           stringField(fields, "name"),
			Designation:    stringField(fields, "designation"),
			ContactNumber:  scalarField(fields, "contact_number"),
			Specialization: optionalString(stringField(fields, "specialization")),
			Experience:     optionalString(scalarField(fields, "experience")),
			Rating:         ratingField(fields, "rating"),
		}
		if profile.Name == "" && profile.Designation == "" && profile.ContactNumber == "" {
			return ProfileDetails{}, false
		}
		return profile, true
	})
}

func boolField(fields map[string]any, key string) bool {
	value, _ := fields[key].(bool)
	return value
}

func stringField(fields map[string]any, key string) string {
	value, _ := fields[key].(string)
	return strings.TrimSpace(value)
}

// scalarField reads a string, also accepting a bare number (phone numbers
// and "10" years of experience often arrive unquoted).
func scalarField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func ratingField(fields map[string]any, key string) *float64 {
	var value float64
	switch v := fields[key].(type) {
	case float64:
		value = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil
		}
		value = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		value = parsed
	default:
		return nil
	}
	// encoding/json refuses non-finite floats.
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	value = lo.Clamp(value, 0, maxRating)
	return &value
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
