// Package reply turns a raw model reply into user-facing prose plus the
// structured fields the assistant appends as a trailing JSON object.
package reply

import "strings"

type FollowUpType string

const (
	FollowUpAppointment FollowUpType = "appointment"
	FollowUpTask        FollowUpType = "task"
	FollowUpGeneral     FollowUpType = "general"
)

type ProfileDetails struct {
	Name           string   `json:"name"`
	Designation    string   `json:"designation"`
	ContactNumber  string   `json:"contact_number"`
	Specialization *string  `json:"specialization"`
	Experience     *string  `json:"experience"`
	Rating         *float64 `json:"rating"`
}

// StructuredReply is the body returned by POST /chat.
type StructuredReply struct {
	Response     string           `json:"response"`
	Profiles     []ProfileDetails `json:"profiles"`
	FollowUp     bool             `json:"follow_up"`
	FollowUpType *FollowUpType    `json:"follow_up_type"`
	Appointment  bool             `json:"appointment"`
	Task         bool             `json:"task"`
}

// Default returns a prose-only reply with every structured field at its default.
func Default(prose string) StructuredReply {
	return StructuredReply{
		Response: prose,
		Profiles: []ProfileDetails{},
	}
}

func parseFollowUpType(value string) (FollowUpType, bool) {
	switch FollowUpType(strings.ToLower(strings.TrimSpace(value))) {
	case FollowUpAppointment:
		return FollowUpAppointment, true
	case FollowUpTask:
		return FollowUpTask, true
	case FollowUpGeneral:
		return FollowUpGeneral, true
	default:
		return "", false
	}
}
