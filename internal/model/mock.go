package model

import (
	"context"
	"strings"
	"unicode"
)

// MockClient answers from a few canned conversations so the service can run
// without a provider key. The reply format matches what the real prompt asks
// for: prose followed by one JSON object.
type MockClient struct{}

func (MockClient) Generate(_ context.Context, prompt string) (string, error) {
	message := strings.ToLower(lastUserMessage(prompt))

	switch {
	case hasDevanagari(message):
		return "नमस्कार, कसे आहात? काय मदत हवी? 😊\n" +
			`{"profiles": [], "follow_up": false, "follow_up_type": null, "appointment": false, "task": false}`, nil
	case strings.Contains(message, "headache") || strings.Contains(message, "fever"):
		return "Aww no, that sucks 😣 Try sipping some water and taking a quick break. " +
			"Dr. Meera Patil, a neurologist with 10 years of experience, is great with this. Wanna book an appointment with her?\n" +
			`{"profiles": [{"name": "Dr. Meera Patil", "designation": "Neurologist", "contact_number": "9876543210", ` +
			`"specialization": "Headache and Migraine Treatment", "experience": "10 years", "rating": 4.8}], ` +
			`"follow_up": true, "follow_up_type": "appointment", "appointment": false, "task": false}`, nil
	case strings.Contains(message, "road") || strings.Contains(message, "garbage") || strings.Contains(message, "water supply"):
		return "Oh no, that's terrible! 😣 I can report this to Mr. Rajesh Deshmukh, the Municipal Engineer. Would you like me to report it?\n" +
			`{"profiles": [{"name": "Mr. Rajesh Deshmukh", "designation": "Municipal Engineer", "contact_number": "9876543211", ` +
			`"specialization": "Infrastructure Management", "experience": "8 years", "rating": 4.5}], ` +
			`"follow_up": true, "follow_up_type": "task", "appointment": false, "task": false}`, nil
	case message == "yes" || strings.Contains(message, "confirm"):
		return "Boom, it's done ✅\n" +
			`{"profiles": [], "follow_up": false, "follow_up_type": null, "appointment": true, "task": false}`, nil
	default:
		return "Hey there! 👋 How can I help you today?\n" +
			`{"profiles": [], "follow_up": false, "follow_up_type": null, "appointment": false, "task": false}`, nil
	}
}

const userMessageMarker = "The user's new message is: "

func lastUserMessage(prompt string) string {
	idx := strings.LastIndex(prompt, userMessageMarker)
	if idx < 0 {
		return strings.TrimSpace(prompt)
	}
	rest := prompt[idx+len(userMessageMarker):]
	if end := strings.IndexByte(rest, '\n'); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func hasDevanagari(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			return true
		}
	}
	return false
}
