package domain

// User is the canonical identity record shared with the bot engine.
// ID is the external phone number in canonical form; the user store may
// key the record under a channel-namespaced identifier instead.
type User struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	ProfilePic string `json:"profile_pic,omitempty"`
	Platform   string `json:"platform"`
	Number     string `json:"number"`
}
