package room

import "regexp"

// Room codes are 6 alphanumeric characters, generated client-side.
var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{6}$`)

// ValidID reports whether s is a well-formed room code.
func ValidID(s string) bool { return roomIDPattern.MatchString(s) }

type actionDTO struct {
	RoomID     string `json:"roomId" binding:"required"`
	UserID     string `json:"userId" binding:"required"`
	Action     string `json:"action" binding:"required"`
	Credential string `json:"credential"`
	// Legacy clients send the credential as apiKey.
	APIKey string `json:"apiKey"`
}

func (d actionDTO) credential() string {
	if d.Credential != "" {
		return d.Credential
	}
	return d.APIKey
}
