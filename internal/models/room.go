package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Room is the client-facing view of a collaboration room. The generation
// credential itself never appears here; read paths only expose the derived
// HasAPIKey flag.
type Room struct {
	RoomID    string    `json:"roomId"`
	Created   time.Time `json:"created"`
	Creator   string    `json:"creator"`
	HasAPIKey bool      `json:"hasApiKey"`
	Members   []string  `json:"members,omitempty"`
}

// MarshalJSON renders the creation time in the same millisecond ISO-8601 form
// used for summary timestamps.
func (r *Room) MarshalJSON() ([]byte, error) {
	type alias Room
	return json.Marshal(&struct {
		*alias
		Created string `json:"created"`
	}{
		alias:   (*alias)(r),
		Created: r.Created.UTC().Format(TimestampLayout),
	})
}

// ParseRoomFields decodes a stored room hash. The apiKey field is reduced to
// the presence flag.
func ParseRoomFields(roomID string, fields map[string]string) (*Room, error) {
	room := &Room{
		RoomID:    roomID,
		Creator:   fields["creator"],
		HasAPIKey: fields["apiKey"] != "",
	}

	if raw := fields["created"]; raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("decode created: %w", err)
		}
		room.Created = ts.UTC()
	}

	return room, nil
}
