package domain

type Channel string

const (
	ChannelPush      Channel = "PUSH"
	ChannelMessaging Channel = "MESSAGING"
)

// Clinic is a notification recipient candidate. Reachable channels are
// derived from which provider identifiers are present.
type Clinic struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Partner         bool    `json:"partner"`
	PushToken       string  `json:"push_token,omitempty"`
	MessagingNumber string  `json:"messaging_number,omitempty"`
}

func (c *Clinic) ReachableOn(ch Channel) bool {
	switch ch {
	case ChannelPush:
		return c.PushToken != ""
	case ChannelMessaging:
		return c.MessagingNumber != ""
	default:
		return false
	}
}

// Channels returns the channels this clinic can be reached on.
func (c *Clinic) Channels() []Channel {
	var out []Channel
	if c.PushToken != "" {
		out = append(out, ChannelPush)
	}
	if c.MessagingNumber != "" {
		out = append(out, ChannelMessaging)
	}
	return out
}
