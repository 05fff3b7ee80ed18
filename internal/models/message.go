package models

// SendRequest is the generic outbound send-message request accepted by the
// REST layer. Exactly one of Media, Location, Poll or Contact is honored;
// precedence is media, then location, then poll, then contact, then Text.
type SendRequest struct {
	ChatID   string         `json:"chatId"`
	Text     string         `json:"text,omitempty"`
	Options  *SendOptions   `json:"options,omitempty"`
	Media    *MediaInput    `json:"media,omitempty"`
	Location *LocationInput `json:"location,omitempty"`
	Poll     *PollInput     `json:"poll,omitempty"`
	Contact  *ContactInput  `json:"contact,omitempty"`
}

type SendOptions struct {
	MessageID           string `json:"messageId,omitempty"`
	EphemeralExpiration uint32 `json:"ephemeralExpiration,omitempty"`
}

// MediaInput carries base64-encoded media plus provider passthrough fields.
type MediaInput struct {
	// Type selects the provider payload kind: image, video, document, audio.
	Type        string  `json:"type"`
	Data        string  `json:"data"`
	Caption     *string `json:"caption,omitempty"`
	MimeType    *string `json:"mimetype,omitempty"`
	FileName    *string `json:"filename,omitempty"`
	PTT         *bool   `json:"ptt,omitempty"`
	GifPlayback *bool   `json:"gifPlayback,omitempty"`
}

type LocationInput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	URL       string  `json:"url,omitempty"`
	Address   string  `json:"address,omitempty"`
}

type PollInput struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
	// AllowMultipleAnswers maps onto the provider's selectable count.
	// Absent means single-answer.
	AllowMultipleAnswers *int `json:"allowMultipleAnswers,omitempty"`
}

type ContactInput struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone"`
}

// SimulateRequest drives a presence update on a chat.
type SimulateRequest struct {
	ChatID string `json:"chatId"`
	Action string `json:"action"`
}

// PairingSnapshot is the poll response for the current pairing state.
type PairingSnapshot struct {
	QR        string `json:"qr"`
	Text      string `json:"text"`
	Connected bool   `json:"connected"`
}

// Notice is a connectivity event pushed to stream subscribers.
type Notice struct {
	QR   string `json:"qr"`
	Text string `json:"text"`
}
