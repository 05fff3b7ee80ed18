package whatsapp

import (
	meowtypes "go.mau.fi/whatsmeow/types"
)

// Classifier inspects chat JIDs for the special address spaces that the
// router must drop before webhook delivery.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

func (Classifier) IsStatusBroadcast(jid string) bool {
	return jid == meowtypes.StatusBroadcastJID.String()
}

func (Classifier) IsBroadcast(jid string) bool {
	parsed, err := meowtypes.ParseJID(jid)
	if err != nil {
		return false
	}
	return parsed.Server == meowtypes.BroadcastServer && parsed != meowtypes.StatusBroadcastJID
}

func (Classifier) IsNewsletter(jid string) bool {
	parsed, err := meowtypes.ParseJID(jid)
	if err != nil {
		return false
	}
	return parsed.Server == meowtypes.NewsletterServer
}
