package whatsapp

import (
	"encoding/json"
	"fmt"

	watypes "wagate/pkg/whatsapp/types"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/encoding/protojson"
)

// convertMessage maps a provider message event into the gateway's wire shape.
// The original protobuf is retained for media download.
func convertMessage(evt *events.Message) *watypes.RawMessage {
	if evt == nil || evt.Message == nil {
		return nil
	}

	return &watypes.RawMessage{
		Key: watypes.MessageKey{
			FromMe:    evt.Info.IsFromMe,
			RemoteJID: evt.Info.Chat.String(),
			ID:        evt.Info.ID,
		},
		PushName:  evt.Info.PushName,
		Timestamp: evt.Info.Timestamp.Unix(),
		Message:   convertBody(evt.Message),
		Proto:     evt.Message,
	}
}

func convertBody(msg *waE2E.Message) *watypes.MessageBody {
	if msg == nil {
		return nil
	}

	body := &watypes.MessageBody{}
	if msg.Conversation != nil {
		body.Conversation = msg.GetConversation()
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		body.ExtendedTextMessage = &watypes.ExtendedText{Text: ext.GetText()}
	}
	if img := msg.GetImageMessage(); img != nil {
		body.ImageMessage = &watypes.MediaPart{
			MimeType:   img.GetMimetype(),
			Caption:    img.GetCaption(),
			FileLength: img.GetFileLength(),
		}
	}
	if aud := msg.GetAudioMessage(); aud != nil {
		body.AudioMessage = &watypes.MediaPart{
			MimeType:   aud.GetMimetype(),
			FileLength: aud.GetFileLength(),
			Seconds:    aud.GetSeconds(),
			PTT:        aud.GetPTT(),
		}
	}
	if vid := msg.GetVideoMessage(); vid != nil {
		body.VideoMessage = &watypes.MediaPart{
			MimeType:   vid.GetMimetype(),
			Caption:    vid.GetCaption(),
			FileLength: vid.GetFileLength(),
			Seconds:    vid.GetSeconds(),
		}
	}
	if doc := msg.GetDocumentMessage(); doc != nil {
		body.DocumentMessage = &watypes.MediaPart{
			MimeType:   doc.GetMimetype(),
			Caption:    doc.GetCaption(),
			FileName:   doc.GetFileName(),
			FileLength: doc.GetFileLength(),
		}
	}
	if stk := msg.GetStickerMessage(); stk != nil {
		body.StickerMessage = &watypes.MediaPart{
			MimeType:   stk.GetMimetype(),
			FileLength: stk.GetFileLength(),
		}
	}
	if dwc := msg.GetDocumentWithCaptionMessage(); dwc != nil {
		body.DocumentWithCaptionMessage = &watypes.DocumentWithCaption{
			Message: convertBody(dwc.GetMessage()),
		}
	}
	return body
}

// downloadablePart picks the media part of a message that can be fetched
// from the provider, or nil when the message carries none.
func downloadablePart(msg *watypes.RawMessage) whatsmeow.DownloadableMessage {
	if msg == nil || msg.Proto == nil {
		return nil
	}

	m := msg.Proto
	if dwc := m.GetDocumentWithCaptionMessage(); dwc != nil {
		m = dwc.GetMessage()
		if m == nil {
			return nil
		}
	}

	switch {
	case m.GetImageMessage() != nil:
		return m.GetImageMessage()
	case m.GetAudioMessage() != nil:
		return m.GetAudioMessage()
	case m.GetVideoMessage() != nil:
		return m.GetVideoMessage()
	case m.GetDocumentMessage() != nil:
		return m.GetDocumentMessage()
	case m.GetStickerMessage() != nil:
		return m.GetStickerMessage()
	}
	return nil
}

// convertHistory flattens a history sync payload into raw JSON chat and
// contact records suitable for the snapshot store.
func convertHistory(evt *events.HistorySync) watypes.HistorySnapshot {
	var snapshot watypes.HistorySnapshot
	if evt == nil || evt.Data == nil {
		return snapshot
	}

	marshaler := protojson.MarshalOptions{EmitUnpopulated: false}
	for _, conv := range evt.Data.GetConversations() {
		data, err := marshaler.Marshal(conv)
		if err != nil {
			continue
		}
		snapshot.Chats = append(snapshot.Chats, json.RawMessage(data))
	}
	for _, push := range evt.Data.GetPushnames() {
		data, err := marshaler.Marshal(push)
		if err != nil {
			continue
		}
		snapshot.Contacts = append(snapshot.Contacts, json.RawMessage(data))
	}
	return snapshot
}

// pairCredentials produces the credential blob surfaced after a successful
// pairing, mirroring what the device store now holds.
func pairCredentials(evt *events.PairSuccess) json.RawMessage {
	blob := map[string]string{
		"jid":          evt.ID.String(),
		"businessName": evt.BusinessName,
		"platform":     evt.Platform,
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return json.RawMessage(fmt.Sprintf(`{"jid":%q}`, evt.ID.String()))
	}
	return data
}
