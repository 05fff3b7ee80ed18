package service

import (
	"encoding/base64"
	"fmt"
	"strings"

	"wagate/internal/models"
	watypes "wagate/pkg/whatsapp/types"
)

// BuildContent maps a generic send-request onto exactly one provider payload
// variant. Precedence is media, then location, then poll, then contact, then
// plain text; the first populated field wins and the rest are ignored. An
// empty Text is accepted here — rejecting it is not this layer's call.
func BuildContent(req *models.SendRequest) (*watypes.OutboundContent, error) {
	if req == nil {
		return nil, fmt.Errorf("send request is required")
	}

	if req.Media != nil {
		if req.Media.Type != "" && req.Media.Data != "" {
			data, err := base64.StdEncoding.DecodeString(req.Media.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode media data: %w", err)
			}
			return &watypes.OutboundContent{
				Kind: watypes.ContentMedia,
				Media: &watypes.MediaContent{
					Type:        req.Media.Type,
					Data:        data,
					Caption:     req.Media.Caption,
					MimeType:    req.Media.MimeType,
					FileName:    req.Media.FileName,
					PTT:         req.Media.PTT,
					GifPlayback: req.Media.GifPlayback,
				},
			}, nil
		}
		// Media present but unusable falls through to plain text, matching
		// the permissive send pipeline.
		return textContent(req.Text), nil
	}

	if req.Location != nil {
		return &watypes.OutboundContent{
			Kind: watypes.ContentLocation,
			Location: &watypes.LocationContent{
				DegreesLatitude:  req.Location.Latitude,
				DegreesLongitude: req.Location.Longitude,
				Name:             req.Location.Name,
				URL:              req.Location.URL,
				Address:          req.Location.Address,
			},
		}, nil
	}

	if req.Poll != nil {
		selectable := 0
		if req.Poll.AllowMultipleAnswers != nil {
			selectable = *req.Poll.AllowMultipleAnswers
		}
		return &watypes.OutboundContent{
			Kind: watypes.ContentPoll,
			Poll: &watypes.PollContent{
				Name:            req.Poll.Name,
				Options:         req.Poll.Options,
				SelectableCount: selectable,
			},
		}, nil
	}

	if req.Contact != nil {
		displayName := req.Contact.FirstName + " " + req.Contact.LastName
		phone := normalizePhone(req.Contact.Phone)
		vcard := buildVCard(displayName, req.Contact.Email, phone)
		return &watypes.OutboundContent{
			Kind: watypes.ContentContact,
			Contact: &watypes.ContactContent{
				DisplayName: displayName,
				VCard:       vcard,
			},
		}, nil
	}

	return textContent(req.Text), nil
}

func textContent(text string) *watypes.OutboundContent {
	return &watypes.OutboundContent{Kind: watypes.ContentText, Text: text}
}

// normalizePhone strips spaces and leading plus signs for the provider's
// waid parameter.
func normalizePhone(phone string) string {
	phone = strings.ReplaceAll(phone, " ", "")
	return strings.ReplaceAll(phone, "+", "")
}

func buildVCard(displayName, email, phone string) string {
	return "BEGIN:VCARD\n" +
		"VERSION:3.0\n" +
		fmt.Sprintf("FN:%s\n", displayName) +
		fmt.Sprintf("EMAIL;TYPE=Work:%s\n", email) +
		fmt.Sprintf("TEL;type=CELL;type=VOICE;waid=%s:%s\n", phone, phone) +
		"END:VCARD"
}
