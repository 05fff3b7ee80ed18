package service

import (
	"encoding/base64"
	"testing"

	"wagate/internal/models"
	watypes "wagate/pkg/whatsapp/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestBuildContent_Precedence(t *testing.T) {
	mediaData := base64.StdEncoding.EncodeToString([]byte("fake-image"))

	tests := []struct {
		name     string
		req      *models.SendRequest
		expected watypes.ContentKind
	}{
		{
			name: "media wins over everything",
			req: &models.SendRequest{
				ChatID:   "123@s.whatsapp.net",
				Text:     "ignored",
				Media:    &models.MediaInput{Type: "image", Data: mediaData},
				Location: &models.LocationInput{Latitude: 1, Longitude: 2},
				Poll:     &models.PollInput{Name: "p", Options: []string{"a"}},
				Contact:  &models.ContactInput{FirstName: "A"},
			},
			expected: watypes.ContentMedia,
		},
		{
			name: "location wins over poll and contact",
			req: &models.SendRequest{
				ChatID:   "123@s.whatsapp.net",
				Location: &models.LocationInput{Latitude: 1, Longitude: 2},
				Poll:     &models.PollInput{Name: "p", Options: []string{"a"}},
				Contact:  &models.ContactInput{FirstName: "A"},
			},
			expected: watypes.ContentLocation,
		},
		{
			name: "poll wins over contact",
			req: &models.SendRequest{
				ChatID:  "123@s.whatsapp.net",
				Poll:    &models.PollInput{Name: "p", Options: []string{"a"}},
				Contact: &models.ContactInput{FirstName: "A"},
			},
			expected: watypes.ContentPoll,
		},
		{
			name: "contact wins over text",
			req: &models.SendRequest{
				ChatID:  "123@s.whatsapp.net",
				Text:    "ignored",
				Contact: &models.ContactInput{FirstName: "A"},
			},
			expected: watypes.ContentContact,
		},
		{
			name:     "plain text",
			req:      &models.SendRequest{ChatID: "123@s.whatsapp.net", Text: "hello"},
			expected: watypes.ContentText,
		},
		{
			name:     "empty text is still text",
			req:      &models.SendRequest{ChatID: "123@s.whatsapp.net"},
			expected: watypes.ContentText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := BuildContent(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, content.Kind)
		})
	}
}

func TestBuildContent_NilRequest(t *testing.T) {
	content, err := BuildContent(nil)
	assert.Error(t, err)
	assert.Nil(t, content)
}

func TestBuildContent_Media(t *testing.T) {
	caption := "look at this"
	mime := "image/png"
	raw := []byte{0x89, 0x50, 0x4e, 0x47}

	content, err := BuildContent(&models.SendRequest{
		ChatID: "123@s.whatsapp.net",
		Media: &models.MediaInput{
			Type:     "image",
			Data:     base64.StdEncoding.EncodeToString(raw),
			Caption:  &caption,
			MimeType: &mime,
		},
	})
	require.NoError(t, err)
	require.Equal(t, watypes.ContentMedia, content.Kind)
	assert.Equal(t, "image", content.Media.Type)
	assert.Equal(t, raw, content.Media.Data)
	assert.Equal(t, &caption, content.Media.Caption)
	assert.Equal(t, &mime, content.Media.MimeType)
}

func TestBuildContent_MediaInvalidBase64(t *testing.T) {
	content, err := BuildContent(&models.SendRequest{
		ChatID: "123@s.whatsapp.net",
		Media:  &models.MediaInput{Type: "image", Data: "not-base64!!!"},
	})
	assert.Error(t, err)
	assert.Nil(t, content)
}

func TestBuildContent_IncompleteMediaFallsBackToText(t *testing.T) {
	tests := []struct {
		name  string
		media *models.MediaInput
	}{
		{"missing data", &models.MediaInput{Type: "image"}},
		{"missing type", &models.MediaInput{Data: base64.StdEncoding.EncodeToString([]byte("x"))}},
		{"empty struct", &models.MediaInput{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := BuildContent(&models.SendRequest{
				ChatID: "123@s.whatsapp.net",
				Text:   "fallback",
				Media:  tt.media,
			})
			require.NoError(t, err)
			assert.Equal(t, watypes.ContentText, content.Kind)
			assert.Equal(t, "fallback", content.Text)
		})
	}
}

func TestBuildContent_Location(t *testing.T) {
	content, err := BuildContent(&models.SendRequest{
		ChatID: "123@s.whatsapp.net",
		Location: &models.LocationInput{
			Latitude:  52.5200,
			Longitude: 13.4050,
			Name:      "Berlin",
			Address:   "Germany",
		},
	})
	require.NoError(t, err)
	require.Equal(t, watypes.ContentLocation, content.Kind)
	assert.Equal(t, 52.5200, content.Location.DegreesLatitude)
	assert.Equal(t, 13.4050, content.Location.DegreesLongitude)
	assert.Equal(t, "Berlin", content.Location.Name)
}

func TestBuildContent_Poll(t *testing.T) {
	t.Run("selectable count from request", func(t *testing.T) {
		content, err := BuildContent(&models.SendRequest{
			ChatID: "123@s.whatsapp.net",
			Poll: &models.PollInput{
				Name:                 "lunch",
				Options:              []string{"pizza", "sushi"},
				AllowMultipleAnswers: intPtr(2),
			},
		})
		require.NoError(t, err)
		require.Equal(t, watypes.ContentPoll, content.Kind)
		assert.Equal(t, "lunch", content.Poll.Name)
		assert.Equal(t, []string{"pizza", "sushi"}, content.Poll.Options)
		assert.Equal(t, 2, content.Poll.SelectableCount)
	})

	t.Run("selectable count defaults to zero", func(t *testing.T) {
		content, err := BuildContent(&models.SendRequest{
			ChatID: "123@s.whatsapp.net",
			Poll:   &models.PollInput{Name: "lunch", Options: []string{"pizza"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, content.Poll.SelectableCount)
	})
}

func TestBuildContent_Contact(t *testing.T) {
	content, err := BuildContent(&models.SendRequest{
		ChatID: "123@s.whatsapp.net",
		Contact: &models.ContactInput{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Phone:     "+49 151 1234567",
		},
	})
	require.NoError(t, err)
	require.Equal(t, watypes.ContentContact, content.Kind)
	assert.Equal(t, "Ada Lovelace", content.Contact.DisplayName)

	expected := "BEGIN:VCARD\n" +
		"VERSION:3.0\n" +
		"FN:Ada Lovelace\n" +
		"EMAIL;TYPE=Work:ada@example.com\n" +
		"TEL;type=CELL;type=VOICE;waid=491511234567:491511234567\n" +
		"END:VCARD"
	assert.Equal(t, expected, content.Contact.VCard)
}
