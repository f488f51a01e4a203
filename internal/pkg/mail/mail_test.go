package mail

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_UnmarshalJSON(t *testing.T) {
	raw := `{
		"from": "Alice <a@x.com>",
		"to": "t@x.com",
		"subject": "Hi",
		"text": "hello",
		"channel": "transactional",
		"attachments": [{"filename": "a.txt", "content": "aGk="}],
		"tags": ["welcome"],
		"params": {"name": "Bob"}
	}`

	var req Request
	require.NoError(t, json.Unmarshal([]byte(raw), &req))

	assert.Equal(t, "Alice <a@x.com>", req.From)
	assert.Equal(t, "t@x.com", req.To)
	assert.Equal(t, "transactional", req.Channel)
	assert.Empty(t, req.Attachments)
	assert.JSONEq(t, `[{"filename": "a.txt", "content": "aGk="}]`, string(req.RawAttachments))
	attachments, err := req.DecodeAttachments()
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, []byte("hi"), attachments[0].Content)
	assert.Equal(t, map[string]any{
		"tags":   []any{"welcome"},
		"params": map[string]any{"name": "Bob"},
	}, req.Extra)

	t.Run("NoExtras", func(t *testing.T) {
		var plain Request
		require.NoError(t, json.Unmarshal([]byte(`{"to":"t@x.com"}`), &plain))
		assert.Nil(t, plain.Extra)
	})

	t.Run("ProviderShapedAttachmentsKept", func(t *testing.T) {
		var brevo Request
		require.NoError(t, json.Unmarshal([]byte(`{"to":"t@x.com","attachments":[{"url":"https://x.com/a.pdf","name":"a.pdf"},{"content":"not base64!"}]}`), &brevo))

		assert.JSONEq(t, `[{"url":"https://x.com/a.pdf","name":"a.pdf"},{"content":"not base64!"}]`, string(brevo.RawAttachments))
		_, err := brevo.DecodeAttachments()
		assert.ErrorIs(t, err, ErrInvalidAttachments)
	})

	t.Run("NotAnObject", func(t *testing.T) {
		var bad Request
		assert.Error(t, json.Unmarshal([]byte(`[1]`), &bad))
	})
}

func TestRequest_MarshalJSON(t *testing.T) {
	req := Request{
		To:      "t@x.com",
		Subject: "Hi",
		Extra:   map[string]any{"tags": []string{"welcome"}, "to": "shadowed@x.com"},
	}

	out, err := json.Marshal(req)
	require.NoError(t, err)

	assert.JSONEq(t, `{"to":"t@x.com","subject":"Hi","text":"","html":"","tags":["welcome"]}`, string(out))
}

func TestRequest_DecodeAttachments(t *testing.T) {
	t.Run("GoValuesWin", func(t *testing.T) {
		req := Request{
			Attachments:    []Attachment{{Filename: "go.txt"}},
			RawAttachments: json.RawMessage(`[{"filename":"raw.txt"}]`),
		}

		got, err := req.DecodeAttachments()

		require.NoError(t, err)
		assert.Equal(t, []Attachment{{Filename: "go.txt"}}, got)
	})

	t.Run("Null", func(t *testing.T) {
		got, err := Request{RawAttachments: json.RawMessage(` null `)}.DecodeAttachments()

		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("NotAList", func(t *testing.T) {
		_, err := Request{RawAttachments: json.RawMessage(`{"filename":"a"}`)}.DecodeAttachments()

		assert.ErrorIs(t, err, ErrInvalidAttachments)
	})
}

func TestRequest_MarshalJSON_RawAttachments(t *testing.T) {
	req := Request{To: "t@x.com", RawAttachments: json.RawMessage(`[{"name":"a.pdf","url":"https://x.com/a.pdf"}]`)}

	out, err := json.Marshal(req)
	require.NoError(t, err)

	assert.JSONEq(t, `{"to":"t@x.com","subject":"","text":"","html":"","attachments":[{"name":"a.pdf","url":"https://x.com/a.pdf"}]}`, string(out))
}

func TestRequest_LogValue(t *testing.T) {
	req := Request{
		To:          "t@x.com",
		Text:        "secret body",
		Attachments: []Attachment{{Filename: "a.txt", Content: []byte("data")}},
	}

	attrs := map[string]slog.Value{}
	for _, a := range req.LogValue().Group() {
		attrs[a.Key] = a.Value
	}

	assert.Equal(t, "t@x.com", attrs["to"].String())
	assert.Equal(t, int64(len("secret body")), attrs["text_len"].Int64())
	assert.Equal(t, []string{"a.txt"}, attrs["attachments"].Any())
	assert.NotContains(t, attrs, "text")
}
