package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
	"github.com/shandysiswandi/mailbite/internal/pkg/idempotency"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"github.com/shandysiswandi/mailbite/internal/pkg/storage"
	"github.com/shandysiswandi/mailbite/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validInput() SendMailInput {
	return SendMailInput{
		From:    "Billing <billing@x.com>",
		To:      "t@x.com",
		Subject: "Your invoice",
		HTML:    "<b>x</b>",
		Extra:   map[string]any{"tags": []any{"invoice"}},
	}
}

func TestUsecase_SendMail(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		f.dispatch.On("Dispatch", mock.Anything, mock.MatchedBy(func(r mail.Request) bool {
			return r.To == "t@x.com" && r.From == "Billing <billing@x.com>" && r.Extra["tags"] != nil
		})).Return("abc", nil).Once()

		// Act
		out, err := f.uc.SendMail(ctx, validInput())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, SendMailOutput{MessageID: "abc", Channel: "brevo"}, out)
	})

	t.Run("ExplicitChannel", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.Channel = "relay"
		f.dispatch.On("Dispatch", mock.Anything, mock.MatchedBy(func(r mail.Request) bool {
			return r.Channel == "relay"
		})).Return("<id@x.com>", nil).Once()

		out, err := f.uc.SendMail(ctx, in)

		require.NoError(t, err)
		assert.Equal(t, "relay", out.Channel)
	})

	t.Run("ValidationError", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.To = "not an address"
		in.Subject = ""
		in.HTML = ""

		_, err := f.uc.SendMail(ctx, in)

		assert.Equal(t, goerror.TypeValidation, goerror.TypeOf(err))
		var verr validator.V10ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr, "to")
		assert.Contains(t, verr, "subject")
		assert.Contains(t, verr, "text")
		assert.Contains(t, verr, "html")
	})

	t.Run("TransportErrorPassesThrough", func(t *testing.T) {
		f := newFixture(t)
		f.dispatch.On("Dispatch", mock.Anything, mock.Anything).
			Return("", goerror.NewTransport(errors.New("502"))).Once()

		_, err := f.uc.SendMail(ctx, validInput())

		assert.Equal(t, goerror.TypeTransport, goerror.TypeOf(err))
	})

	t.Run("ChannelNameCaseInsensitive", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.Channel = "Relay"
		f.dispatch.On("Dispatch", mock.Anything, mock.Anything).Return("<id@x.com>", nil).Once()

		out, err := f.uc.SendMail(ctx, in)

		require.NoError(t, err)
		assert.Equal(t, "relay", out.Channel)
	})

	t.Run("UnknownChannel", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.Channel = "nope"
		f.dispatch.On("Dispatch", mock.Anything, mock.Anything).
			Return("", goerror.NewConfig(mail.ErrChannelNotFound)).Once()

		_, err := f.uc.SendMail(ctx, in)

		assert.Equal(t, goerror.TypeConfig, goerror.TypeOf(err))
		assert.ErrorIs(t, err, mail.ErrChannelNotFound)
	})
}

func TestUsecase_SendMail_Attachments(t *testing.T) {
	ctx := context.Background()

	t.Run("StorageRefResolved", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.Attachments = []mail.Attachment{
			{Filename: "inline.txt", Content: []byte("hi")},
			{Path: "storage://invoices/inv-7.pdf", Filename: "invoice.pdf"},
		}
		f.attachment.On("Fetch", mock.Anything, "storage://invoices/inv-7.pdf").
			Return(mail.Attachment{Filename: "inv-7.pdf", ContentType: "application/pdf", Content: []byte("%PDF")}, nil).Once()
		f.dispatch.On("Dispatch", mock.Anything, mock.MatchedBy(func(r mail.Request) bool {
			return len(r.Attachments) == 2 &&
				r.Attachments[0].Filename == "inline.txt" &&
				r.Attachments[1].Filename == "invoice.pdf" &&
				r.Attachments[1].ContentType == "application/pdf" &&
				string(r.Attachments[1].Content) == "%PDF" &&
				r.Attachments[1].Path == ""
		})).Return("abc", nil).Once()

		_, err := f.uc.SendMail(ctx, in)

		require.NoError(t, err)
	})

	t.Run("LocalPathRejected", func(t *testing.T) {
		for _, path := range []string{"/etc/passwd", "./.env", "file:///etc/passwd"} {
			f := newFixture(t)
			in := validInput()
			in.Channel = "relay"
			in.RawAttachments = json.RawMessage(`[{"filename":"a.txt","path":"` + path + `"}]`)

			_, err := f.uc.SendMail(ctx, in)

			var gerr *goerror.Error
			require.ErrorAs(t, err, &gerr, path)
			assert.Equal(t, goerror.TypeValidation, gerr.Type())
			assert.Contains(t, gerr.Fields(), "attachments")
			f.dispatch.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
		}
	})

	t.Run("LocalPathRejectedOnHTTPAPIChannel", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.Attachments = []mail.Attachment{{Filename: "a.txt", Path: "/etc/passwd"}}

		_, err := f.uc.SendMail(ctx, in)

		assert.Equal(t, goerror.TypeValidation, goerror.TypeOf(err))
	})

	t.Run("RawAttachmentsForwardedToHTTPAPI", func(t *testing.T) {
		f := newFixture(t)
		raw := json.RawMessage(`[{"name":"a.pdf","content":"aGk="},{"url":"https://x.com/b.pdf","name":"b.pdf"}]`)
		in := validInput()
		in.RawAttachments = raw
		f.dispatch.On("Dispatch", mock.Anything, mock.MatchedBy(func(r mail.Request) bool {
			return string(r.RawAttachments) == string(raw) && len(r.Attachments) == 0
		})).Return("abc", nil).Once()

		_, err := f.uc.SendMail(ctx, in)

		require.NoError(t, err)
	})

	t.Run("UndecodableAttachmentsPassToHTTPAPI", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.RawAttachments = json.RawMessage(`[{"name":"a.pdf","content":"not base64!"}]`)
		f.dispatch.On("Dispatch", mock.Anything, mock.Anything).Return("abc", nil).Once()

		_, err := f.uc.SendMail(ctx, in)

		require.NoError(t, err)
	})

	t.Run("UndecodableAttachmentsRejectedForRelay", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.Channel = "relay"
		in.RawAttachments = json.RawMessage(`[{"name":"a.pdf","content":"not base64!"}]`)

		_, err := f.uc.SendMail(ctx, in)

		assert.Equal(t, goerror.TypeValidation, goerror.TypeOf(err))
	})

	t.Run("RawStorageRefResolved", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.RawAttachments = json.RawMessage(`[{"path":"storage://invoices/inv-7.pdf"}]`)
		f.attachment.On("Fetch", mock.Anything, "storage://invoices/inv-7.pdf").
			Return(mail.Attachment{Filename: "inv-7.pdf", Content: []byte("%PDF")}, nil).Once()
		f.dispatch.On("Dispatch", mock.Anything, mock.MatchedBy(func(r mail.Request) bool {
			return r.RawAttachments == nil && len(r.Attachments) == 1 && r.Attachments[0].Filename == "inv-7.pdf"
		})).Return("abc", nil).Once()

		_, err := f.uc.SendMail(ctx, in)

		require.NoError(t, err)
	})

	tests := []struct {
		name     string
		fetchErr error
		wantType goerror.Type
	}{
		{name: "NotFound", fetchErr: storage.ErrObjectNotFound, wantType: goerror.TypeValidation},
		{name: "TooLarge", fetchErr: storage.ErrObjectTooLarge, wantType: goerror.TypeValidation},
		{name: "InvalidRef", fetchErr: storage.ErrInvalidRef, wantType: goerror.TypeValidation},
		{name: "StoreDown", fetchErr: errors.New("dial tcp: refused"), wantType: goerror.TypeServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validInput()
			in.Attachments = []mail.Attachment{{Path: "storage://b/k"}}
			f.attachment.On("Fetch", mock.Anything, "storage://b/k").Return(mail.Attachment{}, tt.fetchErr).Once()

			_, err := f.uc.SendMail(ctx, in)

			require.Error(t, err)
			assert.Equal(t, tt.wantType, goerror.TypeOf(err))
		})
	}
}

func TestUsecase_SendMail_Idempotency(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstSend", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.IdempotencyKey = "order-42"
		f.idemp.On("Exec", mock.Anything, "order-42").Return(true).Once()
		f.dispatch.On("Dispatch", mock.Anything, mock.Anything).Return("abc", nil).Once()

		out, err := f.uc.SendMail(ctx, in)

		require.NoError(t, err)
		assert.Equal(t, SendMailOutput{MessageID: "abc", Channel: "brevo"}, out)
	})

	t.Run("Replay", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.IdempotencyKey = "order-42"
		f.idemp.On("Exec", mock.Anything, "order-42").Return(false, "abc", idempotency.ErrAlreadyCompleted).Once()

		out, err := f.uc.SendMail(ctx, in)

		require.NoError(t, err)
		assert.Equal(t, SendMailOutput{MessageID: "abc", Channel: "brevo", Replayed: true}, out)
	})

	t.Run("InProgress", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.IdempotencyKey = "order-42"
		f.idemp.On("Exec", mock.Anything, "order-42").Return(false, "", idempotency.ErrAlreadyInProgress).Once()

		_, err := f.uc.SendMail(ctx, in)

		var gerr *goerror.Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, goerror.CodeConflict, gerr.Code())
	})

	t.Run("KeyScopedByCaller", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.IdempotencyKey = "order-42"
		in.Caller = "billing"
		f.idemp.On("Exec", mock.Anything, "billing:order-42").Return(false, "abc", idempotency.ErrAlreadyCompleted).Once()

		out, err := f.uc.SendMail(ctx, in)

		require.NoError(t, err)
		assert.True(t, out.Replayed)
	})

	t.Run("RedisDown", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.IdempotencyKey = "order-42"
		f.idemp.On("Exec", mock.Anything, "order-42").Return(false, "", errors.New("redis: connection refused")).Once()

		_, err := f.uc.SendMail(ctx, in)

		assert.Equal(t, goerror.TypeServer, goerror.TypeOf(err))
	})

	t.Run("SendFailureKeepsType", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.IdempotencyKey = "order-42"
		f.idemp.On("Exec", mock.Anything, "order-42").Return(true).Once()
		f.dispatch.On("Dispatch", mock.Anything, mock.Anything).Return("", goerror.NewTransport(errors.New("421"))).Once()

		_, err := f.uc.SendMail(ctx, in)

		assert.Equal(t, goerror.TypeTransport, goerror.TypeOf(err))
	})
}
