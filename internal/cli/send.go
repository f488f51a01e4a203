package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/mailbite/internal/app"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"github.com/spf13/cobra"
)

// ErrNotSent is returned when the dispatcher reports a failed send.
var ErrNotSent = errors.New("email was not sent")

type sender interface {
	Send(ctx context.Context, req mail.Request) (string, bool)
}

// newSender builds the dispatcher from the service configuration. The
// returned func flushes instrumentation.
var newSender = func(ctx context.Context) (sender, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	ins, err := instrument.New(ctx, app.InstrumentConfig(cfg))
	if err != nil {
		_ = cfg.Close()
		return nil, nil, fmt.Errorf("init instrument: %w", err)
	}

	d, err := app.NewDispatcher(cfg, slog.Default())
	if err != nil {
		_ = ins.Shutdown(ctx)
		_ = cfg.Close()
		return nil, nil, err
	}

	return d, func() {
		_ = ins.Shutdown(context.WithoutCancel(ctx))
		_ = cfg.Close()
	}, nil
}

var sendFlags mail.Request

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one email through the configured channels",
	Args:  cobra.NoArgs,
	RunE:  RunSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendFlags.To, "to", "", "recipient address")
	sendCmd.Flags().StringVar(&sendFlags.Subject, "subject", "", "subject line")
	sendCmd.Flags().StringVar(&sendFlags.Text, "text", "", "plain text body")
	sendCmd.Flags().StringVar(&sendFlags.HTML, "html", "", "HTML body")
	sendCmd.Flags().StringVar(&sendFlags.From, "from", "", `sender, e.g. "Alice <alice@example.com>"`)
	sendCmd.Flags().StringVar(&sendFlags.Channel, "channel", "", "channel name (default: mail.default_channel)")
	sendCmd.Flags().StringVar(&sendFlags.Cc, "cc", "", "carbon copy address")
	sendCmd.Flags().StringVar(&sendFlags.Bcc, "bcc", "", "blind carbon copy address")
	sendCmd.Flags().StringVar(&sendFlags.ReplyTo, "reply-to", "", "reply-to address")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("subject")
	sendCmd.MarkFlagsOneRequired("text", "html")

	rootCmd.AddCommand(sendCmd)
}

func RunSend(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, done, err := newSender(ctx)
	if err != nil {
		return err
	}
	defer done()

	id, ok := s.Send(ctx, sendFlags)
	if !ok {
		return ErrNotSent
	}

	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
