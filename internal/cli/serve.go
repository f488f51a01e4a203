package cli

import (
	"github.com/shandysiswandi/mailbite/internal/app"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the mail.send.requested consumer",
	Args:  cobra.NoArgs,
	Run:   RunServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServe(*cobra.Command, []string) {
	application := app.New()
	wait := application.Start()
	<-wait

	ctx, cancel := application.ShutdownContext()
	defer cancel()
	application.Stop(ctx)
}
