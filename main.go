package main

import (
	"github.com/shandysiswandi/mailbite/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	err := cli.Execute()
	cobra.CheckErr(err)
}
