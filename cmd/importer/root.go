package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "importer",
		Short:         "CRM bulk import tool: map, review, preview and commit tabular files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newAutomapCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newPreviewCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newWorkerCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
