// Package cli defines the quill command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/quillvoice/quill/internal/app"
	"github.com/quillvoice/quill/internal/version"
)

// NewRootCmd builds the full command tree around one shared runner.
func NewRootCmd(runner *app.Runner) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "quill",
		Short: "Hotkey-driven long-form dictation engine",
		Long: "quill records audio in silence-bounded chunks, transcribes them " +
			"asynchronously, and types or copies the assembled transcript. " +
			"It is driven over a unix socket by an external hotkey front-end.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.String() + "\n")
	rootCmd.PersistentFlags().StringVar(&runner.ConfigPath, "config", "", "path to config.yaml (default: XDG config dir)")

	rootCmd.AddCommand(newServeCmd(runner))
	rootCmd.AddCommand(newSendCmd(runner))
	rootCmd.AddCommand(newStatusCmd(runner))
	rootCmd.AddCommand(newDevicesCmd(runner))
	rootCmd.AddCommand(newDoctorCmd(runner))
	rootCmd.AddCommand(newHistoryCmd(runner))

	return rootCmd
}
