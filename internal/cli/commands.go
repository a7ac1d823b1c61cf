package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillvoice/quill/internal/app"
	"github.com/quillvoice/quill/internal/audio"
	"github.com/quillvoice/quill/internal/doctor"
	"github.com/quillvoice/quill/internal/engine"
)

func newServeCmd(runner *app.Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dictation engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runner.Serve(cmd.Context())
		},
	}
}

func newSendCmd(runner *app.Runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send COMMAND [ARG]",
		Short: "Send one command to a running engine",
		Long: "Forwards a single engine command (START_RECORDING, " +
			"STOP_AND_TRANSCRIBE, TOGGLE_LANGUAGE, ...) over the command socket. " +
			"This is what hotkey bindings call.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) > 1 {
				arg = args[1]
			}
			return runner.Send(cmd.Context(), args[0], arg)
		},
	}
	return cmd
}

func newStatusCmd(runner *app.Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Query the running engine's state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runner.Send(cmd.Context(), engine.CmdStatus, "")
		},
	}
}

func newDevicesCmd(runner *app.Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			devices, err := audio.ListDevices(cmd.Context())
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Fprintln(runner.Stdout, "no audio devices found")
				return nil
			}

			for _, device := range devices {
				defaultMark := " "
				if device.Default {
					defaultMark = "*"
				}
				fmt.Fprintf(runner.Stdout,
					"%s id=%s | description=%q | state=%s | available=%t | muted=%t\n",
					defaultMark, device.ID, device.Description, device.State, device.Available, device.Muted,
				)
			}
			return nil
		},
	}
}

func newDoctorCmd(runner *app.Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check runtime prerequisites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := runner.LoadConfig()
			if err != nil {
				return err
			}

			report := doctor.Run(cmd.Context(), loaded.Config, loaded.Path)
			fmt.Fprintln(runner.Stdout, report.String())
			if !report.OK() {
				return fmt.Errorf("doctor found problems")
			}
			return nil
		},
	}
}

func newHistoryCmd(runner *app.Runner) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent session transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runner.History(cmd.Context(), limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of sessions to show")
	return cmd
}
