package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tabmux/tabmux/internal/control"
	"github.com/tabmux/tabmux/internal/vt"
)

var flagRaw bool

var captureCmd = &cobra.Command{
	Use:   "capture <pane-id>",
	Short: "Capture the visible content of a pane",
	Long: `Capture the visible content of a pane and print it to stdout.

The pane id is the tmux pane id (e.g. "%3"); ids are shown by the
list command's windows. By default styling escape sequences are
stripped; --raw prints them as received.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reply, err := oneShot(cmd.Context(), control.CapturePane(args[0]))
		if err != nil {
			return fmt.Errorf("capture pane %q: %w", args[0], err)
		}
		if flagRaw {
			fmt.Fprintln(os.Stdout, reply.Text)
			return nil
		}

		p := vt.NewParser()
		for _, line := range strings.Split(reply.Text, "\n") {
			var b strings.Builder
			for _, a := range p.Feed([]byte(line)) {
				if pr, ok := a.(vt.Print); ok {
					b.WriteRune(pr.Rune)
				}
			}
			fmt.Fprintln(os.Stdout, b.String())
		}
		return nil
	},
}

func init() {
	captureCmd.Flags().BoolVar(&flagRaw, "raw", false, "print escape sequences as received")
	rootCmd.AddCommand(captureCmd)
}
