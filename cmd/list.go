package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tabmux/tabmux/internal/control"
	"github.com/tabmux/tabmux/internal/tabs"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the windows of a session",
	Long: `List the windows of a tmux session, one per line.

Each line shows the tab index, window id, title and whether the window
is active. The session is created when it does not exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reply, err := oneShot(cmd.Context(), control.ListWindows())
		if err != nil {
			return err
		}

		reg := tabs.NewRegistry(1, 1, 0)
		reg.ProcessWindowList(reply.Text)
		for _, info := range reg.TabInfos() {
			marker := " "
			if info.Active {
				marker = "*"
			}
			fmt.Printf("%d%s %s  %s\n", info.Index, marker, info.WindowID, info.Title)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
