package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"vecna/internal/ipc"
)

var socketPath string

func main() {
	root := &cobra.Command{
		Use:           "vecna-ctl",
		Short:         "Query a running vecna daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&socketPath, "socket", "s",
		filepath.Join(os.TempDir(), "vecna.sock"), "daemon control socket")

	root.AddCommand(statusCmd())
	root.AddCommand(pingCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vecna-ctl:", err)
		os.Exit(1)
	}
}

func send(cmd string) (ipc.Reply, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rep, err := ipc.Send(ctx, socketPath, cmd)
	if err != nil {
		return rep, fmt.Errorf("vecna not reachable at %s: %w", socketPath, err)
	}
	return rep, nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the assistant status and the last exchange",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := send("status")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			status := rep.Status
			if rep.Detail != "" {
				status += " (" + rep.Detail + ")"
			}
			fmt.Fprintf(out, "Status:  %s\n", status)
			if !rep.Since.IsZero() {
				fmt.Fprintf(out, "Since:   %s\n", rep.Since.Format(time.DateTime))
			}
			if rep.LastUser != "" {
				fmt.Fprintf(out, "User:    %s\n", rep.LastUser)
			}
			if rep.LastBot != "" {
				fmt.Fprintf(out, "Reply:   %s\n", rep.LastBot)
			}
			return nil
		},
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the daemon is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := send("ping"); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "pong")
			return nil
		},
	}
}
