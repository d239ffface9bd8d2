package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tabmux/tabmux/internal/control"
)

// oneShot attaches in control mode, runs a single command and returns
// its reply. Used by the non-interactive subcommands.
func oneShot(ctx context.Context, command string) (control.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := control.Connect(ctx, control.Config{Session: sessionName()})
	if err != nil {
		return control.Reply{}, fmt.Errorf("attach to tmux: %w", err)
	}
	defer conn.Close()

	sent, err := conn.Send(command)
	if err != nil {
		return control.Reply{}, err
	}

	for {
		select {
		case <-ctx.Done():
			return control.Reply{}, ctx.Err()
		case ev, ok := <-conn.Events():
			if !ok {
				return control.Reply{}, control.ErrConnectionClosed
			}
			switch ev := ev.(type) {
			case control.Reply:
				if ev.Token != sent.Token {
					continue
				}
				if ev.IsError {
					return control.Reply{}, fmt.Errorf("tmux: %s", strings.TrimSpace(ev.Text))
				}
				return ev, nil
			case control.Closed:
				return control.Reply{}, fmt.Errorf("connection closed: %s", ev.Reason)
			}
		}
	}
}

func sessionName() string {
	if flagSession != "" {
		return flagSession
	}
	return "main"
}
