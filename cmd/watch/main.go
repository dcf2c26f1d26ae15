package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
)

func watchAction(_ context.Context, cmd *cli.Command) error {
	m := NewModel(cmd.String("server"), cmd.String("job"))
	p := tea.NewProgram(&m, tea.WithAltScreen())
	m.SetProgram(p)

	_, err := p.Run()

	return err
}

func main() {
	cmd := &cli.Command{
		Name:  "watch",
		Usage: "Follow the event stream of a backtest or training job",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "Server address",
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "job",
				Aliases: []string{"j"},
				Usage:   "Job id to watch; prompted for when empty",
			},
		},
		Action: watchAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
