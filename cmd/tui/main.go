package main

import (
	"fmt"
	"os"

	"codeberg.org/docsuite/server/internal/config"
	"codeberg.org/docsuite/server/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	flags := config.ParseTUIFlags(os.Args[1:])

	app, err := tui.NewApp(flags)
	if err != nil {
		fmt.Printf("error starting docsuite: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		fmt.Printf("error running docsuite: %v\n", err)
		os.Exit(1)
	}
}
