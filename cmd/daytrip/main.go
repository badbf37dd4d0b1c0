package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"daytrip/cmd/daytrip/commands"
	"daytrip/internal/shared"
)

const toolVersion = "1.0.0"

func main() {
	shared.InitializeColors()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := commands.NewRootCommand(toolVersion)
	if err := root.ExecuteContext(ctx); err != nil {
		shared.ColorError.Printf("❌ %v\n", err)
		os.Exit(1)
	}
}
