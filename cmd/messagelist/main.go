package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/nhle/messagelist/internal/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := commands.New().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Fatalf("error during command execution: %v", err)
	}
}
