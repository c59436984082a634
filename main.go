package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/cube2222/octoplan/arrowexec/nodes"
	"github.com/cube2222/octoplan/cmd"
	"github.com/cube2222/octoplan/serialization"
)

func main() {
	if err := nodes.Register(serialization.DefaultRegistry); err != nil {
		log.Fatalf("couldn't register plan nodes: %s", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd.Execute(ctx)
}
