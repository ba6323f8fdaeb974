package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/probablyarth/smartcache-go/internal/command"
	mylog "github.com/probablyarth/smartcache-go/internal/log"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.InitApp()
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
