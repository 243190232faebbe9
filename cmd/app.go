package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/UnendingLoop/URLFilter/internal/appmode"
	"github.com/UnendingLoop/URLFilter/internal/model"
	"github.com/UnendingLoop/URLFilter/internal/parser"
)

func main() {
	// инициализировать параметры запуска - режим и прочее:
	appParam, err := parser.InitAppMode(os.Args[1:], os.Stderr)
	if err != nil {
		log.Printf("Failed to launch URLFilter: %q", err.Error())
		os.Exit(2)
	}

	// готовим слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// запуск приложения в указанном режиме
	switch appParam.Mode {
	case model.ModeCLI:
		err = appmode.RunCLI(ctx, appParam, os.Stdin, os.Stdout)
	case model.ModeServer:
		err = appmode.RunServer(ctx, appParam)
	}
	stop()

	if err != nil {
		log.Printf("URLFilter failed: %q", err.Error())
		os.Exit(1)
	}
}
