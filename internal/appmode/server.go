package appmode

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/UnendingLoop/URLFilter/internal/config"
	"github.com/UnendingLoop/URLFilter/internal/model"
	"github.com/UnendingLoop/URLFilter/internal/processor"
	"github.com/UnendingLoop/URLFilter/internal/transport"
)

// RunServer serves filter tasks until ctx is done, then shuts down within
// the configured timeout
func RunServer(ctx context.Context, ai *model.AppInit) error {
	cfg, err := config.Load(ai.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to launch filter-node: %w", err)
	}
	cfg.ApplyFlags(ai)

	// получить экземпляр сервера
	srv := transport.NewFilterServer(cfg, processor.Processor{})

	// запуск сервера
	listenErr := make(chan error, 1)
	go func() {
		log.Printf("Filter-node running on %s", srv.Addr)
		listenErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("filter-node %q stopped: %w", cfg.Address, err)
	case <-ctx.Done():
	}

	// Закрытие всех соединений сервера
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown filter-node %q correctly: %w", cfg.Address, err)
	}
	if err := <-listenErr; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("filter-node %q stopped: %w", cfg.Address, err)
	}

	log.Printf("Filter-node %q server is closed.", cfg.Address)
	return nil
}
