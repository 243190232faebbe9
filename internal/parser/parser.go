// Package parser puts os.Args into AppInit structure and validates it for any issues
package parser

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/UnendingLoop/URLFilter/internal/model"
)

const (
	defaultWorkers     = 4
	defaultTaskTimeout = time.Minute
)

func InitAppMode(args []string, output io.Writer) (*model.AppInit, error) {
	var appInit model.AppInit

	flagParser := flag.NewFlagSet("URLFilter", flag.ContinueOnError)
	flagParser.SetOutput(output)
	flagParser.Usage = func() {
		fmt.Fprintln(flagParser.Output(), "Usage: URLFilter [flags] [-node ADDR...] term [file...]\n       URLFilter -mode server [-address ADDR] [-config FILE]")
		flagParser.PrintDefaults()
	}

	mode := flagParser.String("mode", string(model.ModeCLI), "specify mode of the app: 'cli' or 'server'")
	flagParser.StringVar(&appInit.Address, "address", "", fmt.Sprintf("server address (default %q or taken from config)", model.DefaultServerAddress))
	flagParser.StringVar(&appInit.ConfigPath, "config", "", "path to server config TOML-file")
	flagParser.IntVar(&appInit.Workers, "workers", defaultWorkers, "number of files filtered concurrently")
	flagParser.DurationVar(&appInit.TaskTimeout, "timeout", defaultTaskTimeout, "time limit for filtering a single file")
	flagParser.Var(&appInit.Nodes, "node", "filter-node address to send tasks to, repeatable; without it files are filtered locally")
	flagParser.IntVar(&appInit.Quorum, "quorum", 0, "number of filter-nodes that must return the same result (default: majority of -node)")

	// парсим аргументы
	if err := flagParser.Parse(args); err != nil {
		return nil, err
	}

	appInit.Mode = model.AppMode(*mode)

	// проверяем режим
	switch appInit.Mode {
	case model.ModeCLI:
		if err := initCLIParam(&appInit, flagParser.Args()); err != nil {
			return nil, err
		}
	case model.ModeServer:
		if len(flagParser.Args()) > 0 {
			return nil, fmt.Errorf("unexpected arguments in server mode: %v", flagParser.Args())
		}
		if len(appInit.Nodes) > 0 {
			return nil, errors.New("-node is used only in cli mode")
		}
	default:
		return nil, fmt.Errorf("unknown mode %q specified", appInit.Mode)
	}

	return &appInit, nil
}

func initCLIParam(ai *model.AppInit, args []string) error {
	if ai.Workers <= 0 {
		return errors.New("incorrect number of workers provided")
	}
	if ai.TaskTimeout <= 0 {
		return errors.New("incorrect timeout provided")
	}

	// кворум имеет смысл только при работе через filter-nodes
	switch {
	case len(ai.Nodes) == 0 && ai.Quorum > 1:
		return errors.New("quorum above 1 requires at least one -node")
	case len(ai.Nodes) == 0:
		ai.Quorum = 1
	case ai.Quorum == 0:
		ai.Quorum = len(ai.Nodes)/2 + 1
	case ai.Quorum < 0 || ai.Quorum > len(ai.Nodes):
		return fmt.Errorf("incorrect quorum %d provided for %d nodes", ai.Quorum, len(ai.Nodes))
	}

	// Разбираемся с термом и входом
	switch len(args) {
	case 0:
		return errors.New("term not specified!\nUsage: URLFilter [flags] term [file...]")
	case 1:
		ai.FilterParam.Term = args[0]
	default:
		ai.FilterParam.Term = args[0]
		ai.FilterParam.Source = args[1:]
	}

	// ставим флаг чтобы печатать имя файла перед каждым результатом, если файлов несколько
	if len(ai.FilterParam.Source) > 1 {
		ai.FilterParam.PrintFileName = true
	}
	return nil
}
