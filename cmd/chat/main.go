package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"vlm-search-agent/internal/bootstrap"
	"vlm-search-agent/internal/config"
	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/pkg/agent"

	"github.com/fatih/color"
)

func main() {
	color.Cyan("\n\t\t\t Loading Agent .... !\n")

	cfg := config.Load()
	// logs go to the file only so they never interleave with agent output
	sysLogger := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	defer sysLogger.Sync()

	var opts []bootstrap.FactoryOption
	if cfg.Agent.StoreKind == "redis" {
		rdb := bootstrap.ConnectRedis(cfg, sysLogger)
		defer rdb.Close()
		opts = append(opts, bootstrap.WithRedis(rdb))
	}

	factory, err := bootstrap.NewAgentFactory(cfg, sysLogger, opts...)
	if err != nil {
		log.Fatalf("Unable to load agent: %v", err)
	}

	var sink agent.Sink = agent.NewBufferSink()
	if cfg.Agent.Stream {
		sink = agent.NewStreamSink(os.Stdout, agent.TerminalWidth)
	}
	a, err := factory.New(factory.TerminalStore(), sink)
	if err != nil {
		log.Fatalf("Unable to load agent: %v", err)
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	answer := func(ctx context.Context, imageURL, question string) (string, error) {
		out, err := a.Answer(ctx, imageURL, question)
		if cfg.Agent.Stream {
			// already printed line by line
			return "", err
		}
		return agent.Wrap(out, agent.TerminalWidth), err
	}

	newTerminal(readLines(os.Stdin), interrupts, os.Stdout, answer).Run(context.Background())
}
