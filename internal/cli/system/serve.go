package system

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/healthchain/internal/api"
	"github.com/julianstephens/healthchain/internal/cli"
	"github.com/julianstephens/healthchain/internal/constants"
	"github.com/julianstephens/healthchain/internal/logger"
)

// ServeCmd exposes the stores over the JSON API until interrupted.
type ServeCmd struct {
	Addr string `help:"Address to listen on." default:"${listen_addr}" env:"HEALTHCHAIN_LISTEN_ADDR"`
}

func (cmd *ServeCmd) Run(ctx *cli.Context) error {
	addr := cmd.Addr
	if addr == "" {
		addr = constants.DefaultListenAddr
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting API server", "addr", addr, "store", ctx.Store.GetConfigPath())
	return api.New(ctx.Auth, ctx.Health, ctx.Wallet).ListenAndServe(sigCtx, addr)
}
