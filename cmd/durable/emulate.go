package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/viant/durable"
	"github.com/viant/durable/model"
	"github.com/viant/durable/service/emulator"
	erest "github.com/viant/durable/service/emulator/rest"
	"go.uber.org/zap"
)

func (c *cli) emulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "emulate",
		Short:   "Serve a local engine with the sales-approval workflow",
		Example: `  durable emulate --listen :9070 --data-url file:///tmp/durable --approval-mode ask`,
		RunE:    c.emulate,
	}
	flags := cmd.Flags()
	flags.String("listen", "", "listen address")
	flags.String("data-url", "", "base URL of sales data, reports and archived executions")
	flags.String("events-url", "", "journal events under this URL for 'durable events'")
	flags.String("approval-mode", "", "ask, auto or deny")
	flags.String("redis-addr", "", "redis host:port for the callback ledger, in memory when empty")
	flags.String("redis-password", "", "redis password")
	flags.String("redis-namespace", "", "redis key namespace")
	flags.String("emulator-token", "", "bearer token required from clients")
	flags.Int("max-concurrency", 0, "max running executions")
	flags.Duration("max-wait", 0, "cap workflow waits, e.g. 1s to skip rate limit pauses")
	_ = c.viper.BindPFlags(flags)
	return cmd
}

func (c *cli) emulate(cmd *cobra.Command, _ []string) error {
	config := &c.config.Emulator
	c.overlayString("listen", &config.Listen)
	c.overlayString("data-url", &config.DataURL)
	c.overlayString("events-url", &config.EventsURL)
	c.overlayString("approval-mode", &config.Approval.Mode)
	c.overlayString("redis-addr", &config.Redis.Addr)
	c.overlayString("redis-password", &config.Redis.Password)
	c.overlayString("redis-namespace", &config.Redis.Namespace)
	c.overlayString("emulator-token", &config.Token)
	if c.viper.IsSet("max-concurrency") {
		config.Limits.MaxConcurrency = c.viper.GetInt("max-concurrency")
	}
	if c.viper.IsSet("max-wait") {
		config.Limits.MaxWait = c.viper.GetDuration("max-wait")
	}
	if err := c.config.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	local, err := durable.NewEmulator(ctx, config, c.logger.Named("emulator"))
	if err != nil {
		return err
	}
	defer func() { _ = local.Close() }()
	if err = local.Alias("sales-approval", "live", "1"); err != nil {
		return err
	}
	if config.EventsURL == "" {
		go c.logEvents(ctx, local.Service)
	}

	server := erest.NewServer(config.Listen, local.Service, erest.WithToken(config.Token), erest.WithLogger(c.logger.Named("http")))
	errs := make(chan error, 1)
	go func() { errs <- server.Start() }()
	c.logger.Info("emulator ready",
		zap.String("listen", config.Listen),
		zap.String("dataURL", config.DataURL),
		zap.String("approvalMode", config.Approval.Mode),
		zap.String("function", model.FunctionIdentifier{Name: "sales-approval", Qualifier: "1"}.String()))
	select {
	case err = <-errs:
		return err
	case <-ctx.Done():
		return server.Stop()
	}
}

func (c *cli) logEvents(ctx context.Context, local *emulator.Service) {
	for {
		message, err := local.Events().Consume(ctx)
		if err != nil {
			return
		}
		event := message.T()
		_ = message.Ack()
		c.logger.Info(event.Topic,
			zap.String("executionId", event.ExecutionID),
			zap.String("callbackId", event.CallbackID),
			zap.String("name", event.Name),
			zap.String("state", event.State))
	}
}
