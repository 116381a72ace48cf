package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/viant/durable"
	"github.com/viant/durable/model"
	"github.com/viant/durable/service/engine/rest"
	"go.uber.org/zap"
)

// Version is set at build time.
var Version = "dev"

type cli struct {
	viper  *viper.Viper
	config *durable.Config
	logger *zap.Logger
}

func newCLI() *cli {
	v := viper.New()
	v.SetEnvPrefix("DURABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &cli{viper: v}
}

func (c *cli) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "durable",
		Short:             "Start durable workflows and resume their callbacks",
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}
	flags := cmd.PersistentFlags()
	flags.String("config", "", "YAML config URL (file path, file://, mem://, s3://)")
	flags.String("endpoint", "", "engine endpoint, e.g. http://localhost:9070")
	flags.String("region", "", "engine region")
	flags.String("token", "", "bearer token")
	flags.String("token-secret", "", "scy secret URL holding the bearer token")
	flags.String("token-secret-key", "", "scy key decrypting token-secret, e.g. blowfish://default")
	flags.Duration("timeout", 0, "per request timeout")
	flags.Bool("debug", false, "development logging")
	flags.String("trace-file", "", "write OpenTelemetry spans to this file")
	_ = c.viper.BindPFlags(flags)

	cmd.AddCommand(c.startCommand(), c.callbackCommand(), c.emulateCommand(), c.eventsCommand(), c.generateCommand())
	return cmd
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if c.logger == nil {
		var err error
		if c.viper.GetBool("debug") {
			c.logger, err = zap.NewDevelopment()
		} else {
			c.logger, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		zap.ReplaceGlobals(c.logger)
	}
	ctx := commandContext(cmd)
	config, err := durable.LoadConfig(ctx, c.viper.GetString("config"))
	if err != nil {
		return err
	}
	c.overlayString("endpoint", &config.Endpoint)
	c.overlayString("region", &config.Region)
	c.overlayString("token", &config.Token)
	c.overlayString("token-secret", &config.TokenSecret)
	c.overlayString("token-secret-key", &config.TokenSecretKey)
	if c.viper.IsSet("timeout") {
		config.Timeout = c.viper.GetDuration("timeout")
	}
	c.config = config
	return config.Validate()
}

func (c *cli) overlayString(key string, target *string) {
	if c.viper.IsSet(key) {
		*target = c.viper.GetString(key)
	}
}

func (c *cli) service(ctx context.Context) (*durable.Service, error) {
	options := []durable.Option{durable.WithConfig(c.config), durable.WithLogger(c.logger)}
	if traceFile := c.viper.GetString("trace-file"); traceFile != "" {
		options = append(options, durable.WithTracing("durable", Version, traceFile))
	}
	rest.Version = Version
	return durable.New(ctx, options...)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func jsonArgument(name, value string) (json.RawMessage, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if !json.Valid([]byte(value)) {
		return nil, model.NewError(model.ErrEncoding, name, fmt.Sprintf("--%s is not valid JSON", name))
	}
	return json.RawMessage(value), nil
}
