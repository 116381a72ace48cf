package durable

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"github.com/viant/durable/policy"
	"github.com/viant/durable/service/dao/store"
	"github.com/viant/durable/service/emulator"
	"github.com/viant/durable/service/ledger"
	fsqueue "github.com/viant/durable/service/messaging/fs"
	lredis "github.com/viant/durable/service/ledger/redis"
	"github.com/viant/durable/service/pipeline"
	"github.com/viant/durable/service/sales"
	"go.uber.org/zap"
)

// Emulator bundles a local engine with the sales pipeline registered.
type Emulator struct {
	*emulator.Service
	Store  *sales.Store
	closer func() error
}

// Close stops the emulator and releases its ledger connection.
func (e *Emulator) Close() error {
	err := e.Service.Close()
	if e.closer != nil {
		if cErr := e.closer(); err == nil {
			err = cErr
		}
	}
	return err
}

// NewEmulator builds an emulator from config: a redis or memory ledger,
// executions archived under <dataURL>/executions, an optional event journal,
// the approval policy, and the sales pipeline registered as sales-approval
// version 1.
func NewEmulator(ctx context.Context, config *EmulatorConfig, logger *zap.Logger, options ...pipeline.Option) (*Emulator, error) {
	if logger == nil {
		logger = zap.L().Named("emulator")
	}
	fs := afs.New()
	archive, err := store.NewFileStore[string, emulator.Execution](ctx, fs, url.Join(config.DataURL, "executions"),
		func(e *emulator.Execution) string { return e.ID })
	if err != nil {
		return nil, err
	}
	emulatorOptions := []emulator.Option{
		emulator.WithConfig(config.Limits),
		emulator.WithArchive(archive),
		emulator.WithPolicy(policy.FromConfig(&config.Approval)),
		emulator.WithLogger(logger),
	}
	if config.EventsURL != "" {
		events, err := NewEventJournal(ctx, config.EventsURL)
		if err != nil {
			return nil, err
		}
		emulatorOptions = append(emulatorOptions, emulator.WithEvents(events))
	}
	ret := &Emulator{Store: sales.NewStore(config.DataURL, fs)}
	if config.Redis.Addr != "" {
		l, closer, err := newRedisLedger(ctx, &config.Redis)
		if err != nil {
			return nil, err
		}
		ret.closer = closer
		emulatorOptions = append(emulatorOptions, emulator.WithLedger(l))
		logger.Info("using redis callback ledger", zap.String("addr", config.Redis.Addr))
	}
	ret.Service = emulator.New(emulatorOptions...)

	options = append([]pipeline.Option{pipeline.WithLogger(logger.Named("pipeline"))}, options...)
	handler := pipeline.New(ret.Store, options...)
	if err = ret.Register(pipeline.FunctionName, "1", handler.Handle); err != nil {
		_ = ret.Close()
		return nil, err
	}
	return ret, nil
}

// NewEventJournal opens the emulator event journal at URL.
func NewEventJournal(ctx context.Context, URL string) (*fsqueue.Queue[emulator.Event], error) {
	config := fsqueue.DefaultConfig()
	config.BaseURL = URL
	return fsqueue.NewQueue[emulator.Event](ctx, afs.New(), config)
}

func newRedisLedger(ctx context.Context, config *RedisConfig) (ledger.Ledger, func() error, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:            config.Addr,
		Password:        config.Password,
		DB:              config.DB,
		Protocol:        2,
		DisableIdentity: true,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis %s: %w", config.Addr, err)
	}
	var options []lredis.Option
	if config.Namespace != "" {
		options = append(options, lredis.WithNamespace(config.Namespace))
	}
	if config.Retention > 0 {
		options = append(options, lredis.WithRetention(config.Retention))
	}
	return lredis.New(client, options...), client.Close, nil
}
