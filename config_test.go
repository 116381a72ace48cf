package durable_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/durable"
)

func TestDefaultConfig(t *testing.T) {
	config := durable.DefaultConfig()
	require.NoError(t, config.Validate())
	assert.Equal(t, ":9070", config.Emulator.Listen)
	assert.Equal(t, 256*1024, config.MaxPayloadSize)
}

func TestConfig_Validate(t *testing.T) {
	var testCases = []struct {
		description string
		mutate      func(c *durable.Config)
		expectErr   bool
	}{
		{description: "default", mutate: func(c *durable.Config) {}},
		{description: "missing endpoint", mutate: func(c *durable.Config) { c.Endpoint = "" }, expectErr: true},
		{description: "negative timeout", mutate: func(c *durable.Config) { c.Timeout = -time.Second }, expectErr: true},
		{description: "negative payload limit", mutate: func(c *durable.Config) { c.MaxPayloadSize = -1 }, expectErr: true},
		{description: "unknown approval mode", mutate: func(c *durable.Config) { c.Emulator.Approval.Mode = "maybe" }, expectErr: true},
		{description: "upper case mode", mutate: func(c *durable.Config) { c.Emulator.Approval.Mode = "AUTO" }},
	}
	for _, testCase := range testCases {
		config := durable.DefaultConfig()
		testCase.mutate(config)
		err := config.Validate()
		assert.Equal(t, testCase.expectErr, err != nil, testCase.description)
	}
}

func TestLoadConfig(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	location := "mem://localhost/durable/config.yaml"
	document := `
endpoint: http://engine.local:8080
region: ap-northeast-1
timeout: 5s
retry:
  maxAttempts: 2
  baseDelay: 10ms
emulator:
  listen: ":9999"
  dataURL: mem://localhost/durable/data
  approval:
    mode: auto
    block: [high-value-transaction-approval]
  redis:
    addr: localhost:6379
`
	require.NoError(t, fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader([]byte(document))))

	config, err := durable.LoadConfig(ctx, location)
	require.NoError(t, err)
	assert.Equal(t, "http://engine.local:8080", config.Endpoint)
	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.Equal(t, 2, config.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, config.Retry.BaseDelay)
	assert.Equal(t, ":9999", config.Emulator.Listen)
	assert.Equal(t, "auto", config.Emulator.Approval.Mode)
	assert.Equal(t, []string{"high-value-transaction-approval"}, config.Emulator.Approval.BlockList)
	assert.Equal(t, "localhost:6379", config.Emulator.Redis.Addr)
	assert.Equal(t, "durable", config.Emulator.Redis.Namespace)
	assert.Equal(t, 100, config.Emulator.Limits.MaxConcurrency)

	config, err = durable.LoadConfig(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, durable.DefaultConfig(), config)

	_, err = durable.LoadConfig(ctx, "mem://localhost/durable/missing.yaml")
	assert.Error(t, err)
}
