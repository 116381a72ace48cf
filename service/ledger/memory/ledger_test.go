package memory_test

import (
	"testing"

	"github.com/viant/durable/service/ledger/ledgertest"
	"github.com/viant/durable/service/ledger/memory"
)

func TestLedger(t *testing.T) {
	ledgertest.Run(t, memory.New())
}
