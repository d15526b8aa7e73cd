package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordLockWait(string, time.Duration)                         {}
func (n *NoopMetricsCollector) RecordLockTimeout(string)                                     {}
func (n *NoopMetricsCollector) RecordBalanceChange(string, decimal.Decimal, decimal.Decimal) {}
func (n *NoopMetricsCollector) RecordCacheHit(string)                                        {}
func (n *NoopMetricsCollector) RecordCacheMiss(string)                                       {}
