package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// poolStat reads one value out of a pool snapshot.
type poolStat struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(*pgxpool.Stat) float64
}

// PoolCollector exports pgxpool statistics. Stats are read during each
// scrape; there is no polling goroutine.
type PoolCollector struct {
	pool  *pgxpool.Pool
	stats []poolStat
}

// NewPoolCollector creates a collector for pool. A nil pool (memory store)
// yields no samples.
func NewPoolCollector(pool *pgxpool.Pool) *PoolCollector {
	return &PoolCollector{
		pool: pool,
		stats: []poolStat{
			newPoolStat("acquire_count", "Cumulative count of successful connection acquires.", prometheus.CounterValue,
				func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) }),
			newPoolStat("acquire_duration_seconds", "Cumulative time spent acquiring connections.", prometheus.CounterValue,
				func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() }),
			newPoolStat("acquired_conns", "Number of currently acquired connections.", prometheus.GaugeValue,
				func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
			newPoolStat("canceled_acquire_count", "Cumulative count of acquires canceled by context.", prometheus.CounterValue,
				func(s *pgxpool.Stat) float64 { return float64(s.CanceledAcquireCount()) }),
			newPoolStat("idle_conns", "Number of idle connections in the pool.", prometheus.GaugeValue,
				func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
			newPoolStat("max_conns", "Maximum number of connections allowed.", prometheus.GaugeValue,
				func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
			newPoolStat("total_conns", "Total number of connections in the pool.", prometheus.GaugeValue,
				func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
		},
	}
}

func newPoolStat(name, help string, kind prometheus.ValueType, value func(*pgxpool.Stat) float64) poolStat {
	return poolStat{
		desc:  prometheus.NewDesc(namespace+"_pgxpool_"+name, help, nil, nil),
		kind:  kind,
		value: value,
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, s := range c.stats {
		ch <- s.desc
	}
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	stat := c.pool.Stat()
	for _, s := range c.stats {
		ch <- prometheus.MustNewConstMetric(s.desc, s.kind, s.value(stat))
	}
}
