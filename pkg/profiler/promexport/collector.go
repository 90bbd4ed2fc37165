// Package promexport exposes profiler snapshots as prometheus metrics.
// It is a pure consumer of the snapshot data: collecting never blocks
// profiler producers beyond the snapshot copy itself.
package promexport

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gpukit/gpuprof/pkg/profiler"
)

type Collector struct {
	manager *profiler.Manager

	cpuAverage *prometheus.Desc
	gpuAverage *prometheus.Desc
	samples    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

func NewCollector(manager *profiler.Manager) *Collector {
	labels := []string{"timeline", "timer", "level", "async"}
	return &Collector{
		manager: manager,
		cpuAverage: prometheus.NewDesc(
			"gpuprof_timer_cpu_seconds",
			"Averaged CPU time of a profiler timer.",
			labels, nil,
		),
		gpuAverage: prometheus.NewDesc(
			"gpuprof_timer_gpu_seconds",
			"Averaged GPU time of a profiler timer.",
			labels, nil,
		),
		samples: prometheus.NewDesc(
			"gpuprof_timer_samples",
			"Number of samples behind the timer averages.",
			labels, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cpuAverage
	ch <- c.gpuAverage
	ch <- c.samples
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	frame, async := c.manager.GetSnapshots()

	seen := map[string]struct{}{}
	emit := func(snap *profiler.Snapshot) {
		for i, info := range snap.TimerInfos {
			labels := []string{
				snap.Name,
				snap.TimerNames[i],
				strconv.Itoa(int(info.Level)),
				strconv.FormatBool(info.Async),
			}
			// Same-name timers can repeat within a level when a split
			// fences them apart; only the first one is exported.
			key := labels[0] + "\x00" + labels[1] + "\x00" + labels[2] + "\x00" + labels[3]
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			ch <- prometheus.MustNewConstMetric(c.cpuAverage, prometheus.GaugeValue, info.CPU.Average/1e6, labels...)
			ch <- prometheus.MustNewConstMetric(c.gpuAverage, prometheus.GaugeValue, info.GPU.Average/1e6, labels...)
			ch <- prometheus.MustNewConstMetric(c.samples, prometheus.GaugeValue, float64(info.NumAveraged), labels...)
		}
	}
	for i := range frame {
		emit(&frame[i])
	}
	for i := range async {
		emit(&async[i])
	}
}
