package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type TimelineConfig struct {
	Name string `yaml:"name"`

	// Number of frames GPU results lag behind submission.
	FrameDelay uint32 `yaml:"frame_delay"`

	// Rolling window width for averaged statistics.
	AveragingCount int `yaml:"averaging_count"`

	// Simulated frames per second driven for this timeline.
	FrameRate int `yaml:"frame_rate"`

	// Number of goroutines exercising async sections on this timeline.
	AsyncWorkers int `yaml:"async_workers"`
}

type MetricsConfig struct {
	// Listen address of the prometheus endpoint, empty disables it.
	Addr string `yaml:"addr"`
}

type TracingConfig struct {
	// Pretty-print finished frame span trees to stderr.
	Stderr bool `yaml:"stderr"`
}

type Config struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`

	// Interval between snapshot printouts, zero disables printing.
	PrintInterval time.Duration `yaml:"print_interval"`

	Timelines []TimelineConfig `yaml:"timelines"`
}

func defaultConfig() *Config {
	return &Config{
		Metrics:       MetricsConfig{Addr: ":9090"},
		PrintInterval: 5 * time.Second,
		Timelines: []TimelineConfig{{
			Name:         "graphics",
			FrameDelay:   2,
			FrameRate:    60,
			AsyncWorkers: 2,
		}},
	}
}

func loadConfig(path string) (*Config, error) {
	conf := defaultConfig()
	if path == "" {
		return conf, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	for i := range conf.Timelines {
		t := &conf.Timelines[i]
		if t.Name == "" {
			return nil, fmt.Errorf("timeline %d: name is required", i)
		}
		if t.FrameRate <= 0 {
			t.FrameRate = 60
		}
	}
	return conf, nil
}
