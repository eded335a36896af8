package dto

import (
	"testing"
	"time"
)

func TestApplicationConfig_Validate(t *testing.T) {
	valid := func() ApplicationConfig {
		return ApplicationConfig{
			Application: ApplicationInfo{Name: "ringlog", Version: "1.0.0"},
			Buffer:      BufferConfig{ThresholdPercent: 50},
			Flush: FlushConfig{
				Interval:      10 * time.Second,
				StartTimeout:  5 * time.Second,
				AppendTimeout: 30 * time.Second,
			},
			Sink: SinkConfig{Backend: "file"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *ApplicationConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *ApplicationConfig) {}, wantErr: false},
		{name: "missing name", mutate: func(c *ApplicationConfig) { c.Application.Name = "" }, wantErr: true},
		{name: "missing backend", mutate: func(c *ApplicationConfig) { c.Sink.Backend = "" }, wantErr: true},
		{name: "bad threshold", mutate: func(c *ApplicationConfig) { c.Buffer.ThresholdPercent = -5 }, wantErr: true},
		{name: "negative start timeout", mutate: func(c *ApplicationConfig) { c.Flush.StartTimeout = -time.Second }, wantErr: true},
		{name: "zero append timeout", mutate: func(c *ApplicationConfig) { c.Flush.AppendTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBufferConfig_Validate(t *testing.T) {
	tests := []struct {
		threshold int
		wantErr   bool
	}{
		{threshold: 1, wantErr: false},
		{threshold: 50, wantErr: false},
		{threshold: 100, wantErr: false},
		{threshold: 0, wantErr: true},
		{threshold: 101, wantErr: true},
	}

	for _, tt := range tests {
		c := BufferConfig{ThresholdPercent: tt.threshold}
		if err := c.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("threshold %d: Validate() error = %v, wantErr %v", tt.threshold, err, tt.wantErr)
		}
	}
}

func TestFileConfig_Validate(t *testing.T) {
	if err := (&FileConfig{}).Validate(); err == nil {
		t.Error("Validate() should require a path")
	}
	if err := (&FileConfig{Path: "/var/log/app.log"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
