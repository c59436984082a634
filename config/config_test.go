package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRead(t *testing.T) {
	type args struct {
		path string
	}
	tests := []struct {
		name    string
		args    args
		want    *Config
		wantErr bool
	}{
		{
			name: "simple parse",
			args: args{
				path: "fixtures/example.yml",
			},
			want: &Config{
				Execution: ExecutionConfig{Parallelism: 4},
				Output:    OutputConfig{Format: "json"},
				Logs:      LogsConfig{Level: "debug"},
			},
		},
		{
			name: "defaults are kept for missing fields",
			args: args{
				path: "fixtures/partial.yml",
			},
			want: &Config{
				Execution: ExecutionConfig{Parallelism: 2},
				Output:    OutputConfig{Format: "table"},
				Logs:      LogsConfig{Level: "info"},
			},
		},
		{
			name: "missing file",
			args: args{
				path: "fixtures/does_not_exist.yml",
			},
			want: Default(),
		},
		{
			name: "invalid output format",
			args: args{
				path: "fixtures/invalid_format.yml",
			},
			wantErr: true,
		},
		{
			name: "negative parallelism",
			args: args{
				path: "fixtures/negative_parallelism.yml",
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(tt.args.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
