package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"classhub/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantErr bool
	}{
		{"json", config.LogConfig{Level: "info", Format: "json"}, false},
		{"console", config.LogConfig{Level: "debug", Format: "console"}, false},
		{"格式缺省为 json", config.LogConfig{Level: "warn"}, false},
		{"非法级别", config.LogConfig{Level: "verbose", Format: "json"}, true},
		{"非法格式", config.LogConfig{Level: "info", Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLogger() err=%v, wantErr=%v", err, tt.wantErr)
			}
			if l != nil {
				_ = l.Sync()
			}
		})
	}
}

func TestBuildConfig_JSON(t *testing.T) {
	zapCfg, err := buildConfig(&config.LogConfig{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("buildConfig 应成功: %v", err)
	}
	if zapCfg.Level.Level() != zapcore.WarnLevel {
		t.Errorf("期望 warn 级别，实际 %s", zapCfg.Level.Level())
	}
	if zapCfg.InitialFields["service"] != serviceName {
		t.Errorf("期望携带 service=%s，实际 %v", serviceName, zapCfg.InitialFields)
	}
	if zapCfg.Encoding != "json" || zapCfg.EncoderConfig.TimeKey != "time" {
		t.Errorf("JSON 编码配置不符: encoding=%s timeKey=%s", zapCfg.Encoding, zapCfg.EncoderConfig.TimeKey)
	}
}
