/*
 * Copyright 2025 wrenlib.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"trace", logrus.TraceLevel},
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"", logrus.InfoLevel},
		{" INFO ", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"fatal", logrus.FatalLevel},
		{"panic", logrus.PanicLevel},
		{"verbose", logrus.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEnvDefaults(t *testing.T) {
	if got := EnvDefaultString("WREN_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("unset string = %q", got)
	}
	t.Setenv("WREN_TEST_STR", "value")
	if got := EnvDefaultString("WREN_TEST_STR", "fallback"); got != "value" {
		t.Errorf("set string = %q", got)
	}

	if !EnvDefaultBool("WREN_TEST_UNSET", true) {
		t.Error("unset bool did not keep its default")
	}
	t.Setenv("WREN_TEST_BOOL", "1")
	if !EnvDefaultBool("WREN_TEST_BOOL", false) {
		t.Error(`"1" not read as true`)
	}
	t.Setenv("WREN_TEST_BOOL", "notabool")
	if EnvDefaultBool("WREN_TEST_BOOL", true) {
		t.Error("unparsable value did not read as false")
	}
}

func TestRuneHelpers(t *testing.T) {
	if got := limitRunes("database", 4); got != "data" {
		t.Errorf("limitRunes = %q", got)
	}
	if got := limitRunes("db", 10); got != "db" {
		t.Errorf("limitRunes under width = %q", got)
	}
	if got := padLeftRunes("x", 3); got != "  x" {
		t.Errorf("padLeftRunes = %q", got)
	}
	if got := padLeftRunes("xyz", 2); got != "xyz" {
		t.Errorf("padLeftRunes over width = %q", got)
	}
}

func TestDotPathCompact(t *testing.T) {
	if got := dotPathCompact("database/manager.go", 40); got != "database.manager.go" {
		t.Errorf("wide = %q", got)
	}
	if got := dotPathCompact("repository/base.go", 12); got != "r.base.go" {
		t.Errorf("abbreviated = %q", got)
	}
	if got := dotPathCompact("conn.go", 20); got != "conn.go" {
		t.Errorf("bare file = %q", got)
	}
	if got := dotPathCompact("repository/base.go", 0); got != "" {
		t.Errorf("zero width = %q", got)
	}
	if got := dotPathCompact("repository/base.go", 5); len(got) > 5 {
		t.Errorf("tight = %q, longer than the cap", got)
	}
}

func TestLoggerRegistry(t *testing.T) {
	l := NewLogger("registry-probe")
	if !SetLoggerLevel("registry-probe", "error") {
		t.Fatal("registered logger not found by name")
	}
	if l.GetLevel() != logrus.ErrorLevel {
		t.Errorf("level = %v, want error", l.GetLevel())
	}
	if SetLoggerLevel("registry-missing", "debug") {
		t.Error("unknown name reported as found")
	}
}

func TestJSONLogFormatter(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "db"}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Level:   logrus.InfoLevel,
		Message: "connected",
		Data:    logrus.Fields{"table": "users"},
	}
	b, err := f.Format(entry)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(b, &rec); err != nil {
		t.Fatalf("output not json: %v", err)
	}
	if rec["level"] != "info" || rec["model"] != "db" || rec["message"] != "connected" {
		t.Errorf("record = %v", rec)
	}
	fields, ok := rec["fields"].(map[string]any)
	if !ok || fields["table"] != "users" {
		t.Errorf("fields = %v", rec["fields"])
	}
}

func TestConfigureConsoleLogFormat(t *testing.T) {
	ConfigureConsoleLogFormat("JSON")
	if _, ok := NewLogger("format-json-probe").Formatter.(*JSONLogFormatter); !ok {
		t.Error("json format not applied to new loggers")
	}
	ConfigureConsoleLogFormat("text")
	if _, ok := NewLogger("format-text-probe").Formatter.(*Log4jColorFormatter); !ok {
		t.Error("text format not restored")
	}
}
