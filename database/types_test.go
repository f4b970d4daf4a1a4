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

package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigSeedsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.yaml")
	content := `connection:
  type: sqlite
  dbname: app.db
provision:
  enable_on_startup: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Connection.Type != "sqlite" || cfg.Connection.DBName != "app.db" {
		t.Errorf("connection = %+v", cfg.Connection)
	}
	if !cfg.Provision.EnableOnStartup {
		t.Error("provisioning flag not loaded")
	}
	// Values absent from the file keep their defaults.
	if cfg.Connection.MaxIdleConns != 10 || cfg.Connection.MaxOpenConns != 100 {
		t.Errorf("pool defaults = %d/%d, want 10/100", cfg.Connection.MaxIdleConns, cfg.Connection.MaxOpenConns)
	}
	if cfg.Connection.SlowQueryTime != 2*time.Second {
		t.Errorf("slow query time = %v, want 2s", cfg.Connection.SlowQueryTime)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file did not fail")
	}
}

func TestExportConfigRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connection.Type = "postgres"
	cfg.Connection.Host = "db.internal"
	cfg.Connection.Port = 5432
	cfg.Connection.DBName = "orders"
	cfg.Provision.ForeignKeyFile = "fk.yaml"

	path := filepath.Join(t.TempDir(), "out", "db.yaml")
	if err := ExportConfig(cfg, path); err != nil {
		t.Fatalf("export: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Connection.Type != "postgres" || loaded.Connection.Host != "db.internal" ||
		loaded.Connection.Port != 5432 || loaded.Connection.DBName != "orders" {
		t.Errorf("connection = %+v", loaded.Connection)
	}
	if loaded.Provision.ForeignKeyFile != "fk.yaml" {
		t.Errorf("foreign key file = %q", loaded.Provision.ForeignKeyFile)
	}
	if loaded.Connection.ConnMaxLifetime != time.Hour {
		t.Errorf("conn max lifetime = %v, want 1h", loaded.Connection.ConnMaxLifetime)
	}

	if err := ExportConfig(nil, path); err == nil {
		t.Error("nil config did not fail")
	}
}

func TestModelRegistryOrdering(t *testing.T) {
	registry := newModelRegistry()
	type first struct{}
	type second struct{}
	type third struct{}
	registry.Register(NewModelAdapter((*third)(nil), 30))
	registry.Register(NewModelAdapter((*first)(nil), 1))
	registry.Register(NewModelAdapter((*second)(nil), 15))

	models := registry.Models()
	if len(models) != 3 {
		t.Fatalf("models = %d, want 3", len(models))
	}
	priorities := []int{models[0].Priority(), models[1].Priority(), models[2].Priority()}
	if priorities[0] != 1 || priorities[1] != 15 || priorities[2] != 30 {
		t.Errorf("priorities = %v, want ascending order", priorities)
	}
	if _, ok := models[0].Instance().(*first); !ok {
		t.Errorf("models[0] = %T, want *first", models[0].Instance())
	}
}

func TestRegisteredModelInstances(t *testing.T) {
	found := false
	for _, instance := range RegisteredModelInstances() {
		if _, ok := instance.(*provisionWidget); ok {
			found = true
		}
	}
	if !found {
		t.Error("registered widget model missing from the default registry")
	}
}
