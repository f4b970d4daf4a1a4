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
	"context"
	"testing"
)

func TestFactoryCreateFromConfig(t *testing.T) {
	factory := NewDatabaseFactory()

	if _, err := factory.CreateFromConfig(nil); err == nil {
		t.Error("nil config did not fail")
	}
	if _, err := factory.CreateFromConfig(&ConnectionConfig{Type: "oracle"}); err == nil {
		t.Error("unsupported type did not fail")
	}

	cfg := &ConnectionConfig{
		Type:   "sqlite",
		DBName: "file:factory_create?mode=memory&cache=shared",
	}
	manager, err := factory.CreateFromConfig(cfg)
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}

	ctx := context.Background()
	if err := factory.InitializeDatabase(ctx, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() { _ = factory.Close() })

	if factory.GetDB() == nil {
		t.Fatal("no database handle after initialization")
	}
	if err := manager.Ping(ctx); err != nil {
		t.Errorf("ping: %v", err)
	}

	health := factory.GetHealthStatus(ctx)
	if health == nil || !health.Healthy || !health.Connected {
		t.Errorf("health = %+v, want healthy and connected", health)
	}
	if factory.GetStats() == nil {
		t.Error("no stats from a live manager")
	}
}

func TestFactoryUninitialized(t *testing.T) {
	factory := NewDatabaseFactory()

	if err := factory.InitializeDatabase(context.Background(), false); err == nil {
		t.Error("initialize without a manager did not fail")
	}
	if factory.GetDB() != nil {
		t.Error("database handle without a manager")
	}
	health := factory.GetHealthStatus(context.Background())
	if health == nil || health.Healthy || health.Connected {
		t.Errorf("health = %+v, want unhealthy placeholder", health)
	}
	if err := factory.Close(); err != nil {
		t.Errorf("close without a manager: %v", err)
	}
}

func TestFactoryEnvOverride(t *testing.T) {
	t.Setenv("DB_NAME", "file:factory_env?mode=memory&cache=shared")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_MAX_IDLE_CONNS", "7")

	factory := NewDatabaseFactory()
	cfg := &ConnectionConfig{
		Type:   "sqlite",
		DBName: "ignored.db",
		Port:   5432,
	}
	if _, err := factory.CreateFromConfig(cfg); err != nil {
		t.Fatalf("create manager: %v", err)
	}
	if cfg.DBName != "file:factory_env?mode=memory&cache=shared" {
		t.Errorf("dbname = %q, env override not applied", cfg.DBName)
	}
	if cfg.Port != 5433 {
		t.Errorf("port = %d, want 5433", cfg.Port)
	}
	if cfg.MaxIdleConns != 7 {
		t.Errorf("max idle conns = %d, want 7", cfg.MaxIdleConns)
	}
}
