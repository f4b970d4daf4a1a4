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
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// Provisioner creates the tables for all registered models and applies
// configured foreign key constraints. Each step runs once: applied steps are
// recorded in a ledger table and skipped on later runs.
type Provisioner struct {
	db             *bun.DB
	logger         Logger
	foreignKeyFile string
}

// ProvisionRecord is an applied provisioning step stored in the database.
type ProvisionRecord struct {
	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// provisionFunc is a provisioning step executed within a transaction.
type provisionFunc func(ctx context.Context, db bun.IDB) error

type provisionStep struct {
	Version     string
	Name        string
	Description string
	Up          provisionFunc
}

// NewProvisioner constructs a Provisioner. The foreign key file defaults to
// the globally configured one when the database was initialized via InitDB.
func NewProvisioner(db *bun.DB, logger Logger) *Provisioner {
	p := &Provisioner{
		db:     db,
		logger: logger,
	}
	if globalConfig != nil {
		p.foreignKeyFile = globalConfig.Provision.ForeignKeyFile
	}
	return p
}

// SetForeignKeyFile sets the YAML file that lists foreign key constraints.
func (p *Provisioner) SetForeignKeyFile(path string) {
	p.foreignKeyFile = path
}

// Run executes all pending provisioning steps in ascending version order.
func (p *Provisioner) Run(ctx context.Context) error {
	// silent provisioning
	if _, ok := os.LookupEnv("WRENDEBUG_PROVISION"); !ok {
		EnableBunSqlSilent(true)
		defer EnableBunSqlSilent(false)
	}

	if p.db == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := p.createLedgerTable(ctx); err != nil {
		return fmt.Errorf("failed to create provision ledger table: %w", err)
	}

	steps := p.steps()

	sort.Slice(steps, func(i, j int) bool {
		return steps[i].Version < steps[j].Version
	})

	for _, step := range steps {
		if err := p.runStep(ctx, step); err != nil {
			return fmt.Errorf("failed to execute provisioning step %s: %w", step.Version, err)
		}
	}

	if p.logger != nil {
		p.logger.Info("Database provisioning completed!")
	}

	return nil
}

func (p *Provisioner) createLedgerTable(ctx context.Context) error {
	_, err := p.db.NewCreateTable().
		Model((*ProvisionRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (p *Provisioner) steps() []provisionStep {
	steps := []provisionStep{
		{
			Version:     "001",
			Name:        "create_tables",
			Description: "Create tables for registered models",
			Up:          p.createTables,
		},
	}
	if p.foreignKeyFile != "" {
		steps = append(steps, provisionStep{
			Version:     "002",
			Name:        "add_foreign_keys",
			Description: "Add table foreign key constraints",
			Up:          p.addForeignKeys,
		})
	}
	return steps
}

func (p *Provisioner) runStep(ctx context.Context, step provisionStep) error {
	exists, err := p.db.NewSelect().
		Model((*ProvisionRecord)(nil)).
		Where("version = ?", step.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	var committed bool
	defer func(tx bun.Tx) {
		if !committed {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && p.logger != nil {
				p.logger.Error("Failed to rollback transaction", "error", rollbackErr)
			}
		}
	}(tx)

	if err := step.Up(ctx, tx); err != nil {
		return err
	}

	record := &ProvisionRecord{
		Version:     step.Version,
		Name:        step.Name,
		AppliedAt:   time.Now(),
		Description: step.Description,
	}

	_, err = tx.NewInsert().
		Model(record).
		Exec(ctx)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	if p.logger != nil {
		p.logger.Info("Provisioning step executed successfully", "version", step.Version, "name", step.Name)
	}

	return nil
}

func (p *Provisioner) createTables(ctx context.Context, db bun.IDB) error {
	for _, model := range RegisteredModelInstances() {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

func (p *Provisioner) addForeignKeys(ctx context.Context, db bun.IDB) error {
	fkManager, err := NewConfigurableForeignKeyManager(p.logger, p.foreignKeyFile)
	if err != nil {
		return fmt.Errorf("failed to load foreign key config: %w", err)
	}

	if errors := fkManager.ValidateConstraints(); len(errors) > 0 {
		for _, err := range errors {
			if p.logger != nil {
				p.logger.Debug("Foreign key constraint validation failed", "error", err.Error())
			}
		}
		return fmt.Errorf("foreign key constraint validation failed, %d errors in total", len(errors))
	}

	if p.logger != nil {
		p.logger.Debug("Managing foreign key constraints using config file", "config_path", p.foreignKeyFile)
	}

	return fkManager.AddAllForeignKeys(ctx, db)
}

// AppliedSteps returns provisioning records ordered by version.
func (p *Provisioner) AppliedSteps(ctx context.Context) ([]ProvisionRecord, error) {
	var records []ProvisionRecord
	err := p.db.NewSelect().
		Model(&records).
		Order("version ASC").
		Scan(ctx)
	return records, err
}
