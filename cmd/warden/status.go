// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/warden/internal/store"
)

// SchemaStatus describes the migration state of the database.
type SchemaStatus struct {
	Version uint               `json:"version"`
	Dirty   bool               `json:"dirty"`
	Pending []PendingMigration `json:"pending"`
}

// PendingMigration is an embedded migration not yet applied.
type PendingMigration struct {
	Version uint   `json:"version"`
	Name    string `json:"name"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	return newStatusCmd(defaultMigratorFactory)
}

func newStatusCmd(factory MigratorFactory) *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the database schema status",
		Long:  `Show the applied migration version and any pending migrations.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(factory, func(m Migrator) error {
				status, err := querySchemaStatus(m)
				if err != nil {
					return err
				}
				return printStatus(cmd, cfg, status)
			})
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")
	return cmd
}

func querySchemaStatus(m Migrator) (SchemaStatus, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return SchemaStatus{}, oops.With("operation", "read migration version").Wrap(err)
	}
	versions, err := m.PendingMigrations()
	if err != nil {
		return SchemaStatus{}, err
	}

	status := SchemaStatus{Version: version, Dirty: dirty, Pending: []PendingMigration{}}
	for _, v := range versions {
		name, err := store.MigrationName(v)
		if err != nil {
			return SchemaStatus{}, err
		}
		status.Pending = append(status.Pending, PendingMigration{Version: v, Name: name})
	}
	return status, nil
}

func printStatus(cmd *cobra.Command, cfg *statusConfig, status SchemaStatus) error {
	if cfg.jsonOutput {
		out, err := formatStatusJSON(status)
		if err != nil {
			return err
		}
		cmd.Println(out)
		return nil
	}
	cmd.Println(formatStatusTable(status))
	return nil
}

func formatStatusTable(status SchemaStatus) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	state := "clean"
	if status.Dirty {
		state = "dirty"
	}
	fmt.Fprintf(w, "VERSION\t%d\n", status.Version)
	fmt.Fprintf(w, "STATE\t%s\n", state)
	fmt.Fprintf(w, "PENDING\t%d\n", len(status.Pending))
	for _, p := range status.Pending {
		fmt.Fprintf(w, "  %d\t%s\n", p.Version, p.Name)
	}
	//nolint:errcheck // strings.Builder does not fail
	w.Flush()
	return strings.TrimRight(sb.String(), "\n")
}

func formatStatusJSON(status SchemaStatus) (string, error) {
	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", oops.Code("STATUS_FORMAT_FAILED").Wrap(err)
	}
	return string(out), nil
}
