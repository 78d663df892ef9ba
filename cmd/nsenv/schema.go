package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/samuelfneumann/nonstationary/environment/envconfig"
)

func newSchemaCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Write the JSON schema of environment configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(buildSchema(), "", "  ")
			if err != nil {
				return fmt.Errorf("marshal schema: %w", err)
			}
			data = append(data, '\n')

			if out == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			return writeSchema(out, data)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "path to write the JSON schema, "+
		"stdout if empty")
	return cmd
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(new(envconfig.Config))
	schema.Title = "Non-stationary environment"
	schema.Description = "Configures a LayoutSwitch, DynamicsSwitch, or " +
		"Rotator environment for nsenv run"
	return schema
}

func writeSchema(outPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
