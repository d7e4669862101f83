package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"vehicle-sim/internal/config"
	"vehicle-sim/internal/logging"
	"vehicle-sim/internal/templates"
	"vehicle-sim/internal/vss"
)

var (
	translateInput      string
	translateOut        string
	translateSchemaOut  string
	translateTemplateID string
	translateTopic      string
	translateStoreDir   string
	translateStoreTable string
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a VSS tree into a device template",
	Long:  "translate converts a Vehicle Signal Specification document (JSON or YAML) into simulation field schemas, optionally writing a JSON Schema companion and storing the result as a template.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		data, err := os.ReadFile(translateInput)
		if err != nil {
			return err
		}
		root, err := vss.Parse(data)
		if err != nil {
			return err
		}
		fields, err := vss.Translate(root)
		if err != nil {
			return err
		}

		if err := writeJSON(translateOut, cmd.OutOrStdout(), fields); err != nil {
			return err
		}
		if translateSchemaOut != "" {
			doc, err := vss.JSONSchema(root)
			if err != nil {
				return err
			}
			if err := writeJSON(translateSchemaOut, cmd.OutOrStdout(), doc); err != nil {
				return err
			}
		}

		if translateTemplateID == "" {
			return nil
		}
		store, err := newTemplateStore(ctx, config.Templates{Dir: translateStoreDir, DynamoDBTable: translateStoreTable})
		if err != nil {
			return err
		}
		tpl := templates.DeviceTemplate{ID: translateTemplateID, Name: translateTemplateID, Topic: translateTopic, Payload: fields}
		if err := store.Put(ctx, tpl); err != nil {
			return fmt.Errorf("store template %q: %w", translateTemplateID, err)
		}
		logging.FromContext(ctx).Info("template stored", "id", translateTemplateID, "fields", len(fields))
		return nil
	},
}

// writeJSON writes v to path, or to fallback when path is empty or "-".
func writeJSON(path string, fallback io.Writer, v any) error {
	if path == "" || path == "-" {
		return vss.Write(fallback, v)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := vss.Write(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	translateCmd.Flags().StringVar(&translateInput, "input", "", "Path to the VSS document")
	translateCmd.Flags().StringVar(&translateOut, "out", "", "Where to write the field schemas (default STDOUT)")
	translateCmd.Flags().StringVar(&translateSchemaOut, "schema-out", "", "Where to write the JSON Schema companion")
	translateCmd.Flags().StringVar(&translateTemplateID, "template-id", "", "Store the result as a template with this id")
	translateCmd.Flags().StringVar(&translateTopic, "topic", "", "Topic prefix stored with the template")
	translateCmd.Flags().StringVar(&translateStoreDir, "templates-dir", "configs/templates", "Template directory used with --template-id")
	translateCmd.Flags().StringVar(&translateStoreTable, "templates-table", "", "DynamoDB table used with --template-id instead of a directory")
	_ = translateCmd.MarkFlagRequired("input")
}
