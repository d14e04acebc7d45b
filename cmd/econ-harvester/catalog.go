// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/econ-harvester/internal/catalog"
	"github.com/pdiddy/econ-harvester/internal/harvest"
	"github.com/pdiddy/econ-harvester/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Query and maintain the local record catalog",
	Long: `Catalog manages a SQLite database of harvested records. Records are
keyed by source and URL, so repeated harvests update rather than duplicate.
Use subcommands to list, count, import or export records.`,
}

// --- list subcommand ---

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog records",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, _ := cmd.Flags().GetString("source")
		text, _ := cmd.Flags().GetString("query")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")
		asYAML, _ := cmd.Flags().GetBool("yaml")

		filter := catalog.Filter{Source: types.Source(src), Text: text, Limit: limit}
		if filter.Source != "" && !filter.Source.Valid() {
			return fmt.Errorf("unknown source %q (want nber, arxiv or ssrn)", src)
		}

		records, err := withCatalog(cmd, func(c *catalog.Catalog) ([]types.Record, error) {
			return c.List(context.Background(), filter)
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case asJSON:
			return writeJSON(out, records)
		case asYAML:
			return writeYAML(out, records)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SOURCE\tDATE\tTITLE")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Source, r.PublicationDate, r.Title)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d record(s)\n", len(records))
		return nil
	},
}

// --- stats subcommand ---

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count catalog records per source",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := catalogPath(cmd)
		c, err := catalog.Open(path)
		if err != nil {
			return err
		}
		defer c.Close()

		counts, err := c.Count(context.Background())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		total := 0
		for _, src := range types.Sources {
			fmt.Fprintf(out, "%-5s %d\n", src, counts[src])
			total += counts[src]
		}
		fmt.Fprintf(out, "total %d (%s)\n", total, path)
		return nil
	},
}

// --- import subcommand ---

var catalogImportCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Load JSON record artifacts into the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalog.Open(catalogPath(cmd))
		if err != nil {
			return err
		}
		defer c.Close()

		out := cmd.OutOrStdout()
		for _, path := range args {
			records, err := harvest.ReadRecords(path)
			if err != nil {
				return err
			}
			summary, err := c.Save(context.Background(), records)
			if err != nil {
				return fmt.Errorf("importing %s: %w", path, err)
			}
			fmt.Fprintf(out, "%s: %d inserted, %d updated, %d skipped\n", path, summary.Inserted, summary.Updated, summary.Skipped)
		}
		return nil
	},
}

// --- export subcommand ---

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog as a JSON or YAML record list",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, _ := cmd.Flags().GetString("source")
		output, _ := cmd.Flags().GetString("output")
		asYAML, _ := cmd.Flags().GetBool("yaml")

		records, err := withCatalog(cmd, func(c *catalog.Catalog) ([]types.Record, error) {
			return c.List(context.Background(), catalog.Filter{Source: types.Source(src)})
		})
		if err != nil {
			return err
		}

		if output == "" {
			if asYAML {
				return writeYAML(cmd.OutOrStdout(), records)
			}
			return writeJSON(cmd.OutOrStdout(), records)
		}

		if asYAML {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			if err := writeYAML(f, records); err != nil {
				return err
			}
		} else if output, err = harvest.WriteRecords(output, records); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records to %s\n", len(records), output)
		return nil
	},
}

func init() {
	catalogCmd.PersistentFlags().String("db", "", "catalog database path (default "+catalog.DefaultPath+")")

	catalogListCmd.Flags().String("source", "", "filter by source: nber, arxiv, ssrn")
	catalogListCmd.Flags().String("query", "", "match text in title or abstract")
	catalogListCmd.Flags().Int("limit", 0, "maximum records to list (0 for all)")
	catalogListCmd.Flags().Bool("json", false, "output records as JSON")
	catalogListCmd.Flags().Bool("yaml", false, "output records as YAML")

	catalogExportCmd.Flags().String("source", "", "export only this source")
	catalogExportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	catalogExportCmd.Flags().Bool("yaml", false, "export YAML instead of JSON")

	catalogCmd.AddCommand(catalogListCmd, catalogStatsCmd, catalogImportCmd, catalogExportCmd)
	rootCmd.AddCommand(catalogCmd)
}

// catalogPath resolves --db, then the configured catalog_path, then
// catalog.DefaultPath.
func catalogPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p
	}
	if p := viper.GetString("catalog_path"); p != "" {
		return p
	}
	return catalog.DefaultPath
}

func withCatalog(cmd *cobra.Command, fn func(*catalog.Catalog) ([]types.Record, error)) ([]types.Record, error) {
	c, err := catalog.Open(catalogPath(cmd))
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return fn(c)
}

func writeJSON(w io.Writer, records []types.Record) error {
	if records == nil {
		records = []types.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeYAML(w io.Writer, records []types.Record) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}
