package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trackshift/trackshift/internal/assemble"
	"github.com/trackshift/trackshift/internal/config"
	"github.com/trackshift/trackshift/internal/export"
	"github.com/trackshift/trackshift/internal/mapping"
	"github.com/trackshift/trackshift/internal/output"
	"github.com/trackshift/trackshift/internal/redmine"
	"github.com/trackshift/trackshift/internal/relations"
	"github.com/trackshift/trackshift/internal/render"
)

type exportResult struct {
	Issues        int    `json:"issues"`
	Projects      int    `json:"projects"`
	Comments      int    `json:"comments"`
	InlineLinks   int    `json:"inline_links"`
	DeferredLinks int    `json:"deferred_links"`
	Unresolved    int    `json:"unresolved"`
	File          string `json:"file"`
	LinksFile     string `json:"links_file,omitempty"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export issues to the Jira import document",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		if err := cfg.Validate(); err != nil {
			return cmdErr(err, output.ErrConfig)
		}

		query, _ := cmd.Flags().GetString("query")
		file, _ := cmd.Flags().GetString("file")
		linksFile, _ := cmd.Flags().GetString("links-file")
		storePath, _ := cmd.Flags().GetString("store")
		pretty, _ := cmd.Flags().GetBool("pretty")
		noInput, _ := cmd.Flags().GetBool("no-input")
		jsonMode, _ := cmd.Flags().GetBool("json")

		ctx := cmd.Context()
		client := redmine.NewClient(cfg.Redmine)
		dir := redmine.NewDirectory(ctx, client)

		w.Info("fetching issues from %s", cfg.Redmine.URL)
		issues, err := client.Issues(ctx, query)
		if err != nil {
			return cmdErr(fmt.Errorf("fetching issues: %w", err), output.ErrGeneral)
		}
		if len(issues) == 0 {
			w.Success(exportResult{}, render.RenderSummary(nil))
			return nil
		}
		w.Info("fetched %d issues", len(issues))

		var store *mapping.Store
		if storePath != "" {
			store, err = mapping.OpenStore(storePath)
			if err != nil {
				return cmdErr(fmt.Errorf("opening decision store: %w", err), output.ErrGeneral)
			}
			defer store.Close()
		}

		// Prompting requires a terminal conversation; JSON mode and
		// --no-input leave unmapped values unresolved instead.
		var prompter mapping.Prompter
		if !noInput && !jsonMode {
			prompter = mapping.ConsolePrompter{}
		}

		resolver := mapping.NewResolver(cfg, prompter, store)
		if err := resolver.LoadStore(); err != nil {
			w.Warn("loading decision store: %v", err)
		}

		asm := assemble.New(assemble.Deps{
			Config:    cfg,
			Resolver:  resolver,
			Directory: dir,
			Warn:      w.Warn,
		})

		doc, side, summary, err := asm.Run(issues)
		if err != nil {
			var cfgErr *config.ConfigurationError
			if errors.As(err, &cfgErr) {
				return cmdErr(err, output.ErrConfig)
			}
			return cmdErr(err, output.ErrGeneral)
		}

		if err := writeDocumentFile(file, doc, pretty); err != nil {
			return cmdErr(err, output.ErrGeneral)
		}

		result := exportResult{
			Issues:        summary.Issues,
			Projects:      summary.Projects,
			Comments:      summary.Comments,
			InlineLinks:   summary.InlineLinks,
			DeferredLinks: summary.ExternalLinks,
			Unresolved:    summary.Unresolved,
			File:          file,
		}

		if side.Len() > 0 {
			if err := writeSideTableFile(linksFile, side); err != nil {
				return cmdErr(err, output.ErrGeneral)
			}
			result.LinksFile = linksFile
			w.Info("%d relations deferred to %s", side.Len(), linksFile)
		}

		var message string
		if !jsonMode {
			message = render.RenderSummary(summary)
		}
		w.Success(result, message)
		return nil
	},
}

func writeDocumentFile(path string, doc *export.Document, pretty bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := export.WriteDocument(f, doc, pretty); err != nil {
		return err
	}
	return f.Close()
}

func writeSideTableFile(path string, side *relations.SideTable) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := export.WriteSideTable(f, side); err != nil {
		return err
	}
	return f.Close()
}

func init() {
	exportCmd.Flags().String("query", "", "Issue filter query, e.g. 'project_id=acme'")
	exportCmd.Flags().StringP("file", "f", "export.json", "Output file for the import document")
	exportCmd.Flags().String("links-file", "links.csv", "Output file for deferred relations")
	exportCmd.Flags().String("store", ".trackshift.db", "Decision store path (empty to disable)")
	exportCmd.Flags().Bool("pretty", false, "Indent the JSON output")
	exportCmd.Flags().Bool("no-input", false, "Never prompt; leave unmapped values unresolved")
	rootCmd.AddCommand(exportCmd)
}
