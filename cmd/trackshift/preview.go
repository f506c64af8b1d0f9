package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/trackshift/trackshift/internal/config"
	"github.com/trackshift/trackshift/internal/output"
	"github.com/trackshift/trackshift/internal/redmine"
	"github.com/trackshift/trackshift/internal/render"
	"github.com/trackshift/trackshift/internal/wiki"
)

type previewResult struct {
	ID          int    `json:"id"`
	Subject     string `json:"subject"`
	Project     string `json:"project"`
	Description string `json:"description"`
}

var previewCmd = &cobra.Command{
	Use:   "preview <issue-id>",
	Short: "Show one issue and its converted description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		id, err := strconv.Atoi(args[0])
		if err != nil {
			return cmdErr(fmt.Errorf("invalid issue ID %q", args[0]), output.ErrGeneral)
		}

		client := redmine.NewClient(cfg.Redmine)
		issue, err := client.Issue(cmd.Context(), id)
		if err != nil {
			return cmdErr(fmt.Errorf("fetching issue #%d: %w", id, err), output.ErrNotFound)
		}

		converted := issue.Description
		if cfg.Redmine.TextFormat == config.TextFormatMarkdown {
			converted = wiki.MarkdownToWiki(issue.Description)
		}

		result := previewResult{
			ID:          issue.ID,
			Subject:     issue.Subject,
			Project:     issue.Project.Name,
			Description: converted,
		}

		jsonMode, _ := cmd.Flags().GetBool("json")
		var message string
		if !jsonMode {
			message = render.RenderPreview(issue.Subject, issue.Description, converted)
		}
		w.Success(result, message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
}
