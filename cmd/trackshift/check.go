package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trackshift/trackshift/internal/mapping"
	"github.com/trackshift/trackshift/internal/output"
)

type checkResult struct {
	Config   string `json:"config"`
	Mappings int    `json:"mappings"`
	Values   int    `json:"values"`
	Fields   int    `json:"fields"`
}

// knownResources guards against typos in the mapping table: an unknown
// resource type would silently never match anything at run time.
var knownResources = map[string]bool{
	mapping.ResourceUser:         true,
	mapping.ResourceGroup:        true,
	mapping.ResourceProject:      true,
	mapping.ResourceTracker:      true,
	mapping.ResourceStatus:       true,
	mapping.ResourcePriority:     true,
	mapping.ResourceCategory:     true,
	mapping.ResourceVersion:      true,
	mapping.ResourceCustomField:  true,
	mapping.ResourceRelationType: true,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration without contacting the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		if err := cfg.Validate(); err != nil {
			return cmdErr(err, output.ErrConfig)
		}

		values := 0
		for _, m := range cfg.Mappings {
			if !knownResources[m.Resource] {
				return cmdErr(fmt.Errorf("unknown resource type %q in mappings", m.Resource), output.ErrConfig)
			}
			values += len(m.Values)
			for _, table := range m.Projects {
				values += len(table)
			}
		}

		result := checkResult{
			Config:   cfg.Path,
			Mappings: len(cfg.Mappings),
			Values:   values,
			Fields:   len(cfg.Fields),
		}
		w.Success(result, fmt.Sprintf("Configuration OK: %d mappings, %d values, %d field routes", result.Mappings, result.Values, result.Fields))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
