package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/crm-cleanup/internal/classify"
)

var rulesEffective bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the classification rules as YAML",
	Long:  "Prints the built-in rule set. With --effective, prints the rules after applying the configured rules file and threshold overrides.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rules := classify.DefaultRules()
		if rulesEffective {
			r, err := loadRules(cfg.Classifier)
			if err != nil {
				return err
			}
			rules = r
		}

		data, err := classify.MarshalRules(rules)
		if err != nil {
			return eris.Wrap(err, "rules")
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

func init() {
	rulesCmd.Flags().BoolVar(&rulesEffective, "effective", false, "apply config overrides before printing")
	rootCmd.AddCommand(rulesCmd)
}
