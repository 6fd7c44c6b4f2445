package cmd

import (
	"fmt"

	"github.com/dgallion1/badgebind/internal/collect"
	"github.com/spf13/cobra"
)

var (
	collectUser    string
	collectOut     string
	collectRules   []string
	collectNoRules bool
	collectChanges bool
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Pull the Hack The Box profile and write the flat dataset",
	Long: "Fetches the profile endpoints (and the team's, when the profile has one),\n" +
		"stores the raw responses, flattens them into one mapping, stamps it and\n" +
		"applies the rewrite rules before writing YAML.",
	Args: cobra.NoArgs,
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().StringVar(&collectUser, "user", "", "profile id (default: HTB_USER_ID)")
	collectCmd.Flags().StringVarP(&collectOut, "out", "o", "", "dataset path (default: DATASET_PATH)")
	collectCmd.Flags().StringArrayVarP(&collectRules, "rule", "r", nil, `extra rewrite rule, e.g. -r '-c "user_" "u_"'`)
	collectCmd.Flags().BoolVar(&collectNoRules, "no-default-rules", false, "skip the built-in rewrite rules")
	collectCmd.Flags().BoolVar(&collectChanges, "changes", false, "print every rewrite")
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg := cliConfig()
	if collectUser != "" {
		cfg.HTBUserID = collectUser
	}
	if collectOut != "" {
		cfg.DatasetPath = collectOut
	}
	if err := cfg.ValidateCollector(); err != nil {
		return err
	}

	var rules []collect.Rule
	if !collectNoRules {
		rules = collect.DefaultRules(cfg.HTBBaseURL)
	}
	extra, err := collect.ParseRules(collectRules)
	if err != nil {
		return err
	}
	rules = append(rules, extra...)

	store, err := collect.OpenStore(cfg.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()

	log := newLogger()
	c := collect.NewCollector(collect.NewClient(cfg.HTBAppToken), store, cfg.HTBAPIURL, rules, log)
	rep, err := c.Refresh(cmd.Context(), cfg.HTBUserID, cfg.DatasetPath)
	if err != nil {
		return err
	}

	if collectChanges {
		for _, ch := range rep.Changes {
			fmt.Printf("%s: %s -> %s\n", ch.Action, ch.Old, ch.New)
		}
	}
	fmt.Printf("%d responses, %d keys, %d changes written to %s\n", rep.Responses, rep.Keys, len(rep.Changes), rep.Path)
	if len(rep.Skipped) > 0 {
		fmt.Printf("skipped team endpoints: %v\n", rep.Skipped)
	}
	return nil
}
