package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mawsuah/tahqiq/internal/anchor"
)

// anchorsCmd represents the anchors command
var anchorsCmd = &cobra.Command{
	Use:   "anchors",
	Short: "Manage the timeline anchor reference set",
}

var anchorsLoadCmd = &cobra.Command{
	Use:   "load <anchors.yaml>",
	Short: "Validate and install an anchor set",
	Long: `Load validates an anchor hierarchy (unique ids, resolvable parents,
consistent depths, no cycles) and installs it wholesale, replacing any
previously installed set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := anchor.Load(args[0])
		if err != nil {
			return fmt.Errorf("load anchors: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if err := st.ReplaceAnchors(context.Background(), set); err != nil {
			return fmt.Errorf("install anchors: %w", err)
		}
		fmt.Printf("Installed %d anchors\n", set.Len())
		return nil
	},
}

var anchorsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the installed anchor set",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		set, err := st.LoadAnchors(context.Background())
		if err != nil {
			return err
		}
		fmt.Print(set.Render())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(anchorsCmd)
	anchorsCmd.AddCommand(anchorsLoadCmd)
	anchorsCmd.AddCommand(anchorsShowCmd)
}
