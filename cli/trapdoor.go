package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keybase/fsse/libsearch"
)

func newTrapdoorCmd(g *globalOptions) *cobra.Command {
	var keyHex string
	var normalize bool

	cmd := &cobra.Command{
		Use:   "trapdoor <word>",
		Short: "Print the trapdoor of a word",
		Long: `Print the trapdoor of a word, to hand to whoever holds the index.

Example:
  fsse trapdoor --key $KEY tokio`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("normalize") {
				g.cfg.Indexer.Normalize = normalize
			}
			key, err := libsearch.ParseKey(keyHex)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), g.builder(key).ComputeTrapdoor(args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&keyHex, "key", "", "Search key (32 hex digits)")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Normalize the word as the index did")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}
