package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keybase/fsse/docstore"
	"github.com/keybase/fsse/libsearch"
	"github.com/keybase/fsse/logger"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	index     string
	trapdoor  string
	key       string
	threshold uint32
	docs      string
	explain   bool
	normalize bool
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [word]",
		Short: "Search an index",
		Long: `Search an index with a trapdoor and print the matching document numbers,
one per line.  The trapdoor is either given as hex with --trapdoor, or computed
from a word and --key.  With --docs and --key the matching lines are printed
as well.

Examples:
  fsse search --index notes.fsi --key $KEY tokio
  fsse search --index notes.fsi --trapdoor 3f09...
  fsse search --index notes.fsi --key $KEY --docs notes.sealed --threshold 24 tokio`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("threshold") {
				g.cfg.Search.Threshold = opts.threshold
			}
			if cmd.Flags().Changed("normalize") {
				g.cfg.Indexer.Normalize = opts.normalize
			}
			if err := g.cfg.Validate(); err != nil {
				return err
			}
			return runSearch(cmd, g, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.index, "index", "", "Index file written by the index command")
	cmd.Flags().StringVar(&opts.trapdoor, "trapdoor", "", "Trapdoor (32 hex digits)")
	cmd.Flags().StringVar(&opts.key, "key", "", "Search key (32 hex digits)")
	cmd.Flags().Uint32VarP(&opts.threshold, "threshold", "t", libsearch.DefaultThreshold, "Largest Hamming distance that still matches")
	cmd.Flags().StringVar(&opts.docs, "docs", "", "Sealed document store written by the index command")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Print every matching signature with its distance")
	cmd.Flags().BoolVar(&opts.normalize, "normalize", false, "Normalize the word as the index did")
	_ = cmd.MarkFlagRequired("index")

	return cmd
}

func runSearch(cmd *cobra.Command, g *globalOptions, opts searchOptions, args []string) error {
	l := logger.CreateLogger("search")
	defer l.LogTime()

	var key libsearch.Key
	var err error
	if opts.key != "" {
		if key, err = libsearch.ParseKey(opts.key); err != nil {
			return err
		}
	}

	var trapdoor libsearch.Signature
	switch {
	case opts.trapdoor != "" && len(args) > 0:
		return errors.New("give either --trapdoor or a word, not both")
	case opts.trapdoor != "":
		if trapdoor, err = libsearch.ParseSignature(opts.trapdoor); err != nil {
			return err
		}
	case len(args) == 1 && opts.key != "":
		trapdoor = g.builder(key).ComputeTrapdoor(args[0])
	case len(args) == 1:
		return errors.New("searching for a word requires --key")
	default:
		return errors.New("give a word or --trapdoor")
	}

	if opts.docs != "" && opts.key == "" {
		return errors.New("--docs requires --key")
	}

	idx, err := readIndex(opts.index)
	if err != nil {
		return fmt.Errorf("reading index: %w", err)
	}

	var store *docstore.Store
	if opts.docs != "" {
		f, err := os.Open(opts.docs)
		if err != nil {
			return err
		}
		defer f.Close()
		if store, err = docstore.Read(f); err != nil {
			return fmt.Errorf("reading document store: %w", err)
		}
	}

	threshold := g.cfg.Search.Threshold
	out := cmd.OutOrStdout()
	if opts.explain {
		for _, m := range libsearch.SearchMatches(idx, trapdoor, threshold) {
			fmt.Fprintf(out, "# %s distance=%d documents=%v\n", m.Signature, m.Distance, m.Documents)
		}
	}

	docs := libsearch.SearchThreshold(idx, trapdoor, threshold)
	var sealingKey [32]byte
	if store != nil {
		sealingKey = docstore.DeriveKey(key)
	}
	for _, doc := range docs {
		if store == nil {
			fmt.Fprintln(out, doc)
			continue
		}
		line, err := store.Open(sealingKey, doc)
		if err != nil {
			return fmt.Errorf("opening document %d: %w", doc, err)
		}
		fmt.Fprintf(out, "%d\t%s\n", doc, line)
	}

	logger.WithComponent("cli").Debug("search done",
		"threshold", threshold, "signatures", idx.Len(), "matches", len(docs))
	return nil
}
