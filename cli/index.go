package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keybase/fsse/docstore"
	"github.com/keybase/fsse/libsearch"
	"github.com/keybase/fsse/logger"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	key       string
	corpus    string
	out       string
	docs      string
	workers   int
	normalize bool
}

func newIndexCmd(g *globalOptions) *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the index of a corpus",
		Long: `Build the index of a corpus file.  Every line is a document, numbered from
zero; blank lines are not indexed but keep their number.

With --docs the lines are also sealed into a document store, so that search
results can be shown as text by the key holder.

Examples:
  fsse index --key $KEY --corpus notes.txt --out notes.fsi
  fsse index --key $KEY --corpus notes.txt --out notes.fsi --docs notes.sealed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("workers") {
				g.cfg.Indexer.Workers = opts.workers
			}
			if cmd.Flags().Changed("normalize") {
				g.cfg.Indexer.Normalize = opts.normalize
			}
			return runIndex(cmd, g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.key, "key", "", "Search key (32 hex digits)")
	cmd.Flags().StringVar(&opts.corpus, "corpus", "", "Corpus file, one document per line")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Where to write the index")
	cmd.Flags().StringVar(&opts.docs, "docs", "", "Where to write the sealed document store")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Number of hashing goroutines (default from config)")
	cmd.Flags().BoolVar(&opts.normalize, "normalize", false, "Lower-case words and drop punctuation")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("corpus")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runIndex(cmd *cobra.Command, g *globalOptions, opts indexOptions) error {
	l := logger.CreateLogger("index")
	defer l.LogTime()

	key, err := libsearch.ParseKey(opts.key)
	if err != nil {
		return err
	}
	corpus, err := os.ReadFile(opts.corpus)
	if err != nil {
		return err
	}

	idx, err := g.builder(key).BuildIndex(cmd.Context(), bytes.NewReader(corpus))
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	data, err := idx.MarshalBinary()
	if err != nil {
		return err
	}
	if err := libsearch.WriteFileAtomic(opts.out, data); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}

	if opts.docs != "" {
		store, err := docstore.Seal(docstore.DeriveKey(key), string(corpus))
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if _, err := store.WriteTo(&buf); err != nil {
			return err
		}
		if err := libsearch.WriteFileAtomic(opts.docs, buf.Bytes()); err != nil {
			return fmt.Errorf("writing document store: %w", err)
		}
	}

	logger.WithComponent("cli").Info("index written",
		"path", opts.out, "signatures", idx.Len(), "documents", idx.NumDocuments())
	return nil
}
