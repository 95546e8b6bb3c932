// Package cli provides the fsse command line commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/keybase/fsse/config"
	"github.com/keybase/fsse/libsearch"
	"github.com/keybase/fsse/logger"
)

// globalOptions holds the flags shared by every command, and the
// configuration they resolve to.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	cfg        *config.Config
}

// NewRootCmd creates the root command for the fsse CLI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "fsse",
		Short: "Fuzzy keyword search over an encrypted index",
		Long: `fsse builds an index of keyed 128-bit word signatures over a corpus, one
document per line, and searches it with trapdoors.  Words that differ by a
typo or by case still match, and the index never holds a plaintext word.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text, json")

	cmd.AddCommand(newKeygenCmd())
	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newTrapdoorCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// resolve loads the configuration, applies the logging flags and sets up the
// logger.
func (o *globalOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	o.cfg = cfg
	return nil
}

// builder creates the index builder the configuration asks for.
func (o *globalOptions) builder(key libsearch.Key) *libsearch.IndexBuilder {
	opts := []libsearch.BuilderOption{libsearch.WithWorkers(o.cfg.Indexer.Workers)}
	if o.cfg.Indexer.Normalize {
		opts = append(opts, libsearch.WithNormalizer(libsearch.NormalizeKeyword))
	}
	return libsearch.CreateIndexBuilder(key, opts...)
}

// readIndex loads a marshaled index from `path`.
func readIndex(path string) (*libsearch.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	idx := new(libsearch.Index)
	if err := idx.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return idx, nil
}
