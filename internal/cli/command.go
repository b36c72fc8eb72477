package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/snonux/voxpref/internal"
)

// Runner carries out the commands. The processor implements it.
type Runner interface {
	Audio(ctx context.Context, location string) error
	Word(ctx context.Context, word string) error
	Criteria(ctx context.Context, assignments []string) error
	ListCriteria() error
	Result(ctx context.Context) error
	Export(ctx context.Context) error
	Run(ctx context.Context) error
	Status(ctx context.Context) error
	Reset(ctx context.Context) error
	Archive() error
	ListModels(ctx context.Context) error
}

// DefaultStateDir is where the session database and reports live
func DefaultStateDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "voxpref")
}

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags, runner Runner) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "voxpref",
		Short: "Pronunciation preference analysis client",
		Long: `voxpref walks you through picking the best pronunciation of a word.

Record or pick an audio sample, name the target word, weight six linguistic
criteria and get a ranked table of IPA candidates from the scoring service.

Examples:
  voxpref audio sample.wav                       # Step 1: audio sample
  voxpref word water                             # Step 2: target word and IPA
  voxpref criteria IA=6 DI=5 CO=4 PC=3 PS=2 F=1  # Step 3: criteria weights
  voxpref result                                 # Step 4: ranked table
  voxpref export --format pdf                    # Save the result
  voxpref run --audio a.wav --word water --weights IA=6,DI=5,CO=4,PC=3,PS=2,F=1
  voxpref run --batch words.txt --weights IA=6,DI=5,CO=4,PC=3,PS=2,F=1`,
		Args:          cobra.NoArgs,
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case flags.Archive:
				return runner.Archive()
			case flags.ListModels:
				return runner.ListModels(cmd.Context())
			}
			return cmd.Help()
		},
	}

	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "audio <file-or-url>",
			Short: "Record the audio sample to analyze",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runner.Audio(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "word <word>",
			Short: "Set the target word, fetch its IPA and analyze the sample",
			Args:  cobra.ArbitraryArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runner.Word(cmd.Context(), strings.Join(args, " "))
			},
		},
		newCriteriaCommand(flags, runner),
		newResultCommand(flags, runner),
		newExportCommand(flags, runner),
		newRunCommand(flags, runner),
		&cobra.Command{
			Use:   "status",
			Short: "Show the session's progress and the next step",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runner.Status(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Forget everything stored in the session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runner.Reset(cmd.Context())
			},
		},
	)

	return rootCmd
}

func newCriteriaCommand(flags *Flags, runner Runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "criteria [KEY=VALUE ...]",
		Short: "Weight the six criteria (1-6, all different) and submit them",
		Long: `Assign each criterion a distinct weight from 1 to 6, where 6 matters most.

Keys: IA (International Acceptance), DI (Dis-ambiguity), CO (Contrastiveness),
PC (Pedagogic Convenience), PS (Phonetic Simplicity), F (Frequency).
Unassigned criteria keep the default weight of 3.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.ListCriteria {
				return runner.ListCriteria()
			}
			return runner.Criteria(cmd.Context(), args)
		},
	}
	cmd.Flags().BoolVar(&flags.ListCriteria, "list", false, "List the criteria with their descriptions")
	return cmd
}

func newResultCommand(flags *Flags, runner Runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "result",
		Short: "Show the ranked pronunciation table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runner.Result(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&flags.Explain, "explain", false, "Explain the recommended IPA symbol by symbol")
	return cmd
}

func newExportCommand(flags *Flags, runner Runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Export the result to the output directory",
		Args:    cobra.NoArgs,
		PreRunE: bindFormat,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runner.Export(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&flags.ExportFormat, "format", "f", flags.ExportFormat, "Export format: pdf or csv")
	return cmd
}

func newRunCommand(flags *Flags, runner Runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run all steps in one go, for one word or a batch file",
		Args:    cobra.NoArgs,
		PreRunE: bindFormat,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runner.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&flags.RunAudio, "audio", "", "Audio sample file or URL")
	cmd.Flags().StringVar(&flags.RunWord, "word", "", "Target word")
	cmd.Flags().StringSliceVar(&flags.RunWeights, "weights", nil, "Criteria weights, e.g. IA=6,DI=5,CO=4,PC=3,PS=2,F=1")
	cmd.Flags().StringVar(&flags.BatchFile, "batch", "", "Process 'word = audio-file' lines from file")
	cmd.Flags().BoolVar(&flags.RunExport, "export", false, "Export every result to the output directory")
	cmd.Flags().StringVarP(&flags.ExportFormat, "format", "f", flags.ExportFormat, "Export format: pdf or csv")
	cmd.MarkFlagsMutuallyExclusive("batch", "word")
	cmd.MarkFlagsMutuallyExclusive("batch", "audio")
	return cmd
}

// bindFormat binds --format of the command being run. export and run both
// define one, so it cannot be bound up front.
func bindFormat(cmd *cobra.Command, _ []string) error {
	return viper.BindPFlag("export.format", cmd.Flags().Lookup("format"))
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	stateDir := DefaultStateDir()

	// Global flags
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.voxpref.yaml)")
	pf.StringVar(&flags.APIURL, "api-url", flags.APIURL, "Base URL of the pronunciation backend")
	pf.StringVar(&flags.ScoringURL, "scoring-url", "", "Base URL of the scoring service (default: same as --api-url)")
	pf.DurationVar(&flags.Timeout, "timeout", flags.Timeout, "Timeout for each backend request")
	pf.StringVar(&flags.SessionID, "session", flags.SessionID, "Session name")
	pf.StringVar(&flags.SessionDB, "session-db", filepath.Join(stateDir, "session.db"), "Session database file")
	pf.StringVarP(&flags.OutputDir, "output", "o", filepath.Join(stateDir, "reports"), "Output directory for exported reports")
	pf.StringVar(&flags.FontPath, "font", "", "TrueType font with IPA glyphs for PDF export (default: auto-detect)")
	pf.StringVar(&flags.ExplainProvider, "explain-provider", flags.ExplainProvider, "Explanation provider: openai or gemini")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format: console or json")

	// Local flags
	cmd.Flags().BoolVar(&flags.ListModels, "list-models", false, "List available OpenAI chat models for the current API key")
	cmd.Flags().BoolVar(&flags.Archive, "archive", false, "Archive the reports directory")

	bindFlagsToViper(pf)
}

func bindFlagsToViper(pf *pflag.FlagSet) {
	viper.BindPFlag("api.base_url", pf.Lookup("api-url"))
	viper.BindPFlag("api.scoring_url", pf.Lookup("scoring-url"))
	viper.BindPFlag("api.timeout", pf.Lookup("timeout"))
	viper.BindPFlag("session.id", pf.Lookup("session"))
	viper.BindPFlag("session.db", pf.Lookup("session-db"))
	viper.BindPFlag("output.directory", pf.Lookup("output"))
	viper.BindPFlag("export.font_path", pf.Lookup("font"))
	viper.BindPFlag("explain.provider", pf.Lookup("explain-provider"))
	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("log.format", pf.Lookup("log-format"))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".voxpref" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".voxpref")
	}

	// VOXPREF_API_BASE_URL overrides api.base_url
	viper.SetEnvPrefix("VOXPREF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("explain.openai_key")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("explain.gemini_key")
}
