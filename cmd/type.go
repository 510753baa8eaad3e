package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/qtype/internal/config"
	"github.com/xkilldash9x/qtype/internal/driver"
	"github.com/xkilldash9x/qtype/internal/engine"
	"github.com/xkilldash9x/qtype/internal/observability"
	"github.com/xkilldash9x/qtype/internal/sink"
)

// newTypeCmd creates and configures the `type` command.
func newTypeCmd() *cobra.Command {
	typeCmd := &cobra.Command{
		Use:   "type",
		Short: "Types the contents of a file or stdin with humanoid timing",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so they override config file and env values.
			if err := viper.BindPFlag("typing.profile", cmd.Flags().Lookup("profile")); err != nil {
				return err
			}
			return viper.BindPFlag("typing.layout", cmd.Flags().Lookup("layout"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg := config.Default()
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to unmarshal config with flag overrides: %w", err)
			}

			inputPath, _ := cmd.Flags().GetString("input")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			text, err := readInput(inputPath)
			if err != nil {
				return err
			}

			clean, skipped := driver.SanitizeText(text, logger)
			if clean == "" {
				return fmt.Errorf("input contains no typeable characters")
			}

			profile, delays, imperfections, layout := cfg.Typing.EngineSettings()
			logger.Info("Starting typing session",
				zap.String("profile", cfg.Typing.Profile),
				zap.String("layout", string(layout)),
				zap.Int("chars", len([]rune(clean))),
				zap.Int("skipped", skipped),
			)

			out := sink.NewConsole(os.Stdout)
			if dryRun {
				out = sink.NewUnpacedConsole(os.Stdout)
			}

			eng := engine.New(out, profile, delays, imperfections, layout, engine.NewSessionRand())
			if err := eng.SetText(clean); err != nil {
				return fmt.Errorf("failed to load text: %w", err)
			}

			startDelay := cfg.Typing.StartDelay
			if dryRun {
				startDelay = 0
			}

			d := driver.New(eng, out, logger, driver.Options{
				StartDelay:      startDelay,
				WatchdogTimeout: cfg.Typing.WatchdogTimeout,
			})
			if err := d.Run(ctx); err != nil {
				return fmt.Errorf("typing session failed: %w", err)
			}

			fmt.Fprintln(os.Stdout)
			logger.Info("Typing session completed",
				zap.Int("corrections", out.Backspaces()))
			return nil
		},
	}

	typeCmd.Flags().StringP("input", "i", "", "Input file path, or '-' for stdin (required)")
	typeCmd.Flags().String("profile", "advanced", "Timing profile: advanced, fast, slow_tired, professional")
	typeCmd.Flags().String("layout", "us_qwerty", "Keyboard layout: us_qwerty, uk_qwerty, de_qwertz, fr_azerty")
	typeCmd.Flags().Bool("dry-run", false, "Print instantly without pacing or start delay")
	_ = typeCmd.MarkFlagRequired("input")

	return typeCmd
}

// readInput loads the text to type from a file, or stdin when path is "-".
func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}
	return string(data), nil
}
