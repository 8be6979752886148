package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"quiz-forge-service/internal/config"
	"quiz-forge-service/internal/generator"
	"quiz-forge-service/internal/logger"
	"quiz-forge-service/internal/quiz"
)

// NewGenerateCmd generates one quiz for a topic and prints the normalized
// content, answer keys included. Nothing is stored.
func NewGenerateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <topic>",
		Short: "Generate a quiz and print it as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()

			topic, err := quiz.ValidatePrompt(strings.Join(args, " "))
			if err != nil {
				return err
			}
			gen, err := generator.New(cmd.Context(), cfg.Generator, log)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), generator.Timeout(cfg.Generator))
			defer cancel()
			out, err := gen.Generate(ctx, topic)
			if err != nil {
				return err
			}
			if out.Notice != "" {
				log.Warn(out.Notice)
			}
			content, err := quiz.Normalize(out.Payload)
			if err != nil {
				return err
			}
			content = quiz.EnsurePromptCoverage(topic, content)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(content); err != nil {
				return fmt.Errorf("write quiz: %w", err)
			}
			return nil
		},
	}
}
