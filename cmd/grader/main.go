package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/config"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/dto"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/grading"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/providers"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/ai"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/embedding"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/nlp"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := newRootCommand(logger).Execute(); err != nil {
		logger.Fatal().Err(err).Msg("grader failed")
	}
}

func newRootCommand(logger zerolog.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "grader",
		Short:         "grade answers from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newGradeCommand(logger), newEvaluateCommand(logger))
	return rootCmd
}

func newGradeCommand(logger zerolog.Logger) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "grade",
		Short: "grade a rubric request read from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var req dto.GradingRequest
			if err := readJSON(cmd.InOrStdin(), file, &req); err != nil {
				return err
			}

			result, err := gradeRequest(cmd.Context(), cfg, req, logger)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to a grading request, or - for stdin")
	return cmd
}

func newEvaluateCommand(logger zerolog.Logger) *cobra.Command {
	var req dto.EvaluationRequest

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "evaluate an answer with the configured language model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validator.New(validator.WithRequiredStructEnabled()).Struct(req); err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			generator, err := providers.NewGenerator(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Warn().Err(err).Msg("language model unavailable, using simulated score")
				generator = nil
			}

			evaluator := ai.NewEvaluator(generator, ai.EvaluatorConfig{Timeout: cfg.LLMTimeout, Logger: logger})
			outcome := evaluator.Evaluate(cmd.Context(), req.ToInput())
			return writeJSON(cmd.OutOrStdout(), dto.NewEvaluationResponse(outcome))
		},
	}

	cmd.Flags().StringVar(&req.Question, "question", "", "question text")
	cmd.Flags().StringVar(&req.StudentAnswer, "answer", "", "student answer")
	cmd.Flags().StringVar(&req.ExpectedAnswer, "expected", "", "expected answer")
	cmd.Flags().StringVar(&req.GradingCriteria, "criteria", "", "grading criteria")
	return cmd
}

func gradeRequest(ctx context.Context, cfg config.Config, req dto.GradingRequest, logger zerolog.Logger) (dto.GradingResult, error) {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(req); err != nil {
		return dto.GradingResult{}, err
	}

	domain := req.ToDomain()
	if err := grading.Validate(domain); err != nil {
		return dto.GradingResult{}, err
	}

	backend, err := providers.NewEmbedder(ctx, cfg)
	if err != nil {
		return dto.GradingResult{}, err
	}
	embeddings := embedding.NewService(backend, embedding.ServiceConfig{
		CacheSize:      cfg.EmbeddingCacheSize,
		CacheTTL:       cfg.EmbeddingCacheTTL,
		Serialize:      cfg.EmbeddingSerialize,
		ComputeTimeout: cfg.LLMTimeout,
		Logger:         logger,
	})
	defer embeddings.Close()

	lemmatizer, err := nlp.NewEnglishLemmatizer()
	if err != nil {
		return dto.GradingResult{}, err
	}

	engine := grading.NewEngine(nlp.NewNormalizer(lemmatizer), embeddings, cfg.CoverageConcurrency, logger)
	result, err := engine.Grade(ctx, domain)
	if err != nil {
		return dto.GradingResult{}, err
	}
	return dto.NewGradingResult(result), nil
}

func readJSON(stdin io.Reader, path string, target interface{}) error {
	reader := stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer file.Close()
		reader = file
	}

	if err := json.NewDecoder(reader).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(out io.Writer, value interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
