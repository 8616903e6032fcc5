package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sentiq/screener/internal/logger"
	"github.com/sentiq/screener/internal/web"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var confirmPrompt = promptui.Select{
	Label: "Screening will call live LLM providers. Proceed?",
	Items: []string{PromptYes, PromptNo},
}

var screenCmd = &cobra.Command{
	Use:   "screen [resume files]",
	Short: "Screen local resume files against a job description",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		screen(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().StringP("job-file", "f", "", "file containing the job description")
	screenCmd.Flags().String("job-description", "", "job description text (overrides --job-file)")
	screenCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before calling providers")
}

func screen(cmd *cobra.Command, paths []string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	jobDescription, err := resolveJobDescription(cmd)
	if err != nil {
		logger.Fatal("resolving the job description", zap.Error(err))
	}

	if len(paths) > web.MaxBatchSize {
		logger.Fatal("too many resumes",
			zap.Int("count", len(paths)),
			zap.Int("max", web.MaxBatchSize),
		)
	}

	autoApprove := cmd.Flag("auto-approve").Value.String() == "true"
	if !config.Simulate && !autoApprove {
		_, answer, err := confirmPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if answer != PromptYes {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	app, err := buildStack(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the application", zap.Error(err))
	}
	defer app.Close()

	results, err := app.Service.Screen(ctx, paths, jobDescription)
	if err != nil {
		logger.Fatal("screening failed", zap.Error(err))
	}

	pretty, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		logger.Fatal("encoding results", zap.Error(err))
	}

	fmt.Println(string(pretty))
}

func resolveJobDescription(cmd *cobra.Command) (string, error) {
	if text := strings.TrimSpace(cmd.Flag("job-description").Value.String()); text != "" {
		return text, nil
	}

	path := strings.TrimSpace(cmd.Flag("job-file").Value.String())
	if path == "" {
		return "", fmt.Errorf("a job description is required (--job-description or --job-file)")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading job description file: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("job description file %q is empty", path)
	}

	return text, nil
}
