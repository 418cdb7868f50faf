package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/collage-pipeline/internal/archive"
	"github.com/fpang/collage-pipeline/internal/logging"
	"github.com/fpang/collage-pipeline/internal/pipeline"
	"github.com/fpang/collage-pipeline/internal/post"
)

// CLI flags
var (
	inputFlag       string
	outputDirFlag   string
	batchOutFlag    string
	concurrencyFlag int
	archiveFlag     string
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "collagegen",
	Short: "Generate per-post media collages from a scraped post batch",
	Long: `collagegen reads a batch of scraped social-media posts from a JSON file,
downloads each post's media, and renders one collage image per post: a fixed
grid of the post's photos (or sampled video frames) with the caption and
engagement stats overlaid below.

The augmented batch — each post annotated with its collage path — is written
back out as JSON for downstream analysis tools.

Examples:
  collagegen --input output/posts_data.json
  collagegen -i posts.json -o collages/ --concurrency 8
  collagegen -i posts.json --archive collages.zip`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&inputFlag, "input", "i", "", "JSON file holding the scraped post batch (required)")
	rootCmd.Flags().StringVarP(&outputDirFlag, "output-dir", "o", "output/collages", "Directory collage images are written into")
	rootCmd.Flags().StringVar(&batchOutFlag, "batch-out", "", "Path for the augmented batch JSON (default: alongside --output-dir)")
	rootCmd.Flags().IntVar(&concurrencyFlag, "concurrency", 0, "Worker pool size (default from COLLAGE_CONCURRENCY or 5)")
	rootCmd.Flags().StringVar(&archiveFlag, "archive", "", "Optional path for a zstd-compressed ZIP of all produced collages")
	rootCmd.MarkFlagRequired("input")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	// Environment variables may also come from a local .env file.
	godotenv.Load()
	logging.Init()

	posts, err := post.LoadBatch(inputFlag)
	if err != nil {
		log.Fatal().Err(err).Str("path", inputFlag).Msg("Failed to load post batch")
	}
	if len(posts) == 0 {
		log.Fatal().Str("path", inputFlag).Msg("Post batch is empty")
	}
	if err := post.ValidateBatch(posts); err != nil {
		log.Fatal().Err(err).Msg("Post batch failed validation")
	}

	p, err := pipeline.New(outputDirFlag)
	if err != nil {
		log.Fatal().Err(err).Str("dir", outputDirFlag).Msg("Failed to prepare output directory")
	}

	paths := p.RunBatch(context.Background(), posts, concurrency())
	posts = pipeline.Apply(posts, paths)

	batchOut := batchOutFlag
	if batchOut == "" {
		batchOut = filepath.Join(filepath.Dir(outputDirFlag), "posts_data.json")
	}
	if err := post.SaveBatch(batchOut, posts); err != nil {
		log.Fatal().Err(err).Str("path", batchOut).Msg("Failed to write augmented batch")
	}
	log.Info().Str("path", batchOut).Msg("Augmented batch written")

	if archiveFlag != "" {
		var produced []string
		for _, path := range paths {
			if path != "" {
				produced = append(produced, path)
			}
		}
		if len(produced) == 0 {
			log.Warn().Msg("No collages produced, skipping archive")
			return
		}
		if err := archive.Create(archiveFlag, produced); err != nil {
			log.Fatal().Err(err).Str("path", archiveFlag).Msg("Failed to write collage archive")
		}
	}
}

// concurrency resolves the worker pool bound: flag first, then the
// COLLAGE_CONCURRENCY environment variable, then the pipeline default.
func concurrency() int {
	if concurrencyFlag > 0 {
		return concurrencyFlag
	}
	if env := os.Getenv("COLLAGE_CONCURRENCY"); env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			return n
		}
		log.Warn().Str("value", env).Msg("Ignoring invalid COLLAGE_CONCURRENCY")
	}
	return pipeline.DefaultConcurrency
}
