package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amankumarsingh77/cloud-video-encoder/internal/models"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/transcoder"
	"github.com/amankumarsingh77/cloud-video-encoder/pkg/logger"
)

// This is a standalone CLI that runs the transcoder directly against a
// local file, bypassing the queue/storage/database wiring entirely. Useful
// for reproducing a transcode locally without standing up the full worker.
func main() {
	var inputPath string
	flag.StringVar(&inputPath, "input", "", "path to the source video file")
	flag.Parse()

	if inputPath == "" {
		if flag.NArg() > 0 {
			inputPath = flag.Arg(0)
		} else {
			fmt.Fprintln(os.Stderr, "usage: oneshot -input <path-to-video>")
			os.Exit(1)
		}
	}

	outputPath, err := processVideoFile(context.Background(), inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "processing failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("processed video saved at:", outputPath)
}

func processVideoFile(ctx context.Context, inputPath string) (string, error) {
	if strings.TrimSpace(inputPath) == "" {
		return "", errors.New("input path is required")
	}

	absPath, err := filepath.Abs(inputPath)
	if err != nil {
		return "", fmt.Errorf("resolve input path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return "", fmt.Errorf("open input file: %w", err)
	}
	defer file.Close()

	log := logger.NewApiLogger(&logger.Config{Level: "info", Encoding: "console"}, "oneshot")

	engine := transcoder.NewFFmpegProcessor(os.Getenv("FFMPEG_PATH"), os.Getenv("FFPROBE_PATH"), os.Getenv("VIDEO_TEMP_DIR"), log)
	processed, err := engine.Process(ctx, file, models.TranscodeOptions{
		ClipDuration: 30 * time.Second,
		TargetWidth:  1280,
		TargetHeight: 720,
		TargetFormat: "mp4",
		Watermark: &models.WatermarkOptions{
			Text:        "preview",
			FontColor:   "white",
			FontSize:    48,
			BorderWidth: 1,
			BorderColor: "gray",
			Position:    models.WatermarkBottomRight,
			MarginX:     40,
			MarginY:     40,
		},
	})
	if err != nil {
		return "", fmt.Errorf("transcode: %w", err)
	}
	defer processed.Close()

	outputDir := filepath.Dir(absPath)
	base := strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
	format := strings.TrimPrefix(processed.Format, ".")
	if format == "" {
		format = "mp4"
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("%s_processed.%s", base, format))

	outFile, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, processed.Reader); err != nil {
		return "", fmt.Errorf("write processed video: %w", err)
	}

	return outputPath, nil
}
