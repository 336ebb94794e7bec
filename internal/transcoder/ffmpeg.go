package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/amankumarsingh77/cloud-video-encoder/internal/models"
	"github.com/amankumarsingh77/cloud-video-encoder/pkg/logger"
)

const (
	defaultClipDuration    = 30 * time.Second
	defaultWidth           = 1280
	defaultHeight          = 720
	curtainSegmentDuration = 2500 * time.Millisecond
)

// FFmpegProcessor drives ffmpeg/ffprobe as subprocesses to build a
// three-segment clip: a black curtain, the trimmed and watermarked content,
// and a closing curtain, concatenated into one encoded output.
type FFmpegProcessor struct {
	ffmpegPath  string
	ffprobePath string
	tempDir     string
	log         logger.Logger
}

func NewFFmpegProcessor(ffmpegPath, ffprobePath, tempDir string, log logger.Logger) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &FFmpegProcessor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, tempDir: tempDir, log: log}
}

func (p *FFmpegProcessor) Process(ctx context.Context, input io.Reader, opts models.TranscodeOptions) (*models.ProcessedVideo, error) {
	if input == nil {
		return nil, errors.New("transcoder: input reader is nil")
	}

	inputFile, err := os.CreateTemp(p.tempDir, "ffmpeg-input-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("transcoder: create temp input: %w", err)
	}
	inputPath := inputFile.Name()
	defer os.Remove(inputPath)

	if _, err := io.Copy(inputFile, input); err != nil {
		_ = inputFile.Close()
		return nil, fmt.Errorf("transcoder: write temp input: %w", err)
	}
	if err := inputFile.Close(); err != nil {
		return nil, fmt.Errorf("transcoder: close temp input: %w", err)
	}

	duration, err := p.probeDuration(ctx, inputPath)
	if err != nil {
		p.log.Warnf("transcoder: probe duration failed: %v", err)
	}

	clipDuration := opts.ClipDuration
	if clipDuration <= 0 {
		clipDuration = defaultClipDuration
	}
	if duration > 0 && (clipDuration > duration || clipDuration == 0) {
		clipDuration = duration
	}
	if clipDuration <= 0 {
		clipDuration = defaultClipDuration
	}

	width := opts.TargetWidth
	height := opts.TargetHeight
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}

	contentSeconds := clipDuration.Seconds()
	curtainSeconds := curtainSegmentDuration.Seconds()
	totalDuration := clipDuration + 2*curtainSegmentDuration
	totalSeconds := totalDuration.Seconds()

	frameRate := "30"
	if rate, err := p.probeFrameRate(ctx, inputPath); err == nil && rate != "" {
		frameRate = rate
	} else if err != nil {
		p.log.Debugf("transcoder: probe frame rate failed: %v", err)
	}

	baseFilters := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", width, height),
		fmt.Sprintf("pad=%d:%d:(%d-iw)/2:(%d-ih)/2", width, height, width, height),
		"setsar=1",
		"format=yuv420p",
	}
	if frameRate != "" {
		baseFilters = append(baseFilters, fmt.Sprintf("fps=%s", frameRate))
	}
	if contentSeconds > 0 {
		baseFilters = append(baseFilters, fmt.Sprintf("trim=duration=%.3f", contentSeconds), "setpts=PTS-STARTPTS")
	}

	filterParts := []string{fmt.Sprintf("[0:v]%s[vbase]", strings.Join(baseFilters, ","))}

	var watermarkCfg *watermarkConfig
	if opts.Watermark != nil {
		watermarkCfg = normalizeWatermark(opts.Watermark, contentSeconds)
	}

	mainLabel := "vbase"
	if watermarkCfg != nil {
		filterParts = append(filterParts, fmt.Sprintf("[%s]drawtext=%s[vmain]", mainLabel, buildDrawTextArgs(watermarkCfg, true)))
		mainLabel = "vmain"
	}

	curtainBase := fmt.Sprintf("color=c=black:size=%dx%d:rate=%s:d=%.3f,format=yuv420p,setsar=1", width, height, frameRate, curtainSeconds)
	filterParts = append(filterParts,
		fmt.Sprintf("%s[vcurtain_start_base]", curtainBase),
		fmt.Sprintf("%s[vcurtain_end_base]", curtainBase),
	)

	startLabel := "vcurtain_start_base"
	endLabel := "vcurtain_end_base"
	if watermarkCfg != nil {
		curtainDrawArgs := buildDrawTextArgs(watermarkCfg, false)
		filterParts = append(filterParts,
			fmt.Sprintf("[%s]drawtext=%s[vcurtain_start]", startLabel, curtainDrawArgs),
			fmt.Sprintf("[%s]drawtext=%s[vcurtain_end]", endLabel, curtainDrawArgs),
		)
		startLabel = "vcurtain_start"
		endLabel = "vcurtain_end"
	}

	filterParts = append(filterParts, fmt.Sprintf("[%s][%s][%s]concat=n=3:v=1:a=0[vout]", startLabel, mainLabel, endLabel))
	filter := strings.Join(filterParts, ";")

	outputExt := opts.TargetFormat
	if outputExt == "" {
		outputExt = "mp4"
	}
	outputFile, err := os.CreateTemp(p.tempDir, "ffmpeg-output-*"+ensureExt(outputExt))
	if err != nil {
		return nil, fmt.Errorf("transcoder: create temp output: %w", err)
	}
	outputPath := outputFile.Name()
	if err := outputFile.Close(); err != nil {
		os.Remove(outputPath)
		return nil, fmt.Errorf("transcoder: close temp output: %w", err)
	}

	args := []string{"-y", "-i", inputPath, "-filter_complex", filter, "-map", "[vout]"}
	args = append(args, "-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p", "-movflags", "+faststart")
	if opts.RemoveAudio {
		args = append(args, "-an")
	}
	if totalSeconds > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", totalSeconds))
	}
	args = append(args, outputPath)

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outputPath)
		return nil, fmt.Errorf("transcoder: processing failed: %w: %s", err, stderr.String())
	}

	reader, err := os.Open(outputPath)
	if err != nil {
		os.Remove(outputPath)
		return nil, fmt.Errorf("transcoder: open output: %w", err)
	}

	metadata := map[string]string{
		"clip_duration_seconds":   fmt.Sprintf("%.3f", contentSeconds),
		"curtain_segment_seconds": fmt.Sprintf("%.3f", curtainSeconds),
		"total_duration_seconds":  fmt.Sprintf("%.3f", totalSeconds),
		"frame_rate":              frameRate,
		"target_width":            strconv.Itoa(width),
		"target_height":           strconv.Itoa(height),
	}

	return &models.ProcessedVideo{
		Reader:   &tempFileReadCloser{File: reader, path: outputPath},
		Format:   outputExt,
		Duration: totalDuration,
		Metadata: metadata,
	}, nil
}

func (p *FFmpegProcessor) probeFrameRate(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath, "-v", "error", "-select_streams", "v:0", "-show_entries", "stream=avg_frame_rate", "-of", "default=noprint_wrappers=1:nokey=1", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffprobe frame rate: %w: %s", err, string(output))
	}
	frameRate := strings.TrimSpace(string(output))
	if frameRate == "" || frameRate == "N/A" || frameRate == "0/0" {
		return "", errors.New("ffprobe frame rate: unavailable")
	}
	return frameRate, nil
}

func (p *FFmpegProcessor) probeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath, "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w: %s", err, stderr.String())
	}
	durStr := strings.TrimSpace(string(output))
	if durStr == "" {
		return 0, errors.New("ffprobe: empty duration")
	}
	durSec, err := strconv.ParseFloat(durStr, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: parse duration: %w", err)
	}
	if durSec <= 0 {
		return 0, nil
	}
	return time.Duration(durSec * float64(time.Second)), nil
}

func normalizeWatermark(opts *models.WatermarkOptions, clipSeconds float64) *watermarkConfig {
	if opts == nil {
		return nil
	}

	text := opts.Text
	if text == "" {
		text = "Watermark"
	}

	fontColor := opts.FontColor
	if fontColor == "" {
		fontColor = "white"
	}

	fontSize := opts.FontSize
	if fontSize <= 0 {
		fontSize = 48
	}

	borderWidth := opts.BorderWidth
	if borderWidth < 0 {
		borderWidth = 0
	}

	borderColor := opts.BorderColor
	if borderColor == "" {
		borderColor = "black"
	}

	marginX := opts.MarginX
	if marginX < 0 {
		marginX = 0
	}

	marginY := opts.MarginY
	if marginY < 0 {
		marginY = 0
	}

	start := opts.StartDuration.Seconds()
	if start <= 0 {
		start = math.Min(3, math.Max(0.5, clipSeconds))
	}
	if clipSeconds > 0 {
		start = math.Min(start, clipSeconds)
	}

	end := opts.EndDuration.Seconds()
	if end <= 0 {
		end = math.Min(3, math.Max(0.5, clipSeconds))
	}
	if clipSeconds > 0 {
		end = math.Min(end, clipSeconds)
	}

	startTrigger := math.Max(0, clipSeconds-end)

	position := opts.Position
	if position == "" {
		position = models.WatermarkBottomRight
	}

	return &watermarkConfig{
		Text:                 text,
		FontFile:             opts.FontFile,
		FontColor:            fontColor,
		FontSize:             fontSize,
		BorderWidth:          borderWidth,
		BorderColor:          borderColor,
		Position:             position,
		MarginX:              marginX,
		MarginY:              marginY,
		StartDurationSeconds: start,
		EndTriggerSeconds:    startTrigger,
	}
}

type watermarkConfig struct {
	Text                 string
	FontFile             string
	FontColor            string
	FontSize             int
	BorderWidth          int
	BorderColor          string
	Position             models.WatermarkPosition
	MarginX              int
	MarginY              int
	StartDurationSeconds float64
	EndTriggerSeconds    float64
}

func positionExpressions(pos models.WatermarkPosition, marginX, marginY int) (string, string) {
	mx := strconv.Itoa(marginX)
	my := strconv.Itoa(marginY)

	switch pos {
	case models.WatermarkTopLeft:
		return mx, my
	case models.WatermarkTopRight:
		return fmt.Sprintf("w-text_w-%s", mx), my
	case models.WatermarkBottomLeft:
		return mx, fmt.Sprintf("h-text_h-%s", my)
	case models.WatermarkCenter:
		return "(w-text_w)/2", "(h-text_h)/2"
	default:
		return fmt.Sprintf("w-text_w-%s", mx), fmt.Sprintf("h-text_h-%s", my)
	}
}

func buildDrawTextArgs(wm *watermarkConfig, includeEnable bool) string {
	if wm == nil {
		return ""
	}

	xExpr, yExpr := positionExpressions(wm.Position, wm.MarginX, wm.MarginY)

	drawArgs := []string{}
	if wm.FontFile != "" {
		drawArgs = append(drawArgs, fmt.Sprintf("fontfile='%s'", escapeForFFMPEG(wm.FontFile)))
	}
	drawArgs = append(drawArgs,
		fmt.Sprintf("text='%s'", escapeDrawText(wm.Text)),
		fmt.Sprintf("fontcolor=%s", wm.FontColor),
		fmt.Sprintf("fontsize=%d", wm.FontSize),
		fmt.Sprintf("borderw=%d", wm.BorderWidth),
	)
	if wm.BorderWidth > 0 {
		drawArgs = append(drawArgs, fmt.Sprintf("bordercolor=%s", wm.BorderColor))
	}
	drawArgs = append(drawArgs, fmt.Sprintf("x=%s", xExpr), fmt.Sprintf("y=%s", yExpr))
	if includeEnable {
		drawArgs = append(drawArgs, fmt.Sprintf("enable='lte(t,%.3f)+gte(t,%.3f)'", wm.StartDurationSeconds, wm.EndTriggerSeconds))
	}

	return strings.Join(drawArgs, ":")
}

func ensureExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ".mp4"
	}
	if strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

func escapeDrawText(value string) string {
	replaced := strings.ReplaceAll(value, `\`, `\\`)
	replaced = strings.ReplaceAll(replaced, `:`, `\:`)
	replaced = strings.ReplaceAll(replaced, `'`, `\\'`)
	replaced = strings.ReplaceAll(replaced, "\n", `\\n`)
	return replaced
}

func escapeForFFMPEG(value string) string {
	replaced := filepath.ToSlash(value)
	return strings.ReplaceAll(replaced, `'`, `\\'`)
}

type tempFileReadCloser struct {
	*os.File
	path string
}

func (t *tempFileReadCloser) Close() error {
	err := t.File.Close()
	removeErr := os.Remove(t.path)
	if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		if err != nil {
			return err
		}
		return removeErr
	}
	return err
}
