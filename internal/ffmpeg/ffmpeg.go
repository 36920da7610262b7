// Package ffmpeg runs the external ffmpeg and ffprobe binaries.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Zelak312/fumkit/internal/logging"
)

// ErrEncoderUnavailable is returned when the ffmpeg binary cannot be found.
var ErrEncoderUnavailable = errors.New("video encoder is not available")

type FFProbeOutput struct {
	Streams []struct {
		Width          int    `json:"width"`
		Height         int    `json:"height"`
		FrameRate      string `json:"r_frame_rate"`
		FrameCount     string `json:"nb_frames"`
		FrameCountRead string `json:"nb_read_frames"`
	} `json:"streams"`
}

type VideoInfo struct {
	InputPath  string
	Width      int
	Height     int
	FrameRate  float64
	FrameCount int64
}

// EncodeOptions describes one image sequence to video encode.
type EncodeOptions struct {
	Folder string
	// Pattern is a glob relative to Folder, e.g. "*.png".
	Pattern     string
	FrameRate   float64
	Codec       string
	PixelFormat string
	Overwrite   bool
	Output      string
}

// EncodeArgs builds the ffmpeg argument list for opts.
func EncodeArgs(opts EncodeOptions) []string {
	args := make([]string, 0, 16)
	if opts.Overwrite {
		args = append(args, "-y")
	}

	args = append(args,
		"-framerate", strconv.FormatFloat(opts.FrameRate, 'f', -1, 64),
		"-pattern_type", "glob",
		"-i", filepath.ToSlash(filepath.Join(opts.Folder, opts.Pattern)),
		"-c:v", opts.Codec,
		"-pix_fmt", opts.PixelFormat,
		"-progress", "pipe:2",
		opts.Output,
	)

	return args
}

type FFmpeg struct {
	logger        *logrus.Entry
	ffmpegBinary  string
	ffprobeBinary string
}

func New(ffmpegBinary string, ffprobeBinary string) *FFmpeg {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}

	return &FFmpeg{
		logger:        logging.CreateLogger("ffmpeg"),
		ffmpegBinary:  ffmpegBinary,
		ffprobeBinary: ffprobeBinary,
	}
}

// Encode runs ffmpeg over the sequence and returns its combined output.
// progress, when not nil, receives a 0-100 percentage computed against
// totalFrames.
func (f *FFmpeg) Encode(ctx context.Context, opts EncodeOptions, totalFrames int, progress func(float64)) (string, error) {
	cmd := NewCommandContext(ctx, f.ffmpegBinary, EncodeArgs(opts)...)
	f.logger.WithField("command", cmd.String()).Debug("Running encoder")

	var pw *io.PipeWriter
	done := make(chan struct{})
	if progress != nil && totalFrames > 0 {
		var pr *io.PipeReader
		pr, pw = io.Pipe()
		cmd.TeeStderr(pw)
		go func() {
			defer close(done)
			parseProgressFFmpeg(pr, int64(totalFrames), progress)
		}()
	} else {
		close(done)
	}

	output, err := cmd.CombinedOutput()
	if pw != nil {
		pw.Close()
	}
	<-done

	if err != nil {
		if isNotFound(err) {
			return output, fmt.Errorf("%w: %s: %v", ErrEncoderUnavailable, f.ffmpegBinary, err)
		}
		return output, fmt.Errorf("running %s: %w", f.ffmpegBinary, err)
	}

	return output, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist)
}

// ParseFrameProgress extracts the frame number of a "frame=N" line, as
// written both by -progress and by the regular stats line.
func ParseFrameProgress(line string) (int64, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "frame=") {
		return 0, false
	}

	fields := strings.Fields(strings.TrimPrefix(line, "frame="))
	if len(fields) == 0 {
		return 0, false
	}

	frame, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, false
	}

	return frame, true
}

// scanLinesOrCR splits on \n and on the \r ffmpeg uses to redraw stats.
func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}

func parseProgressFFmpeg(r io.Reader, totalFrames int64, progress func(float64)) {
	scanner := bufio.NewScanner(r)
	scanner.Split(scanLinesOrCR)
	last := int64(-1)
	for scanner.Scan() {
		frame, ok := ParseFrameProgress(scanner.Text())
		if !ok || frame == last {
			continue
		}
		last = frame

		percent := float64(frame) / float64(totalFrames) * 100
		if percent > 100 {
			percent = 100
		}
		progress(percent)
	}

	// unblock the writer if the scanner stopped early
	io.Copy(io.Discard, r)
}

func parseVideoInfoFFProbeOutput(output []byte) (*FFProbeOutput, error) {
	var probeOutput FFProbeOutput
	if err := json.Unmarshal(output, &probeOutput); err != nil {
		return nil, fmt.Errorf("parsing probe output: %v", err)
	}

	if len(probeOutput.Streams) == 0 {
		return nil, fmt.Errorf("no video streams found")
	}

	return &probeOutput, nil
}

func parseFrameRate(rate string) (float64, error) {
	parts := strings.Split(rate, "/")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid framerate format")
	}

	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, fmt.Errorf("parsing framerate numerator: %v", err)
	}

	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, fmt.Errorf("parsing framerate denominator: %v", err)
	}

	if den == 0 {
		return 0, fmt.Errorf("invalid framerate denominator")
	}

	return num / den, nil
}

func (f *FFmpeg) probe(ctx context.Context, args ...string) (*FFProbeOutput, error) {
	cmd := exec.CommandContext(ctx, f.ffprobeBinary, args...)
	output, err := cmd.Output()
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrEncoderUnavailable, f.ffprobeBinary)
		}
		return nil, err
	}

	return parseVideoInfoFFProbeOutput(output)
}

// GetVideoInfo probes the first video stream of inputPath. When the
// container does not store a frame count the frames are counted.
func (f *FFmpeg) GetVideoInfo(ctx context.Context, inputPath string) (*VideoInfo, error) {
	ffprobeOutput, err := f.probe(ctx,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames",
		"-of", "json",
		inputPath)
	if err != nil {
		return nil, err
	}

	mainStream := ffprobeOutput.Streams[0]
	frameRate, err := parseFrameRate(mainStream.FrameRate)
	if err != nil {
		return nil, err
	}

	var videoInfo VideoInfo
	videoInfo.InputPath = inputPath
	videoInfo.Width = mainStream.Width
	videoInfo.Height = mainStream.Height
	videoInfo.FrameRate = frameRate

	if mainStream.FrameCount != "" && mainStream.FrameCount != "N/A" {
		// container already contains frame count, no need to count
		frameCount, err := strconv.ParseInt(mainStream.FrameCount, 10, 64)
		if err != nil {
			return nil, err
		}

		videoInfo.FrameCount = frameCount
		return &videoInfo, nil
	}

	ffprobeCountOutput, err := f.probe(ctx,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_frames",
		"-show_entries", "stream=nb_read_frames",
		"-of", "json",
		inputPath)
	if err != nil {
		return nil, err
	}

	frameCount, err := strconv.ParseInt(ffprobeCountOutput.Streams[0].FrameCountRead, 10, 64)
	if err != nil {
		return nil, err
	}

	videoInfo.FrameCount = frameCount
	return &videoInfo, nil
}
