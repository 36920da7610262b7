// Package makevid writes cross-dissolve frames between the images of a
// folder and assembles them into a video with ffmpeg.
package makevid

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/Zelak312/fumkit/internal/ffmpeg"
	"github.com/Zelak312/fumkit/internal/logging"
	"github.com/Zelak312/fumkit/internal/sequence"
)

var (
	ErrEncoderUnavailable = ffmpeg.ErrEncoderUnavailable
	ErrNoFrames           = errors.New("no decodable images in folder")
)

// Encoder assembles the frames of a folder into a video.
type Encoder interface {
	Encode(ctx context.Context, opts ffmpeg.EncodeOptions, totalFrames int, progress func(float64)) (string, error)
}

// Prober is implemented by encoders that can inspect their output.
type Prober interface {
	GetVideoInfo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
}

type EncoderSettings struct {
	FrameRate   float64
	Codec       string
	PixelFormat string
	// Pattern overrides the "*<ext>" glob derived from the first frame.
	Pattern   string
	Overwrite bool
}

type Options struct {
	Folder        string
	Intermediates int
	OutputVideo   string
	Upscale       bool
	UpscaleFactor int
	Encoder       EncoderSettings

	// Progress is called after every processed pair.
	Progress func(done int, total int)
	// EncodeProgress receives the encoder progress in percent.
	EncodeProgress func(percent float64)
}

func DefaultOptions(folder string) Options {
	return Options{
		Folder:        folder,
		Intermediates: 3,
		OutputVideo:   "output.mp4",
		UpscaleFactor: 2,
		Encoder: EncoderSettings{
			FrameRate:   30,
			Codec:       "libx264",
			PixelFormat: "yuv420p",
			Overwrite:   true,
		},
	}
}

type Result struct {
	// Sources are the decoded input frames in processing order.
	Sources []string
	// Written are the generated intermediate frames.
	Written []string
	// Frames are sources and intermediates in playback order.
	Frames        []string
	EncodeOptions ffmpeg.EncodeOptions
	EncoderOutput string
	VideoInfo     *ffmpeg.VideoInfo
}

func (o Options) validate() error {
	if o.Folder == "" {
		return errors.New("missing folder")
	}

	if o.Intermediates < 0 {
		return fmt.Errorf("intermediates must be >= 0, got %d", o.Intermediates)
	}

	if o.Upscale && o.UpscaleFactor < 1 {
		return fmt.Errorf("upscale factor must be >= 1, got %d", o.UpscaleFactor)
	}

	if o.OutputVideo == "" {
		return errors.New("missing output video")
	}

	return nil
}

// Run generates the intermediate frames of every adjacent pair and then
// encodes the folder once. Frames written before an encoder failure are
// left on disk.
func Run(ctx context.Context, opts Options, encoder Encoder) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	logger := logging.CreateLogger("makevid").WithField("folder", opts.Folder)

	files, err := sequence.List(opts.Folder, sequence.All)
	if err != nil {
		return nil, err
	}

	p := &pipeline{logger: logger, opts: opts}
	result := &Result{}
	defer p.close()

	// undecodable files shrink the real pair count, the last report
	// corrects the total
	total := len(files) - 1
	pairs := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		cur, ok := p.load(file)
		if !ok {
			continue
		}

		if p.prev != nil {
			written, err := p.blend(*p.prev, cur)
			result.Written = append(result.Written, written...)
			result.Frames = append(result.Frames, written...)
			if err != nil {
				cur.mat.Close()
				return result, err
			}

			pairs++
			if opts.Progress != nil && pairs < total {
				opts.Progress(pairs, total)
			}
			p.prev.mat.Close()
		}

		result.Sources = append(result.Sources, cur.path)
		result.Frames = append(result.Frames, cur.path)
		p.prev = &cur
	}

	if opts.Progress != nil && pairs > 0 {
		opts.Progress(pairs, pairs)
	}

	if len(result.Sources) == 0 {
		return result, ErrNoFrames
	}

	logger.WithField("sources", len(result.Sources)).
		WithField("written", len(result.Written)).
		Info("Intermediate frames written")

	return result, p.encode(ctx, encoder, result)
}

type frame struct {
	path string
	mat  gocv.Mat
}

type pipeline struct {
	logger *logrus.Entry
	opts   Options
	size   image.Point
	ext    string
	prev   *frame
}

func (p *pipeline) close() {
	if p.prev != nil {
		p.prev.mat.Close()
		p.prev = nil
	}
}

// load decodes one file as 8-bit BGR, applying EXIF orientation.
// Undecodable files are skipped.
func (p *pipeline) load(path string) (frame, bool) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		p.logger.WithField("file", path).Debug("Skipping undecodable file")
		return frame{}, false
	}

	if p.opts.Upscale && p.opts.UpscaleFactor > 1 {
		up, err := upscale(mat, p.opts.UpscaleFactor)
		mat.Close()
		if err != nil {
			p.logger.WithField("file", path).Warn("Failed to upscale: ", err)
			return frame{}, false
		}
		mat = up
	}

	if p.size == (image.Point{}) {
		p.size = image.Pt(mat.Cols(), mat.Rows())
		_, p.ext = sequence.SplitName(path)
	}

	if mat.Cols() != p.size.X || mat.Rows() != p.size.Y {
		resized := gocv.NewMat()
		if err := gocv.Resize(mat, &resized, p.size, 0, 0, gocv.InterpolationLinear); err != nil {
			resized.Close()
			mat.Close()
			p.logger.WithField("file", path).Warn("Failed to resize: ", err)
			return frame{}, false
		}
		mat.Close()
		mat = resized
	}

	return frame{path: path, mat: mat}, true
}

func upscale(src gocv.Mat, factor int) (gocv.Mat, error) {
	dst := gocv.NewMat()
	f := float64(factor)
	if err := gocv.Resize(src, &dst, image.Point{}, f, f, gocv.InterpolationLanczos4); err != nil {
		dst.Close()
		return gocv.Mat{}, err
	}
	return dst, nil
}

// IntermediateName is the file name of the j-th frame after path.
func IntermediateName(path string, j int) string {
	base, ext := sequence.SplitName(path)
	return filepath.Join(filepath.Dir(path), fmt.Sprintf("%s_%d%s", base, j, ext))
}

// InGlobOrder reports whether the frames with extension ext keep their
// playback order once sorted by name, which is how ffmpeg expands a glob.
// It fails when a source name is a prefix of a later one (img1, img10).
func InGlobOrder(frames []string, ext string) bool {
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		if strings.EqualFold(filepath.Ext(f), ext) {
			names = append(names, filepath.Base(f))
		}
	}
	return sort.StringsAreSorted(names)
}

// Alpha is the weight of the second image in the j-th of k frames.
func Alpha(j, k int) float64 {
	return float64(j) / float64(k+1)
}

func (p *pipeline) blend(a frame, b frame) ([]string, error) {
	k := p.opts.Intermediates
	written := make([]string, 0, k)
	for j := 1; j <= k; j++ {
		alpha := Alpha(j, k)
		out := gocv.NewMat()
		if err := gocv.AddWeighted(a.mat, 1-alpha, b.mat, alpha, 0, &out); err != nil {
			out.Close()
			return written, fmt.Errorf("blending %s and %s: %w", a.path, b.path, err)
		}
		if out.Empty() {
			out.Close()
			return written, fmt.Errorf("blending %s and %s gave an empty frame", a.path, b.path)
		}

		name := IntermediateName(a.path, j)
		ok := gocv.IMWrite(name, out)
		out.Close()
		if !ok {
			return written, fmt.Errorf("writing %s failed", name)
		}

		p.logger.WithField("file", name).WithField("alpha", alpha).Debug("Wrote intermediate")
		written = append(written, name)
	}

	return written, nil
}

func (p *pipeline) encode(ctx context.Context, encoder Encoder, result *Result) error {
	settings := p.opts.Encoder
	pattern := settings.Pattern
	if pattern == "" {
		pattern = "*" + p.ext
		if !InGlobOrder(result.Frames, p.ext) {
			p.logger.WithField("pattern", pattern).
				Warn("File names do not sort in playback order, the video will interleave frames; rename the sources with zero padded numbers")
		}
	}

	opts := ffmpeg.EncodeOptions{
		Folder:      p.opts.Folder,
		Pattern:     pattern,
		FrameRate:   settings.FrameRate,
		Codec:       settings.Codec,
		PixelFormat: settings.PixelFormat,
		Overwrite:   settings.Overwrite,
		Output:      p.opts.OutputVideo,
	}
	result.EncodeOptions = opts

	total := len(result.Sources) + len(result.Written)
	output, err := encoder.Encode(ctx, opts, total, p.opts.EncodeProgress)
	result.EncoderOutput = output
	if err != nil {
		p.logger.WithField("output", output).Error("Encoder failed: ", err)
		return fmt.Errorf("encoding %s: %w", filepath.Base(p.opts.OutputVideo), err)
	}

	if prober, ok := encoder.(Prober); ok {
		info, err := prober.GetVideoInfo(ctx, p.opts.OutputVideo)
		if err != nil {
			p.logger.Warn("Failed to probe output: ", err)
			return nil
		}
		result.VideoInfo = info
		p.logger.WithFields(logging.StructFields(info)).Info("Video written")
	}

	return nil
}
