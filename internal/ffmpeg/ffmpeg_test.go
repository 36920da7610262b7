package ffmpeg

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeArgs(t *testing.T) {
	args := EncodeArgs(EncodeOptions{
		Folder:      "frames",
		Pattern:     "*.png",
		FrameRate:   30,
		Codec:       "libx264",
		PixelFormat: "yuv420p",
		Overwrite:   true,
		Output:      "output.mp4",
	})

	assert.Equal(t, []string{
		"-y",
		"-framerate", "30",
		"-pattern_type", "glob",
		"-i", "frames/*.png",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-progress", "pipe:2",
		"output.mp4",
	}, args)
}

func TestEncodeArgsNoOverwriteFractionalRate(t *testing.T) {
	args := EncodeArgs(EncodeOptions{Folder: "f", Pattern: "*.jpg", FrameRate: 23.976, Codec: "c", PixelFormat: "p", Output: "o.mp4"})
	assert.Equal(t, "-framerate", args[0])
	assert.Equal(t, "23.976", args[1])
	assert.NotContains(t, args, "-y")
}

func TestParseFrameProgress(t *testing.T) {
	tests := []struct {
		line string
		want int64
		ok   bool
	}{
		{"frame=42", 42, true},
		{"frame=  120 fps= 30 q=28.0 size=256kB", 120, true},
		{"  frame=7  ", 7, true},
		{"fps=30.00", 0, false},
		{"frame=", 0, false},
		{"frame=N/A", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseFrameProgress(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestParseProgressFFmpeg(t *testing.T) {
	stream := "Input #0, image2\nframe=  5 fps=0.0\rframe=10 fps=10\nprogress=continue\nframe=10\nframe=25\nprogress=end\n"

	var got []float64
	parseProgressFFmpeg(strings.NewReader(stream), 20, func(p float64) { got = append(got, p) })
	assert.Equal(t, []float64{25, 50, 100}, got)
}

func TestParseVideoInfoFFProbeOutput(t *testing.T) {
	out, err := parseVideoInfoFFProbeOutput([]byte(`{"streams":[{"width":640,"height":480,"r_frame_rate":"30/1","nb_frames":"90"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 640, out.Streams[0].Width)
	assert.Equal(t, "90", out.Streams[0].FrameCount)

	_, err = parseVideoInfoFFProbeOutput([]byte(`{"streams":[]}`))
	assert.Error(t, err)

	_, err = parseVideoInfoFFProbeOutput([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseFrameRate(t *testing.T) {
	rate, err := parseFrameRate("30000/1001")
	require.NoError(t, err)
	assert.InDelta(t, 29.97, rate, 0.01)

	for _, bad := range []string{"30", "a/1", "1/b", "30/0"} {
		_, err := parseFrameRate(bad)
		assert.Error(t, err, bad)
	}
}

func TestEncodeMissingBinary(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-ffmpeg")
	f := New(missing, "")

	_, err := f.Encode(context.Background(), EncodeOptions{Folder: t.TempDir(), Pattern: "*.png", FrameRate: 30, Codec: "libx264", PixelFormat: "yuv420p", Output: "out.mp4"}, 10, func(float64) {})
	assert.ErrorIs(t, err, ErrEncoderUnavailable)
}

func TestProbeMissingBinary(t *testing.T) {
	f := New("", filepath.Join(t.TempDir(), "no-such-ffprobe"))
	_, err := f.GetVideoInfo(context.Background(), "video.mp4")
	assert.ErrorIs(t, err, ErrEncoderUnavailable)
}
