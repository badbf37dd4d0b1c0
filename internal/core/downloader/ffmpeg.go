package downloader

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"daytrip/internal/shared"
)

// CheckFFmpeg checks if ffmpeg is installed and available in the system's PATH.
func CheckFFmpeg() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// FFmpegEncoder pipes raw audio through ffmpeg into the requested container.
type FFmpegEncoder struct{}

// Encode reads audio from r and writes an encoded file at dest. dest carries
// a temporary name, so the muxer is passed explicitly instead of being
// derived from the extension. Cancellation kills the ffmpeg process.
func (FFmpegEncoder) Encode(ctx context.Context, audio io.Reader, format shared.OutputFormat, dest string) error {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", "pipe:0", "-vn"}

	switch format {
	case shared.FormatOpus:
		args = append(args, "-c:a", "libopus", "-b:a", "160k", "-f", "opus")
	case shared.FormatMp3:
		args = append(args, "-c:a", "libmp3lame", "-b:a", "320k", "-f", "mp3")
	case shared.FormatOgg:
		// For ogg, -q:a (quality) is preferred over a fixed bitrate.
		args = append(args, "-c:a", "libvorbis", "-q:a", "8", "-f", "ogg")
	case shared.FormatWav:
		args = append(args, "-f", "wav")
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	args = append(args, dest)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdin = audio

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to encode track: %w\nffmpeg output: %s", err, string(output))
	}
	return nil
}
