package media

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// DefaultFrameRate is used when a container doesn't report one.
const DefaultFrameRate = 25.0

// ErrSourceClosed is returned by a video source that has been released.
var ErrSourceClosed = errors.New("media: video source is closed")

// videoSource decodes frames by piping the file through an external
// ffmpeg process as raw RGBA. Rewind restarts the process, which is how
// looped signage clips start over.
//
// The render loop and a library release can touch the same source at
// once; the mutex keeps the decoder process single-owner and the closed
// flag makes Close terminal, so a released source can never respawn an
// ffmpeg that nothing would reap.
type videoSource struct {
	path   string
	width  int
	height int
	rate   float64

	mu     sync.Mutex
	closed bool
	cmd    *exec.Cmd
	out    io.ReadCloser
	buf    []byte
}

// OpenVideo probes a cached clip and starts streaming its frames.
func OpenVideo(path string) (FrameSource, error) {
	width, height, rate, err := probe(path)
	if err != nil {
		return nil, err
	}

	v := &videoSource{
		path:   path,
		width:  width,
		height: height,
		rate:   rate,
		buf:    make([]byte, width*height*4),
	}
	if err := v.start(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *videoSource) start() error {
	cmd := exec.Command("ffmpeg",
		"-v", "error",
		"-i", v.path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	v.cmd = cmd
	v.out = out
	return nil
}

func (v *videoSource) NextFrame() (image.Image, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil, ErrSourceClosed
	}
	if _, err := io.ReadFull(v.out, v.buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	frame := image.NewRGBA(image.Rect(0, 0, v.width, v.height))
	copy(frame.Pix, v.buf)
	return frame, nil
}

func (v *videoSource) Rewind() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrSourceClosed
	}
	v.stopLocked()
	return v.start()
}

func (v *videoSource) Rate() float64 {
	return v.rate
}

func (v *videoSource) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	v.stopLocked()
	return nil
}

func (v *videoSource) stopLocked() {
	if v.out != nil {
		v.out.Close()
	}
	if v.cmd != nil && v.cmd.Process != nil {
		v.cmd.Process.Kill()
		v.cmd.Wait()
	}
	v.cmd = nil
	v.out = nil
}

// probe asks ffprobe for the clip's dimensions and native frame rate.
func probe(path string) (int, int, float64, error) {
	out, err := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-of", "csv=p=0",
		path,
	).Output()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("media: probing %s: %w", path, err)
	}

	fields := strings.Split(strings.TrimSpace(string(out)), ",")
	if len(fields) < 2 {
		return 0, 0, 0, fmt.Errorf("media: unexpected probe output for %s: %q", path, out)
	}
	width, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, 0, err
	}
	height, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, 0, err
	}
	if width <= 0 || height <= 0 {
		return 0, 0, 0, fmt.Errorf("media: %s reports %dx%d", path, width, height)
	}

	rate := DefaultFrameRate
	if len(fields) >= 3 {
		if parsed, ok := parseRate(fields[2]); ok {
			rate = parsed
		}
	}
	return width, height, rate, nil
}

func parseRate(s string) (float64, bool) {
	num, den, found := strings.Cut(s, "/")
	if !found {
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil && f > 0
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, false
	}
	return n / d, n > 0
}
