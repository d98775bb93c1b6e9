package display

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"unsafe"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/sys/unix"

	"github.com/jaison-mx/cartelera/layout"
)

const (
	fbioGetVScreenInfo = 0x4600
	fbioGetFScreenInfo = 0x4602
)

type fbBitfield struct {
	Offset   uint32
	Length   uint32
	MSBRight uint32
}

type fbVarScreenInfo struct {
	XRes         uint32
	YRes         uint32
	XResVirtual  uint32
	YResVirtual  uint32
	XOffset      uint32
	YOffset      uint32
	BitsPerPixel uint32
	Grayscale    uint32
	Red          fbBitfield
	Green        fbBitfield
	Blue         fbBitfield
	Transp       fbBitfield
	Nonstd       uint32
	Activate     uint32
	Height       uint32
	Width        uint32
	AccelFlags   uint32
	PixClock     uint32
	LeftMargin   uint32
	RightMargin  uint32
	UpperMargin  uint32
	LowerMargin  uint32
	HSyncLen     uint32
	VSyncLen     uint32
	Sync         uint32
	VMode        uint32
	Rotate       uint32
	Colorspace   uint32
	Reserved     [4]uint32
}

type fbFixScreenInfo struct {
	ID           [16]byte
	SMemStart    uintptr
	SMemLen      uint32
	Type         uint32
	TypeAux      uint32
	Visual       uint32
	XPanStep     uint16
	YPanStep     uint16
	YWrapStep    uint16
	LineLength   uint32
	MMIOStart    uintptr
	MMIOLen      uint32
	Accel        uint32
	Capabilities uint16
	Reserved     [2]uint16
}

// Framebuffer renders straight to the Linux console framebuffer, the
// display the kiosk units actually have. Only 32bpp modes are handled.
type Framebuffer struct {
	file       *os.File
	mem        []byte
	back       *image.RGBA
	width      int
	height     int
	lineLength int
}

func OpenFramebuffer(device string) (*Framebuffer, error) {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("display: opening %s: %w", device, err)
	}

	var vinfo fbVarScreenInfo
	if err := ioctl(f.Fd(), fbioGetVScreenInfo, unsafe.Pointer(&vinfo)); err != nil {
		f.Close()
		return nil, fmt.Errorf("display: reading screen info: %w", err)
	}
	var finfo fbFixScreenInfo
	if err := ioctl(f.Fd(), fbioGetFScreenInfo, unsafe.Pointer(&finfo)); err != nil {
		f.Close()
		return nil, fmt.Errorf("display: reading fixed screen info: %w", err)
	}

	if vinfo.BitsPerPixel != 32 {
		f.Close()
		return nil, fmt.Errorf("display: %s runs at %dbpp, need 32bpp", device, vinfo.BitsPerPixel)
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, int(finfo.SMemLen), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("display: mapping %s: %w", device, err)
	}

	w, h := int(vinfo.XRes), int(vinfo.YRes)
	return &Framebuffer{
		file:       f,
		mem:        mem,
		back:       image.NewRGBA(image.Rect(0, 0, w, h)),
		width:      w,
		height:     h,
		lineLength: int(finfo.LineLength),
	}, nil
}

func ioctl(fd uintptr, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (s *Framebuffer) Size() (int, int) {
	return s.width, s.height
}

func (s *Framebuffer) Clear() {
	draw.Draw(s.back, s.back.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
}

func (s *Framebuffer) Blit(img image.Image, p layout.Placement) {
	rect := image.Rect(p.X, p.Y, p.X+p.W, p.Y+p.H)
	xdraw.ApproxBiLinear.Scale(s.back, rect, img, img.Bounds(), xdraw.Over, nil)
}

// Present copies the composed frame into the mapped framebuffer,
// swapping to the device's BGRA byte order.
func (s *Framebuffer) Present() error {
	for y := 0; y < s.height; y++ {
		src := s.back.Pix[y*s.back.Stride : y*s.back.Stride+s.width*4]
		dst := s.mem[y*s.lineLength : y*s.lineLength+s.width*4]
		for x := 0; x < s.width*4; x += 4 {
			dst[x] = src[x+2]
			dst[x+1] = src[x+1]
			dst[x+2] = src[x]
			dst[x+3] = src[x+3]
		}
	}
	return nil
}

// PollEvents always returns nothing: the console framebuffer has no
// input pump. Kiosk shutdown arrives via signals instead.
func (s *Framebuffer) PollEvents() []Event {
	return nil
}

func (s *Framebuffer) Close() error {
	unix.Munmap(s.mem)
	return s.file.Close()
}
