package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"time"

	// decoders
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultSize    = 384
	DefaultTimeout = 5 * time.Second
	maxImageBytes  = 20 << 20
	jpegQuality    = 90
)

// Image is a decoded, resized picture along with the identity it was loaded from.
type Image struct {
	Identity string
	Pixels   image.Image
}

// Base64JPEG is the wire form the VLM backends accept.
func (i *Image) Base64JPEG() (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, i.Pixels, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Loader fetches an image by identity.
type Loader interface {
	Load(ctx context.Context, identity string) (*Image, error)
}

// HTTPLoader downloads, decodes and resizes images to a fixed square.
type HTTPLoader struct {
	Client  *http.Client
	Timeout time.Duration
	Size    int
}

var _ Loader = &HTTPLoader{}

func NewHTTPLoader(timeout time.Duration) *HTTPLoader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPLoader{
		Client:  &http.Client{},
		Timeout: timeout,
		Size:    DefaultSize,
	}
}

func (l *HTTPLoader) Load(ctx context.Context, identity string) (*Image, error) {
	ctx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, identity, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	return &Image{
		Identity: identity,
		Pixels:   Resize(img, l.Size, l.Size),
	}, nil
}

// Resize stretches src to exactly w x h, ignoring aspect ratio.
func Resize(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// UserAgent is a desktop browser string; some hosts refuse default Go clients.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
