package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHTTPLoaderResizes(t *testing.T) {
	data := pngBytes(t, 40, 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	loader := NewHTTPLoader(0)
	img, err := loader.Load(context.Background(), srv.URL+"/tower.png")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/tower.png", img.Identity)
	assert.Equal(t, image.Rect(0, 0, DefaultSize, DefaultSize), img.Pixels.Bounds())

	encoded, err := img.Base64JPEG()
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	decoded, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, decoded.Bounds().Dx())
}

func TestHTTPLoaderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	loader := NewHTTPLoader(50 * time.Millisecond)
	_, err := loader.Load(context.Background(), srv.URL+"/slow.jpg")
	assert.Error(t, err)
}

func TestHTTPLoaderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("not an image"))
	}))
	defer srv.Close()

	loader := NewHTTPLoader(time.Second)

	_, err := loader.Load(context.Background(), srv.URL+"/missing.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = loader.Load(context.Background(), srv.URL+"/garbage.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "jpg", url: "https://upload.wikimedia.org/tower.jpg"},
		{name: "jpeg upper case", url: "https://example.com/a/B.JPEG"},
		{name: "png with query", url: "http://example.com/x.png?size=large"},
		{name: "webp", url: "https://example.com/x.webp"},
		{name: "empty", url: "", wantErr: true},
		{name: "no extension", url: "https://example.com/image", wantErr: true},
		{name: "gif", url: "https://example.com/x.gif", wantErr: true},
		{name: "extension only in query", url: "https://example.com/view?file=x.jpg", wantErr: true},
		{name: "relative", url: "/local/x.jpg", wantErr: true},
		{name: "ftp", url: "ftp://example.com/x.jpg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidURL))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
