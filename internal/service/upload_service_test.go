package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
)

type memoryPhotoStorage struct {
	files map[string][]byte
	err   error
}

func (m *memoryPhotoStorage) Save(filename string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[filename] = data
	return filename, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newUploadServiceForTest(store *memoryPhotoStorage, cfg UploadConfig) *UploadService {
	svc := NewUploadService(store, nil, cfg)
	svc.newID = func() string { return "photo-1" }
	return svc
}

func TestStoreIDPhotoNormalizesToJPEG(t *testing.T) {
	store := &memoryPhotoStorage{}
	svc := newUploadServiceForTest(store, UploadConfig{})

	res, err := svc.StoreIDPhoto(context.Background(), IDSideFront, bytes.NewReader(pngBytes(t, 40, 20)))
	require.NoError(t, err)
	assert.Equal(t, "frente/photo-1.jpg", res.Path)
	assert.Equal(t, "image/jpeg", res.ContentType)
	assert.Equal(t, 40, res.Width)

	stored := store.files["frente/photo-1.jpg"]
	require.NotEmpty(t, stored)
	_, err = jpeg.Decode(bytes.NewReader(stored))
	assert.NoError(t, err)
}

func TestStoreIDPhotoDownscalesLargeImages(t *testing.T) {
	store := &memoryPhotoStorage{}
	svc := newUploadServiceForTest(store, UploadConfig{MaxDimension: 100})

	res, err := svc.StoreIDPhoto(context.Background(), IDSideBack, bytes.NewReader(pngBytes(t, 400, 200)))
	require.NoError(t, err)
	assert.Equal(t, "reverso/photo-1.jpg", res.Path)
	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 50, res.Height)
}

func TestStoreIDPhotoRejectsInvalidInput(t *testing.T) {
	cases := map[string]struct {
		side IDSide
		body []byte
		cfg  UploadConfig
	}{
		"bad side":  {side: "lateral", body: []byte("x")},
		"empty":     {side: IDSideFront, body: nil},
		"too large": {side: IDSideFront, body: bytes.Repeat([]byte{0xff}, 64), cfg: UploadConfig{MaxFileSize: 32}},
		"not image": {side: IDSideFront, body: []byte("plain text document")},
		"png only":  {side: IDSideFront, body: []byte("GIF89a......"), cfg: UploadConfig{AllowedMIMEs: []string{"image/png"}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			store := &memoryPhotoStorage{}
			svc := newUploadServiceForTest(store, tc.cfg)
			_, err := svc.StoreIDPhoto(context.Background(), tc.side, bytes.NewReader(tc.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
			assert.Empty(t, store.files)
		})
	}
}

func TestStoreIDPhotoStorageFailure(t *testing.T) {
	svc := newUploadServiceForTest(&memoryPhotoStorage{err: errors.New("disk full")}, UploadConfig{})
	_, err := svc.StoreIDPhoto(context.Background(), IDSideFront, bytes.NewReader(pngBytes(t, 10, 10)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestParseIDSide(t *testing.T) {
	side, err := ParseIDSide(" Front ")
	require.NoError(t, err)
	assert.Equal(t, IDSideFront, side)

	side, err = ParseIDSide("reverso")
	require.NoError(t, err)
	assert.Equal(t, IDSideBack, side)

	_, err = ParseIDSide(strings.Repeat("x", 3))
	assert.Error(t, err)
}
