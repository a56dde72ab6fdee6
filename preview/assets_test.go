package preview

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	valid := []string{"a.jpg", "shot-1-abc.png", "my_photo-1.webp"}
	for _, name := range valid {
		assert.NoError(t, ValidateName(name), name)
	}
	invalid := []string{"", "../secret", "..", "a/../b.png", "dir/a.png", `dir\a.png`, "/etc/passwd", ".hidden", "a\x00.png"}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateName(name), ErrInvalidAssetName, name)
	}
}

func TestUniqueName(t *testing.T) {
	a := UniqueName("https://cdn.test/img/Hello World!.PNG", ".JPG")
	b := UniqueName("https://cdn.test/img/Hello World!.PNG", ".JPG")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "hello-world-"), a)
	assert.True(t, strings.HasSuffix(a, ".jpg"), a)
	assert.NoError(t, ValidateName(a))

	assert.True(t, strings.HasPrefix(UniqueName("../..", ".png"), "preview-"))
	assert.True(t, strings.HasPrefix(UniqueName("", ".png"), "preview-"))
}

func TestAssetStoreSave(t *testing.T) {
	assets := newTestAssets(t)

	name, err := assets.Save("a.jpg", strings.NewReader("one"))
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", name)
	assert.FileExists(t, filepath.Join(assets.Dir(), "a.jpg"))

	_, err = assets.Save("a.jpg", strings.NewReader("two"))
	assert.Error(t, err, "existing asset must not be overwritten")
	got, err := os.ReadFile(filepath.Join(assets.Dir(), "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	_, err = assets.Save("../escape.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidAssetName)
	_, statErr := os.Stat(filepath.Join(filepath.Dir(assets.Dir()), "escape.jpg"))
	assert.True(t, os.IsNotExist(statErr))

	assert.Equal(t, []string{"a.jpg"}, assetFiles(t, assets), "no temp files left behind")

	require.NoError(t, assets.Remove("a.jpg"))
	require.NoError(t, assets.Remove("a.jpg"))
	assert.NoFileExists(t, filepath.Join(assets.Dir(), "a.jpg"))
}

func uploadHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("picture", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(10<<20))
	_, fh, err := req.FormFile("picture")
	require.NoError(t, err)
	return fh
}

func TestAssetStoreSaveUpload(t *testing.T) {
	assets := newTestAssets(t)
	pngBytes := testPNG(t, 10, 10)

	name, err := assets.SaveUpload(uploadHeader(t, "Avatar.png", pngBytes))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "avatar-"), name)
	assert.True(t, strings.HasSuffix(name, ".png"), name)
	stored, err := os.ReadFile(filepath.Join(assets.Dir(), name))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)

	_, err = assets.SaveUpload(uploadHeader(t, "script.sh", []byte("#!/bin/sh")))
	assert.ErrorIs(t, err, ErrUnsupportedUpload)

	_, err = assets.SaveUpload(uploadHeader(t, "fake.png", []byte("<html>not an image</html>")))
	assert.ErrorIs(t, err, ErrUnsupportedUpload)

	big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, 2<<20)...)
	_, err = assets.SaveUpload(uploadHeader(t, "big.png", big))
	assert.ErrorIs(t, err, ErrUploadTooLarge)

	assert.Len(t, assetFiles(t, assets), 1)
}
