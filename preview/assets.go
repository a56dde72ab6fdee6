package preview

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const maxStemLen = 40

var uploadExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// AssetStore owns the directory served under /assets. Files are only ever
// created under fresh names, so an existing asset is never overwritten.
type AssetStore struct {
	dir            string
	maxUploadBytes int64
}

// NewAssetStore creates dir if needed.
func NewAssetStore(dir string, maxUploadMB int) (*AssetStore, error) {
	if dir == "" {
		return nil, errors.New("assets dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create assets dir: %w", err)
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 30
	}
	return &AssetStore{dir: dir, maxUploadBytes: int64(maxUploadMB) << 20}, nil
}

// Dir returns the directory backing the store.
func (a *AssetStore) Dir() string { return a.dir }

// ValidateName accepts only a bare, visible filename.
func ValidateName(name string) error {
	switch {
	case name == "",
		strings.Contains(name, ".."),
		strings.ContainsAny(name, "/\\\x00"),
		strings.HasPrefix(name, "."),
		filepath.Base(name) != name:
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}

// UniqueName derives "<stem>-<uuid><ext>" from a source name such as a remote basename.
func UniqueName(source, ext string) string {
	return sanitizeStem(source) + "-" + uuid.NewString() + strings.ToLower(ext)
}

// Path returns the absolute location of name.
func (a *AssetStore) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(a.dir, name), nil
}

// Save writes r under name. The content is written to a temp file first and
// then linked into place, which fails if name already exists.
func (a *AssetStore) Save(name string, r io.Reader) (string, error) {
	final, err := a.Path(name)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(a.dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp asset: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close asset: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod asset: %w", err)
	}
	if err := os.Link(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("publish asset %s: %w", name, err)
	}
	return name, nil
}

// Remove deletes name; a missing file is not an error.
func (a *AssetStore) Remove(name string) error {
	p, err := a.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SaveUpload stores a caller-supplied image from a multipart form.
func (a *AssetStore) SaveUpload(fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !uploadExtensions[ext] {
		return "", fmt.Errorf("%w: extension %q", ErrUnsupportedUpload, ext)
	}
	if fh.Size > a.maxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrUploadTooLarge, fh.Size)
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if ct := http.DetectContentType(head); !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("%w: content type %s", ErrUnsupportedUpload, ct)
	}

	body := io.MultiReader(bytes.NewReader(head), io.LimitReader(f, a.maxUploadBytes-int64(n)))
	stem := strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename))
	return a.Save(UniqueName(stem, ext), body)
}

// sanitizeStem keeps lowercase letters, digits, '-' and '_' from source's
// basename without extension.
func sanitizeStem(source string) string {
	base := source
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
		if b.Len() >= maxStemLen {
			break
		}
	}
	stem := strings.Trim(b.String(), "-")
	if stem == "" {
		return "preview"
	}
	return stem
}
