package qart

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LocalStore implements Store on a directory. Metadata is kept in a sidecar
// "<file>.meta.json".
type LocalStore struct {
	root string
}

const metaSuffix = ".meta.json"

type localMeta struct {
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.HasSuffix(key, metaSuffix) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, filepath.FromSlash(clean[1:])), nil
}

func (s *LocalStore) EnsureBucket(context.Context) error {
	return os.MkdirAll(s.root, 0o755)
}

func (s *LocalStore) Upload(_ context.Context, key string, r io.Reader, _ int64, contentType string, metadata map[string]string) (*Artifact, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return nil, err
	}

	meta, err := json.Marshal(localMeta{ContentType: contentType, Metadata: metadata})
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(p+metaSuffix, meta, 0o644); err != nil {
		return nil, err
	}

	return &Artifact{
		Key:          key,
		Size:         n,
		ContentType:  contentType,
		LastModified: time.Now(),
		Metadata:     metadata,
	}, nil
}

func (s *LocalStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// URL returns a file:// URL; expiry is ignored.
func (s *LocalStore) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String(), nil
}

func (s *LocalStore) List(_ context.Context, prefix string) ([]*Artifact, error) {
	var out []*Artifact
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, metaSuffix) || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		a := &Artifact{Key: key, Size: info.Size(), LastModified: info.ModTime()}
		if raw, err := os.ReadFile(p + metaSuffix); err == nil {
			var m localMeta
			if json.Unmarshal(raw, &m) == nil {
				a.ContentType, a.Metadata = m.ContentType, m.Metadata
			}
		}
		if a.ContentType == "" {
			a.ContentType = mime.TypeByExtension(filepath.Ext(p))
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Remove(p + metaSuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) DeletePrefix(ctx context.Context, prefix string) error {
	items, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	var errs []error
	for _, a := range items {
		errs = append(errs, s.Delete(ctx, a.Key))
	}
	return errors.Join(errs...)
}

var _ Store = (*LocalStore)(nil)
