package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"ridersettle/internal/model"
)

// FileStore 基于本地目录的文件存储；路径使用 "/" 分隔并限制在根目录内
type FileStore struct {
	root string
}

// NewFileStore 创建文件存储（根目录不存在时创建）
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &FileStore{root: root}, nil
}

// resolve 存储路径 → 本地路径；拒绝越出根目录的路径
func (s *FileStore) resolve(p string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	if clean == "/" {
		return "", fmt.Errorf("empty blob path %q", p)
	}
	rel := strings.TrimPrefix(clean, "/")
	if !fs.ValidPath(rel) {
		return "", fmt.Errorf("invalid blob path %q", p)
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

// FetchBytes 读取文件内容；不存在时返回 model.ErrNotFound
func (s *FileStore) FetchBytes(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrNotFound, err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", p, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", p, err)
	}
	return data, nil
}

// PutBytes 写入文件（先写临时文件再重命名）
func (s *FileStore) PutBytes(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", p, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit blob %s: %w", p, err)
	}
	return nil
}

// Delete 删除文件；不存在时返回 model.ErrNotFound
func (s *FileStore) Delete(ctx context.Context, p string) error {
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("blob %s: %w", p, model.ErrNotFound)
		}
		return fmt.Errorf("failed to delete blob %s: %w", p, err)
	}
	return nil
}
