package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"

	"ansel/internal/storage"
)

// FileStorage keeps image originals and rendered views. Every image owns
// one directory named after its id.
type FileStorage interface {
	Save(ctx context.Context, file *multipart.FileHeader, subPath string) (filePath string, fileSize int64, err error)
	Write(ctx context.Context, relPath string, r io.Reader) (int64, error)
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
	Exists(relPath string) bool
	Delete(ctx context.Context, filePath string) error
	DeleteImage(ctx context.Context, imageID int64) error
	GetFullPath(relativePath string) string
	BaseURL() string
	GetBaseDir() string
}

// LocalFileStorage реализация для локальной файловой системы
type LocalFileStorage struct {
	baseDir string
	baseURL string
}

func NewLocalFileStorage(baseDir, baseURL string) (*LocalFileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &LocalFileStorage{
		baseDir: baseDir,
		baseURL: baseURL,
	}, nil
}

// ImageDir is the directory of one image relative to the base dir.
func ImageDir(imageID int64) string {
	return strconv.FormatInt(imageID, 10)
}

// OriginalPath is where the uploaded file of an image lives.
func OriginalPath(imageID int64, filename string) string {
	return filepath.Join(ImageDir(imageID), filepath.Base(filename))
}

// ViewPath is where a rendered view of an image in a style lives.
func ViewPath(imageID int64, view, style string) string {
	return filepath.Join(ImageDir(imageID), "views", view+"_"+style+".jpg")
}

func (s *LocalFileStorage) Save(ctx context.Context, file *multipart.FileHeader, subPath string) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	src, err := file.Open()
	if err != nil {
		return "", 0, fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	relPath := filepath.Join(subPath, filepath.Base(file.Filename))
	size, err := s.Write(ctx, relPath, src)
	if err != nil {
		return "", 0, err
	}

	return relPath, size, nil
}

// Write stores r under relPath, replacing any existing file.
func (s *LocalFileStorage) Write(ctx context.Context, relPath string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	filePath := s.GetFullPath(relPath)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directories: %w", err)
	}

	dst, err := os.Create(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	done := make(chan struct{})
	var size int64
	var copyErr error

	go func() {
		size, copyErr = io.Copy(dst, r)
		close(done)
	}()

	select {
	case <-done:
		if copyErr != nil {
			_ = os.Remove(filePath)
			return 0, fmt.Errorf("failed to copy file: %w", copyErr)
		}
	case <-ctx.Done():
		<-done
		_ = os.Remove(filePath)
		return 0, ctx.Err()
	}

	return size, nil
}

func (s *LocalFileStorage) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.GetFullPath(relPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrFileNotFound
		}
		return nil, err
	}

	return f, nil
}

func (s *LocalFileStorage) Exists(relPath string) bool {
	_, err := os.Stat(s.GetFullPath(relPath))
	return err == nil
}

// Delete удаляет файл из хранилища
func (s *LocalFileStorage) Delete(ctx context.Context, filePath string) error {
	fullPath := filepath.Join(s.baseDir, filePath)
	return os.Remove(fullPath)
}

// DeleteImage removes the original and every rendered view of an image.
func (s *LocalFileStorage) DeleteImage(ctx context.Context, imageID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return os.RemoveAll(s.GetFullPath(ImageDir(imageID)))
}

// GetFullPath возвращает полный путь к файлу на диске
func (s *LocalFileStorage) GetFullPath(relativePath string) string {
	return filepath.Join(s.baseDir, relativePath)
}

func (s *LocalFileStorage) BaseURL() string {
	return s.baseURL
}

func (s *LocalFileStorage) GetBaseDir() string {
	return s.baseDir
}
