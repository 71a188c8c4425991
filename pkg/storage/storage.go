package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	// ErrFileTooLarge возвращается, когда файл больше допустимого размера
	ErrFileTooLarge = errors.New("file size exceeds maximum allowed size")
	// ErrStorageLimit возвращается, когда папка сессии заполнена
	ErrStorageLimit = errors.New("session storage limit exceeded")
)

// Storage представляет файловое хранилище комнат сессий
type Storage struct {
	basePath          string
	maxFileSize       int64
	maxSessionStorage int64
}

// StoredFile описывает сохраненный файл
type StoredFile struct {
	Path          string
	ThumbnailPath string // пусто, если файл не изображение
	Size          int64
}

// NewStorage создает новое файловое хранилище
func NewStorage(basePath string, maxFileSize, maxSessionStorage int64) (*Storage, error) {
	// Создаем базовую директорию
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Storage{
		basePath:          basePath,
		maxFileSize:       maxFileSize,
		maxSessionStorage: maxSessionStorage,
	}, nil
}

// SaveSessionFile сохраняет файл в папку сессии и создает превью для изображений
func (s *Storage) SaveSessionFile(src io.Reader, fileName, contentType string, size int64, matchID string) (*StoredFile, error) {
	// Проверяем размер файла
	if size > s.maxFileSize {
		return nil, ErrFileTooLarge
	}

	sessionDir := filepath.Join(s.basePath, "sessions", safeSegment(matchID))

	// Проверяем общий размер файлов сессии
	used, err := dirSize(sessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate session storage: %w", err)
	}
	if used+size > s.maxSessionStorage {
		return nil, ErrStorageLimit
	}

	// Генерируем уникальное имя файла
	filePath := filepath.Join(sessionDir, uuid.New().String()+strings.ToLower(filepath.Ext(fileName)))

	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create file directory: %w", err)
	}

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}

	// Копируем не больше лимита, даже если заявленный размер неверен
	written, err := io.Copy(dst, io.LimitReader(src, s.maxFileSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}
	if written > s.maxFileSize {
		os.Remove(filePath)
		return nil, ErrFileTooLarge
	}

	stored := &StoredFile{Path: filePath, Size: written}

	// Создаем превью для изображений
	if strings.HasPrefix(contentType, "image/") {
		if err := s.createThumbnail(filePath); err != nil {
			// Логируем ошибку, но не прерываем выполнение
			log.Printf("Failed to create thumbnail: %v", err)
		} else {
			stored.ThumbnailPath = s.GetThumbnailPath(filePath)
		}
	}

	return stored, nil
}

// createThumbnail создает миниатюру изображения
func (s *Storage) createThumbnail(filePath string) error {
	img, err := imaging.Open(filePath)
	if err != nil {
		return err
	}

	// Вписываем в 300x300 с сохранением пропорций
	thumbnail := imaging.Fit(img, 300, 300, imaging.Lanczos)

	return imaging.Save(thumbnail, s.GetThumbnailPath(filePath), imaging.JPEGQuality(85))
}

// dirSize считает размер файлов в папке; отсутствующая папка пуста
func dirSize(dir string) (int64, error) {
	var totalSize int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		totalSize += info.Size()
		return nil
	})
	return totalSize, err
}

// DeleteFile удаляет файл
func (s *Storage) DeleteFile(filePath string) error {
	// Удаляем основной файл
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	// Удаляем миниатюру если она существует
	if err := os.Remove(s.GetThumbnailPath(filePath)); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to delete thumbnail: %v", err)
	}

	return nil
}

// GetThumbnailPath возвращает путь к миниатюре файла
func (s *Storage) GetThumbnailPath(filePath string) string {
	return strings.TrimSuffix(filePath, filepath.Ext(filePath)) + "_thumb.jpg"
}

// safeSegment не дает match_id выйти за пределы папки sessions
func safeSegment(value string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(value)
}
