package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

var (
	ErrStorageDisabled = errors.New("stockage de fichiers non configuré")
	ErrNotAnImage      = errors.New("le fichier doit être une image")
)

const PhotoURLTTL = 24 * time.Hour

// PhotoStorage range les photos de profil dans MinIO
type PhotoStorage struct {
	client *minio.Client
	bucket string
}

func NewPhotoStorage(client *minio.Client, bucket string) *PhotoStorage {
	return &PhotoStorage{client: client, bucket: bucket}
}

func (s *PhotoStorage) Enabled() bool {
	return s != nil && s.client != nil
}

// PhotoKey construit la clé objet d'une photo utilisateur
func PhotoKey(userID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("users/%s/%s%s", userID, uuid.NewString(), ext)
}

// UploadUserPhoto envoie la photo et retourne la clé objet stockée sur l'utilisateur
func (s *PhotoStorage) UploadUserPhoto(ctx context.Context, userID string, file *multipart.FileHeader) (string, error) {
	if !s.Enabled() {
		return "", ErrStorageDisabled
	}
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotAnImage
	}

	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	key := PhotoKey(userID, file.Filename)
	_, err = s.client.PutObject(ctx, s.bucket, key, f, file.Size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	return key, nil
}

// SignedURL génère une URL de lecture temporaire pour une clé objet
func (s *PhotoStorage) SignedURL(ctx context.Context, key string) (string, error) {
	if !s.Enabled() {
		return "", ErrStorageDisabled
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, PhotoURLTTL, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
