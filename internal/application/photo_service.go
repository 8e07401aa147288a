package application

import (
	"context"
	"errors"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/oksasatya/sape-server/internal/application/crud"
	"github.com/oksasatya/sape-server/internal/application/dto"
	"github.com/oksasatya/sape-server/internal/domain/entity"
)

var ErrPhotoStorageDisabled = errors.New("photo storage not configured")

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type Uploader interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// PhotoService stores person photos in object storage and records the URL.
type PhotoService struct {
	Persons  crud.Service[entity.Person, dto.PersonDTO]
	Uploader Uploader
}

func NewPhotoService(persons crud.Service[entity.Person, dto.PersonDTO], uploader Uploader) *PhotoService {
	return &PhotoService{Persons: persons, Uploader: uploader}
}

// Enabled reports whether an object store is configured.
func (s *PhotoService) Enabled() bool { return s.Uploader != nil }

func (s *PhotoService) Upload(ctx context.Context, personID int64, r io.Reader, contentType string) (*dto.PersonDTO, error) {
	if s.Uploader == nil {
		return nil, ErrPhotoStorageDisabled
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := photoExtensions[contentType]
	if !ok {
		return nil, crud.NewValidationError("invalid photo", map[string]string{"file": "must be a jpeg, png or webp image"})
	}

	p, err := s.Persons.GetEntity(ctx, personID)
	if err != nil {
		return nil, err
	}
	object := path.Join(s.Persons.Resource(), strconv.FormatInt(personID, 10), uuid.NewString()+ext)
	url, err := s.Uploader.Upload(ctx, object, contentType, r)
	if err != nil {
		return nil, err
	}
	p.PhotoURL = url
	saved, err := s.Persons.Save(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.Persons.ConvertToDTO(saved), nil
}
