package profile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/core/common/validation"
	profileDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/profile"
	"github.com/frahmantamala/employee-management/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*profileDatamodel.ProfileWithRole, error)
	List(ctx context.Context) ([]*profileDatamodel.ProfileWithRole, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	// Create stores the profile and its role atomically. A duplicate email
	// yields ErrEmailTaken.
	Create(ctx context.Context, p *profileDatamodel.Profile, role *profileDatamodel.UserRole) error
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	SetRole(ctx context.Context, userID string, role string) error
	DisplayNames(ctx context.Context, ids []string) (map[string]string, error)
}

type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) (*storage.Object, error)
}

type Service struct {
	repo       Repository
	files      FileStore
	logger     *slog.Logger
	bcryptCost int
	timeout    time.Duration
}

func NewService(repo Repository, files FileStore, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		files:      files,
		logger:     logger,
		bcryptCost: bcryptCost,
		timeout:    5 * time.Second,
	}
}

func (s *Service) GetMe(ctx context.Context, session internal.Session) (*Profile, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.get(ctx, session.UserID)
}

func (s *Service) get(ctx context.Context, id string) (*Profile, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, internal.ErrProfileNotFound) {
			return nil, internal.ErrProfileNotFound
		}
		s.logger.Error("failed to load profile", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to load profile", err)
	}
	return FromDataModel(row), nil
}

func (s *Service) UpdateMe(ctx context.Context, session internal.Session, dto UpdateProfileDTO) (*Profile, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.update(ctx, session.UserID, fieldUpdates(dto.FullName, dto.Phone, dto.DateOfBirth)); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", "user_id", session.UserID)
	return s.get(ctx, session.UserID)
}

func (s *Service) update(ctx context.Context, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	if err := s.repo.Update(ctx, id, updates); err != nil {
		if errors.Is(err, internal.ErrProfileNotFound) {
			return internal.ErrProfileNotFound
		}
		s.logger.Error("failed to update profile", "error", err, "user_id", id)
		return internal.NewInternalError("failed to update profile", err)
	}
	return nil
}

// UploadAvatar stores an image and points the caller's profile_pic_url at it.
func (s *Service) UploadAvatar(ctx context.Context, session internal.Session, filename, contentType string, r io.Reader) (*Profile, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, internal.NewValidationFieldError("file", "file must be an image", internal.ErrCodeValidationFailed)
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	obj, err := s.files.Save(ctx, storage.Key("avatars/"+session.UserID, filename), r, contentType)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		s.logger.Error("failed to store avatar", "error", err, "user_id", session.UserID)
		return nil, internal.NewInternalError("failed to store avatar", err)
	}

	if err := s.update(ctx, session.UserID, map[string]interface{}{"profile_pic_url": obj.URL}); err != nil {
		return nil, err
	}

	s.logger.Info("avatar uploaded", "user_id", session.UserID, "key", obj.Key, "size", obj.Size)
	return s.get(ctx, session.UserID)
}

func (s *Service) ListEmployees(ctx context.Context, session internal.Session) ([]*Profile, error) {
	if !session.IsReviewer() {
		return nil, internal.ErrUnauthorizedAccess
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list employees", "error", err)
		return nil, internal.NewInternalError("failed to list employees", err)
	}
	return FromDataModelSlice(rows), nil
}

// CreateEmployee registers a new account with a role. Only admin and hr may
// do this.
func (s *Service) CreateEmployee(ctx context.Context, session internal.Session, dto CreateEmployeeDTO) (*Profile, error) {
	if !session.IsReviewer() {
		s.logger.Warn("create employee denied", "user_id", session.UserID, "role", session.Role)
		return nil, internal.ErrUnauthorizedAccess
	}
	return s.create(ctx, dto, session.UserID)
}

// Register is self-service signup. The account always gets the employee role.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*Profile, error) {
	return s.create(ctx, dto.toCreate(), "self")
}

func (s *Service) create(ctx context.Context, dto CreateEmployeeDTO, createdBy string) (*Profile, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	exists, err := s.repo.EmailExists(ctx, dto.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to create employee", err)
	}
	if exists {
		return nil, internal.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	now := time.Now().UTC()
	p := &Profile{
		ID:           uuid.NewString(),
		Email:        dto.Email,
		FullName:     dto.FullName,
		PasswordHash: string(hash),
		Role:         internal.Role(dto.Role),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if dto.Phone != nil && strings.TrimSpace(*dto.Phone) != "" {
		phone := strings.TrimSpace(*dto.Phone)
		p.Phone = &phone
	}
	if dto.DateOfBirth != nil {
		if dob, err := validation.ParseDate(*dto.DateOfBirth); err == nil {
			p.DateOfBirth = &dob
		}
	}

	role := &profileDatamodel.UserRole{ID: uuid.NewString(), UserID: p.ID, Role: dto.Role, CreatedAt: now}
	if err := s.repo.Create(ctx, ToDataModel(p), role); err != nil {
		if errors.Is(err, internal.ErrEmailTaken) {
			return nil, internal.ErrEmailTaken
		}
		s.logger.Error("failed to create employee", "error", err)
		return nil, internal.NewInternalError("failed to create employee", err)
	}

	s.logger.Info("employee created", "user_id", p.ID, "role", p.Role, "created_by", createdBy)
	return p, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, session internal.Session, id string, dto UpdateEmployeeDTO) (*Profile, error) {
	if !session.IsReviewer() {
		return nil, internal.ErrUnauthorizedAccess
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	if err := s.update(ctx, id, fieldUpdates(dto.FullName, dto.Phone, dto.DateOfBirth)); err != nil {
		return nil, err
	}

	if dto.Role != nil {
		if err := s.repo.SetRole(ctx, id, *dto.Role); err != nil {
			s.logger.Error("failed to set role", "error", err, "user_id", id)
			return nil, internal.NewInternalError("failed to update role", err)
		}
	}

	s.logger.Info("employee updated", "user_id", id, "updated_by", session.UserID)
	return s.get(ctx, id)
}

// DisplayNames maps user ids to full names. Unknown ids are absent from the map.
func (s *Service) DisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	names, err := s.repo.DisplayNames(ctx, ids)
	if err != nil {
		s.logger.Warn("display name lookup failed", "error", err, "count", len(ids))
		return nil, err
	}
	return names, nil
}
