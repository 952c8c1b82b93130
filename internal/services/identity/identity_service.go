package identity

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/rajivgeraev/ecoswap-api/internal/access"
	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
	"github.com/rajivgeraev/ecoswap-api/internal/models"
	"github.com/rajivgeraev/ecoswap-api/internal/storage"
	"github.com/rajivgeraev/ecoswap-api/internal/validation"
)

const userNotFound = "пользователь не найден"

// IdentityService регистрирует пользователей и проверяет их учетные данные
type IdentityService struct {
	store      storage.Store
	bcryptCost int
	// dummyHash сравнивается с паролем, если email не найден
	dummyHash []byte
}

// NewIdentityService создает сервис с заданной стоимостью bcrypt
func NewIdentityService(store storage.Store, bcryptCost int) *IdentityService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("ecoswap-dummy-password"), bcryptCost)
	if err != nil {
		log.WithError(err).Warn("Не удалось подготовить фиктивный хеш пароля")
	}
	return &IdentityService{store: store, bcryptCost: bcryptCost, dummyHash: dummy}
}

// RegisterInput – данные регистрации
type RegisterInput struct {
	Name         string  `json:"name" validate:"required,max=100"`
	Email        string  `json:"email" validate:"required,email,max=254"`
	Password     string  `json:"password" validate:"required,min=6,max=72"`
	ProfileImage *string `json:"profileImage" validate:"omitempty,max=500"`
}

// UpdateProfileInput – частичное обновление профиля
type UpdateProfileInput struct {
	Name         *string `json:"name" validate:"omitempty,max=100"`
	Email        *string `json:"email" validate:"omitempty,email,max=254"`
	Password     *string `json:"password" validate:"omitempty,min=6,max=72"`
	ProfileImage *string `json:"profileImage" validate:"omitempty,max=500"`
}

// Profile – пользователь со счетчиками
type Profile struct {
	*models.User
	Stats models.UserStats `json:"stats"`
}

// PublicProfile – профиль, видимый другим пользователям, без email
type PublicProfile struct {
	*models.UserSummary
	Stats models.UserStats `json:"stats"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создает пользователя и возвращает его запись
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
	}
	if in.ProfileImage != nil && strings.TrimSpace(*in.ProfileImage) != "" {
		img := strings.TrimSpace(*in.ProfileImage)
		user.ProfileImage = &img
	}

	id, err := s.store.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperrors.Conflict("пользователь с таким email уже существует")
		}
		return nil, apperrors.FromStorage(err, userNotFound)
	}

	log.WithFields(log.Fields{"user_id": id}).Info("Зарегистрирован новый пользователь")
	return s.FindByID(ctx, id)
}

// VerifyCredentials проверяет email и пароль. Неверная пара дает ok=false без ошибки.
func (s *IdentityService) VerifyCredentials(ctx context.Context, email, password string) (int64, bool, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return 0, false, nil
		}
		return 0, false, apperrors.FromStorage(err, userNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return 0, false, nil
	}
	return user.ID, true, nil
}

// FindByID возвращает пользователя по id
func (s *IdentityService) FindByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, apperrors.FromStorage(err, userNotFound)
	}
	return user, nil
}

// Profile возвращает пользователя вместе со статистикой вещей и обменов
func (s *IdentityService) Profile(ctx context.Context, id int64) (*Profile, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.GetUserStats(ctx, id)
	if err != nil {
		return nil, apperrors.FromStorage(err, userNotFound)
	}
	return &Profile{User: user, Stats: *stats}, nil
}

// PublicProfile возвращает имя, аватар и статистику пользователя
func (s *IdentityService) PublicProfile(ctx context.Context, id int64) (*PublicProfile, error) {
	profile, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PublicProfile{UserSummary: profile.User.Summary(), Stats: profile.Stats}, nil
}

// UpdateProfile меняет профиль. Доступно только самому пользователю.
func (s *IdentityService) UpdateProfile(ctx context.Context, callerID, targetID int64, in UpdateProfileInput) (*models.User, error) {
	err := s.store.WithTx(ctx, func(tx storage.Repositories) error {
		if _, err := tx.GetUser(ctx, targetID); err != nil {
			return apperrors.FromStorage(err, userNotFound)
		}
		if err := access.Authorize(callerID, access.UserUpdate, access.UserResource(targetID)).Err(); err != nil {
			return err
		}

		patch, err := s.toPatch(in)
		if err != nil {
			return err
		}
		if patch == (models.UserPatch{}) {
			return nil
		}

		if err := tx.UpdateUser(ctx, targetID, patch); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return apperrors.Conflict("пользователь с таким email уже существует")
			}
			return apperrors.FromStorage(err, userNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": targetID}).Info("Профиль обновлен")
	return s.FindByID(ctx, targetID)
}

func (s *IdentityService) toPatch(in UpdateProfileInput) (models.UserPatch, error) {
	var patch models.UserPatch

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
		if name == "" {
			return patch, apperrors.Validation("name: обязательное поле")
		}
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
		if email == "" {
			return patch, apperrors.Validation("email: обязательное поле")
		}
	}
	if in.Password != nil && *in.Password == "" {
		return patch, apperrors.Validation("password: минимальная длина 6")
	}
	if err := validation.Struct(in); err != nil {
		return patch, err
	}

	patch.Name = in.Name
	patch.Email = in.Email
	if in.ProfileImage != nil {
		img := strings.TrimSpace(*in.ProfileImage)
		patch.ProfileImage = &img
	}
	if in.Password != nil {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return patch, err
		}
		patch.PasswordHash = &hash
	}
	return patch, nil
}

func (s *IdentityService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", apperrors.Internal(errors.Wrap(err, "hash password"))
	}
	return string(hash), nil
}
