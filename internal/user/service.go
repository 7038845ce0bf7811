// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ophrus/immo-api/internal/auth"
	"github.com/ophrus/immo-api/internal/core"
)

// SessionRevoker is the slice of the auth store the user service needs when
// an account is deleted or restored.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID string) error
}

type AvatarStorage interface {
	Upload(
		ctx context.Context,
		key, contentType string,
		body io.Reader,
		size int64,
	) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	repo     Repository
	sessions SessionRevoker
	storage  AvatarStorage
	logger   *slog.Logger
}

func NewService(
	repo Repository,
	sessions SessionRevoker,
	storage AvatarStorage,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		storage:  storage,
		logger:   logger,
	}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByIdentifier(
	ctx context.Context,
	identifier string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) Create(
	ctx context.Context,
	email, passwordHash, name, phone string,
) (*auth.UserInfo, error) {
	user := &User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Name:         name,
		Phone:        phone,
		Role:         RoleUser,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) SetResetCode(
	ctx context.Context,
	userID, code string,
	expiresAt time.Time,
) error {
	return s.repo.SetResetCode(ctx, userID, code, expiresAt)
}

func (s *Service) ClearResetCode(ctx context.Context, userID string) error {
	return s.repo.ClearResetCode(ctx, userID)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateUser(
	ctx context.Context,
	id string,
	req UpdateUserRequest,
) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) UpdateUserRole(
	ctx context.Context,
	id, role string,
) (*User, error) {
	if role != RoleUser && role != RoleAdmin {
		return nil, fmt.Errorf(
			"update role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if user.IsAdmin() && role == RoleUser {
		if err := s.ensureNotLastAdmin(ctx, id, "demote"); err != nil {
			return nil, err
		}
	}

	user.Role = role

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// DeleteUser soft-deletes the account and kills every session. Deleting the
// last remaining administrator is refused so the platform can never lock
// itself out.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if user.IsAdmin() {
		if err := s.ensureNotLastAdmin(ctx, id, "delete"); err != nil {
			return err
		}
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	if err := s.sessions.RevokeAllForUser(ctx, id); err != nil {
		s.logger.Warn("revoke sessions for deleted user",
			"user_id", id,
			"error", err,
		)
	}

	//nolint:errcheck // deleted users cannot refresh anyway
	_ = s.repo.IncrementTokenVersion(ctx, id)

	return nil
}

func (s *Service) RestoreUser(ctx context.Context, id string) (*User, error) {
	if err := s.repo.Restore(ctx, id); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

func (s *Service) ensureNotLastAdmin(
	ctx context.Context,
	id, action string,
) error {
	others, err := s.repo.CountActiveAdmins(ctx, id)
	if err != nil {
		return err
	}

	if others == 0 {
		return core.ConflictError(fmt.Sprintf(
			"cannot %s the last administrator", action,
		))
	}

	return nil
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

// SearchUsers matches active accounts by name or email substring. Any
// authenticated user may call it, so handlers expose only the summary view.
func (s *Service) SearchUsers(
	ctx context.Context,
	query string,
	params ListUsersParams,
) ([]User, int, error) {
	params.Search = query
	params.Role = ""
	return s.repo.List(ctx, params)
}

func (s *Service) ListDeletedUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.ListDeleted(ctx, params)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateUserRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	return s.UpdateUser(ctx, userID, req)
}

func (s *Service) DeleteMe(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("delete me: %w", core.ErrUnauthorized)
	}

	return s.DeleteUser(ctx, userID)
}

// Exists reports whether an active account with this ID exists.
func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	_, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) EmailExists(
	ctx context.Context,
	email string,
) (bool, error) {
	return s.repo.ExistsByEmail(ctx, email)
}

// UploadAvatar stores the image and replaces any previous one. The old
// object is removed best-effort after the new URL is committed.
func (s *Service) UploadAvatar(
	ctx context.Context,
	userID, filename, contentType string,
	body io.Reader,
	size int64,
) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.New().String(), ext)

	url, err := s.storage.Upload(ctx, key, contentType, body, size)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	oldKey := user.AvatarKey

	if err := s.repo.UpdateAvatar(ctx, userID, &url, &key); err != nil {
		return nil, err
	}

	if oldKey != nil {
		if delErr := s.storage.Delete(ctx, *oldKey); delErr != nil {
			s.logger.Warn("delete previous avatar",
				"user_id", userID,
				"key", *oldKey,
				"error", delErr,
			)
		}
	}

	user.AvatarURL = &url
	user.AvatarKey = &key

	return user, nil
}

func (s *Service) DeleteAvatar(ctx context.Context, userID string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.AvatarKey == nil {
		return nil
	}

	if err := s.repo.UpdateAvatar(ctx, userID, nil, nil); err != nil {
		return err
	}

	if delErr := s.storage.Delete(ctx, *user.AvatarKey); delErr != nil {
		s.logger.Warn("delete avatar object",
			"user_id", userID,
			"key", *user.AvatarKey,
			"error", delErr,
		)
	}

	return nil
}

func toUserInfo(u *User) *auth.UserInfo {
	info := &auth.UserInfo{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Phone:              u.Phone,
		PasswordHash:       u.PasswordHash,
		Role:               u.Role,
		TokenVersion:       u.TokenVersion,
		CreatedAt:          u.CreatedAt,
		ResetCode:          u.ResetCode,
		ResetCodeExpiresAt: u.ResetCodeExpiresAt,
	}
	if u.AvatarURL != nil {
		info.AvatarURL = *u.AvatarURL
	}
	return info
}

var _ auth.UserProvider = (*Service)(nil)
