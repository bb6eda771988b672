package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/civicdesk/api/internal/auth"
	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/validator"
	"gorm.io/gorm"
)

type UserService struct {
	db        *gorm.DB
	activity  *ActivityService
	jwtSecret string
	now       func() time.Time
}

func NewUserService(db *gorm.DB, activity *ActivityService, jwtSecret string) *UserService {
	return &UserService{db: db, activity: activity, jwtSecret: jwtSecret, now: time.Now}
}

type TokenPair struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    int         `json:"expiresIn"`
	User         *model.User `json:"user"`
}

type RegisterInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
}

type OfficerInput struct {
	Email         string  `json:"email" binding:"required"`
	Password      string  `json:"password" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	Phone         string  `json:"phone"`
	DepartmentIDs []int64 `json:"departmentIds"`
}

type ProfileInput struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

type UserFilter struct {
	Role   model.Role
	Active *bool
	Query  string
}

// Register creates a citizen account with a local password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validator.Registration(in.Email, in.Name, in.Phone); err != nil {
		return nil, validationError("%v", err)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, validationError("%v", err)
		}
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, in.Email); err != nil {
		return nil, err
	}

	u := &model.User{
		Provider:     model.ProviderLocal,
		Email:        in.Email,
		Name:         in.Name,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         model.RoleCitizen,
		Active:       true,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	s.activity.Record(ctx, principalOf(u), model.ActionUserRegistered, model.EntityUser, u.ID, nil)
	return u, nil
}

// Authenticate checks a local email and password. Unknown emails, wrong
// passwords and deactivated accounts are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if !u.Active || !auth.CheckPassword(u.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	s.activity.Record(ctx, principalOf(&u), model.ActionUserLogin, model.EntityUser, u.ID, nil)
	return &u, nil
}

// GoogleSignIn finds or creates the citizen bound to a Google account. Only
// verified Google emails are accepted. An existing local citizen account with
// the same email is linked rather than duplicated; staff accounts and accounts
// already bound to another Google identity are never linked by email.
func (s *UserService) GoogleSignIn(ctx context.Context, info *auth.GoogleUserInfo) (*model.User, error) {
	if !info.VerifiedEmail {
		return nil, fmt.Errorf("%w: google email is not verified", ErrUnauthorized)
	}
	db := s.db.WithContext(ctx)
	email := strings.ToLower(info.Email)

	var u model.User
	err := db.Where("provider = ? AND provider_id = ?", model.ProviderGoogle, info.ID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.Where("email = ?", email).First(&u).Error
		if err == nil && (u.Role != model.RoleCitizen || u.Provider != model.ProviderLocal) {
			return nil, fmt.Errorf("%w: email belongs to an account that cannot be linked to google", ErrConflict)
		}
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		u = model.User{
			Provider:   model.ProviderGoogle,
			ProviderID: info.ID,
			Email:      email,
			Name:       info.Name,
			AvatarURL:  info.Picture,
			Role:       model.RoleCitizen,
			Active:     true,
		}
		if err := db.Create(&u).Error; err != nil {
			return nil, err
		}
		s.activity.Record(ctx, principalOf(&u), model.ActionUserRegistered, model.EntityUser, u.ID, map[string]interface{}{
			"provider": model.ProviderGoogle,
		})
	case err != nil:
		return nil, err
	default:
		err = db.Model(&u).Updates(map[string]interface{}{
			"provider_id": info.ID,
			"avatar_url":  info.Picture,
			"updated_at":  s.now(),
		}).Error
		if err != nil {
			return nil, err
		}
	}
	if !u.Active {
		return nil, fmt.Errorf("%w: account is deactivated", ErrUnauthorized)
	}
	s.activity.Record(ctx, principalOf(&u), model.ActionUserLogin, model.EntityUser, u.ID, nil)
	return &u, nil
}

// IssueTokens mints an access token and stores a new refresh token for u.
func (s *UserService) IssueTokens(ctx context.Context, u *model.User) (*TokenPair, error) {
	access, err := auth.GenerateAccessToken(u, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	rt := model.RefreshToken{
		UserID:    u.ID,
		Token:     refresh,
		ExpiresAt: now.Add(auth.RefreshTokenExpiry),
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&rt).Error; err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(auth.AccessTokenExpiry.Seconds()),
		User:         u,
	}, nil
}

// Refresh exchanges a usable refresh token for a new access token.
func (s *UserService) Refresh(ctx context.Context, token string) (string, error) {
	var rt model.RefreshToken
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&rt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !rt.Usable(s.now())) {
		return "", fmt.Errorf("%w: invalid or expired refresh token", ErrUnauthorized)
	}
	if err != nil {
		return "", err
	}

	var u model.User
	err = s.db.WithContext(ctx).First(&u, rt.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !u.Active) {
		return "", fmt.Errorf("%w: account unavailable", ErrUnauthorized)
	}
	if err != nil {
		return "", err
	}
	return auth.GenerateAccessToken(&u, s.jwtSecret)
}

// Revoke invalidates a refresh token. Unknown tokens are ignored.
func (s *UserService) Revoke(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Model(&model.RefreshToken{}).Where("token = ?", token).Update("revoked", true).Error
}

// Get loads a user with department assignments.
func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Preload("Departments").First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("user", id)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, p auth.Principal, in ProfileInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Name == "" || len(in.Name) > validator.MaxNameLength {
		return nil, validationError("name must be 1-%d characters", validator.MaxNameLength)
	}
	if in.Phone != "" && !validator.IsPhoneNumber(in.Phone) {
		return nil, validationError("phone must be a valid phone number")
	}
	u, err := s.Get(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(u).Updates(map[string]interface{}{
		"name":       in.Name,
		"phone":      in.Phone,
		"updated_at": s.now(),
	}).Error
	if err != nil {
		return nil, err
	}
	u.Name, u.Phone = in.Name, in.Phone
	return u, nil
}

// List returns users filtered by role and activity. Admin only.
func (s *UserService) List(ctx context.Context, p auth.Principal, f UserFilter, page, limit int) ([]model.User, int64, error) {
	if !p.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	q := s.db.WithContext(ctx).Model(&model.User{})
	if f.Role != "" {
		if _, err := model.ParseRole(string(f.Role)); err != nil {
			return nil, 0, validationError("%v", err)
		}
		q = q.Where("role = ?", f.Role)
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []model.User
	err := q.Preload("Departments").
		Order("id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	return users, total, err
}

// CreateOfficer creates an officer account and its department assignments
// in one transaction.
func (s *UserService) CreateOfficer(ctx context.Context, p auth.Principal, in OfficerInput) (*model.User, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validator.Registration(in.Email, in.Name, in.Phone); err != nil {
		return nil, validationError("%v", err)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, validationError("%v", err)
		}
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, in.Email); err != nil {
		return nil, err
	}

	u := &model.User{
		Provider:     model.ProviderLocal,
		Email:        in.Email,
		Name:         in.Name,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         model.RoleOfficer,
		Active:       true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		depts, err := loadDepartments(tx, in.DepartmentIDs)
		if err != nil {
			return err
		}
		u.Departments = depts
		return tx.Create(u).Error
	})
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, p, model.ActionOfficerCreated, model.EntityUser, u.ID, map[string]interface{}{
		"departmentIds": u.DepartmentIDs(),
	})
	return u, nil
}

// SetOfficerDepartments replaces an officer's department assignments.
func (s *UserService) SetOfficerDepartments(ctx context.Context, p auth.Principal, officerID int64, departmentIDs []int64) (*model.User, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	u, err := s.Get(ctx, officerID)
	if err != nil {
		return nil, err
	}
	if u.Role != model.RoleOfficer {
		return nil, validationError("user %d is not an officer", officerID)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		depts, err := loadDepartments(tx, departmentIDs)
		if err != nil {
			return err
		}
		assoc := tx.Model(u).Association("Departments")
		if len(depts) == 0 {
			err = assoc.Clear()
		} else {
			err = assoc.Replace(depts)
		}
		if err != nil {
			return err
		}
		u.Departments = depts
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, p, model.ActionOfficerAssigned, model.EntityUser, u.ID, map[string]interface{}{
		"departmentIds": u.DepartmentIDs(),
	})
	return u, nil
}

// SetActive enables or disables an account of the given role. Admins cannot
// deactivate themselves.
func (s *UserService) SetActive(ctx context.Context, p auth.Principal, id int64, role model.Role, active bool) (*model.User, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	if id == p.UserID && !active {
		return nil, validationError("cannot deactivate your own account")
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != "" && u.Role != role {
		return nil, notFound(string(role), id)
	}
	if err := s.db.WithContext(ctx).Model(u).Update("active", active).Error; err != nil {
		return nil, err
	}
	u.Active = active
	if !active {
		// drop outstanding sessions
		s.db.WithContext(ctx).Model(&model.RefreshToken{}).Where("user_id = ?", id).Update("revoked", true)
	}
	s.activity.Record(ctx, p, model.ActionUserActivated, model.EntityUser, u.ID, map[string]interface{}{
		"active": active,
	})
	return u, nil
}

// EnsureAdmin creates the admin account if no user holds email yet.
func (s *UserService) EnsureAdmin(ctx context.Context, email, name, password string) (*model.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var existing model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	u := &model.User{
		Provider:     model.ProviderLocal,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Active:       true,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	var n int64
	if err := s.db.WithContext(ctx).Unscoped().Model(&model.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: email already registered", ErrConflict)
	}
	return nil
}

func loadDepartments(tx *gorm.DB, ids []int64) ([]model.Department, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []model.Department{}, nil
	}
	var depts []model.Department
	if err := tx.Where("id IN ?", ids).Find(&depts).Error; err != nil {
		return nil, err
	}
	if len(depts) != len(ids) {
		return nil, validationError("unknown department in %v", ids)
	}
	return depts, nil
}

func principalOf(u *model.User) auth.Principal {
	return auth.Principal{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}
