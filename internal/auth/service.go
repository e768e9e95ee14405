// Package auth implements account login, signup and second-factor management.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/teamhub/teamhub/internal/models"
	"github.com/teamhub/teamhub/internal/security"
	"github.com/teamhub/teamhub/internal/settings"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Options toggles deployment variants.
type Options struct {
	// AutoCreateTeam creates unknown teams during signup instead of rejecting them.
	AutoCreateTeam bool
}

// Service runs the server-side account operations over the database.
type Service struct {
	db     *gorm.DB
	hasher *security.PasswordHasher
	opts   Options
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(db *gorm.DB, hasher *security.PasswordHasher, opts Options) *Service {
	return &Service{db: db, hasher: hasher, opts: opts, now: time.Now}
}

// LoginInput carries password login parameters. TeamSlug is optional.
type LoginInput struct {
	TeamSlug string
	Username string
	Password string
}

// Login verifies a password and returns the account. Usernames are resolved
// within TeamSlug when given; otherwise the username must be unique across teams,
// and ErrTeamRequired is only reported once the password matches one of them.
// The password is checked before the account status so a wrong password never
// reveals that an account is pending or inactive.
func (s *Service) Login(ctx context.Context, in LoginInput) (*UserRecord, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, invalid("username", "username and password are required")
	}

	candidates, errFind := s.findLoginCandidates(ctx, strings.ToLower(strings.TrimSpace(in.TeamSlug)), username)
	if errFind != nil {
		return nil, errFind
	}

	var user *models.User
	matched := 0
	for i := range candidates {
		if s.hasher.Verify(in.Password, candidates[i].Password) {
			if user == nil {
				user = &candidates[i]
			}
			matched++
		}
	}
	if user == nil {
		log.WithField("username", username).Debug("login rejected: no matching credentials")
		return nil, ErrInvalidCredentials
	}
	// A username shared by several teams needs a slug even when the password is right.
	if len(candidates) > 1 {
		log.WithFields(log.Fields{"username": username, "matched": matched}).Debug("login rejected: team required")
		return nil, ErrTeamRequired
	}
	switch user.Status {
	case models.StatusActive:
	case models.StatusPending:
		return nil, ErrAccountPending
	default:
		return nil, ErrAccountInactive
	}

	now := s.now().UTC()
	if errUpdate := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("last_login_at", now).Error; errUpdate != nil {
		return nil, fmt.Errorf("auth: update last login: %w", errUpdate)
	}
	user.LastLoginAt = &now

	log.WithFields(log.Fields{"user_id": user.ID, "team_id": user.TeamID}).Info("user logged in")
	return newUserRecord(*user), nil
}

// findLoginCandidates returns every account that could own the username.
// An unknown team yields no candidates so it reads like bad credentials.
func (s *Service) findLoginCandidates(ctx context.Context, teamSlug, username string) ([]models.User, error) {
	query := s.db.WithContext(ctx).Preload("Team")
	if teamSlug != "" {
		var team models.Team
		if errTeam := s.db.WithContext(ctx).Where("slug = ?", teamSlug).First(&team).Error; errTeam != nil {
			if errors.Is(errTeam, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("auth: find team: %w", errTeam)
		}
		query = query.Where("team_id = ?", team.ID)
	}

	var candidates []models.User
	if errFind := query.Where("username = ?", username).Order("id ASC").Find(&candidates).Error; errFind != nil {
		return nil, fmt.Errorf("auth: find user: %w", errFind)
	}
	return candidates, nil
}

// SignupInput carries signup parameters. Role defaults to member; TeamName is
// only used when the team is auto-created.
type SignupInput struct {
	TeamSlug    string
	TeamName    string
	Username    string
	Email       string
	DisplayName string
	Password    string
	Role        string
}

func (in *SignupInput) normalize() error {
	in.TeamSlug = strings.ToLower(strings.TrimSpace(in.TeamSlug))
	in.TeamName = strings.TrimSpace(in.TeamName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))

	switch {
	case in.TeamSlug == "":
		return invalid("team_slug", "team is required")
	case in.Username == "":
		return invalid("username", "username is required")
	case in.Email == "" || !strings.Contains(in.Email, "@"):
		return invalid("email", "a valid email is required")
	case in.Password == "":
		return invalid("password", "password is required")
	}
	if in.Role == "" {
		in.Role = models.RoleMember
	}
	switch in.Role {
	case models.RoleAdmin, models.RoleManager, models.RoleMember:
	default:
		return ErrInvalidRole
	}
	if in.DisplayName == "" {
		in.DisplayName = in.Username
	}
	return nil
}

// Signup creates a team membership. When the email already belongs to a user
// in another team, the new row shares that identity's password record, PIN
// record and 2FA method instead of deriving a new password. Admins start
// active, everyone else pending approval. Every new row requires 2FA setup.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*UserRecord, error) {
	if errInput := in.normalize(); errInput != nil {
		return nil, errInput
	}

	var created models.User
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		team, errTeam := s.resolveSignupTeam(tx, in)
		if errTeam != nil {
			return errTeam
		}

		var count int64
		if errCount := tx.Model(&models.User{}).
			Where("team_id = ? AND username = ?", team.ID, in.Username).
			Count(&count).Error; errCount != nil {
			return fmt.Errorf("auth: check username: %w", errCount)
		}
		if count > 0 {
			return ErrUsernameTaken
		}
		if errCount := tx.Model(&models.User{}).
			Where("team_id = ? AND email = ?", team.ID, in.Email).
			Count(&count).Error; errCount != nil {
			return fmt.Errorf("auth: check email: %w", errCount)
		}
		if count > 0 {
			return ErrEmailTaken
		}

		user := models.User{
			TeamID:             team.ID,
			Team:               team,
			Username:           in.Username,
			Email:              in.Email,
			DisplayName:        in.DisplayName,
			Role:               in.Role,
			Status:             models.StatusPending,
			Language:           "en",
			TwoFASetupRequired: true,
		}
		if in.Role == models.RoleAdmin {
			user.Status = models.StatusActive
		}

		var linked models.User
		errLinked := tx.Where("email = ? AND team_id <> ?", in.Email, team.ID).Order("id ASC").First(&linked).Error
		switch {
		case errLinked == nil:
			user.Password = linked.Password
			user.PINHash = linked.PINHash
			user.TwoFAMethod = linked.TwoFAMethod
			log.WithFields(log.Fields{
				"linked_user_id": linked.ID,
				"linked_team_id": linked.TeamID,
				"team_id":        team.ID,
			}).Warn("signup reuses credentials of an existing identity with the same email")
		case errors.Is(errLinked, gorm.ErrRecordNotFound):
			record, errDerive := s.hasher.Derive(in.Password)
			if errDerive != nil {
				return fmt.Errorf("auth: derive password: %w", errDerive)
			}
			user.Password = record
		default:
			return fmt.Errorf("auth: find linked identity: %w", errLinked)
		}

		if errCreate := tx.Omit("Team").Create(&user).Error; errCreate != nil {
			if isDuplicateKey(errCreate) {
				return ErrUsernameTaken
			}
			return fmt.Errorf("auth: create user: %w", errCreate)
		}
		created = user
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	log.WithFields(log.Fields{
		"user_id": created.ID,
		"team_id": created.TeamID,
		"role":    created.Role,
		"status":  created.Status,
	}).Info("user signed up")
	return newUserRecord(created), nil
}

func (s *Service) resolveSignupTeam(tx *gorm.DB, in SignupInput) (*models.Team, error) {
	var team models.Team
	errFind := tx.Where("slug = ?", in.TeamSlug).First(&team).Error
	if errFind == nil {
		return &team, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("auth: find team: %w", errFind)
	}
	if !s.autoCreateTeam() {
		return nil, ErrTeamNotFound
	}

	team = models.Team{Slug: in.TeamSlug, Name: in.TeamName}
	if team.Name == "" {
		team.Name = in.TeamSlug
	}
	if errCreate := tx.Create(&team).Error; errCreate != nil {
		return nil, fmt.Errorf("auth: create team: %w", errCreate)
	}
	log.WithFields(log.Fields{"team_id": team.ID, "slug": team.Slug}).Info("team created during signup")
	return &team, nil
}

func (s *Service) autoCreateTeam() bool {
	if value, ok := settings.Bool(settings.AutoCreateTeamKey); ok {
		return value
	}
	return s.opts.AutoCreateTeam
}

// GetUser returns the account with its team.
func (s *Service) GetUser(ctx context.Context, userID uint64) (*UserRecord, error) {
	user, errFind := s.loadUser(ctx, userID, true)
	if errFind != nil {
		return nil, errFind
	}
	return newUserRecord(*user), nil
}

func (s *Service) loadUser(ctx context.Context, userID uint64, withTeam bool) (*models.User, error) {
	if userID == 0 {
		return nil, ErrUserNotFound
	}
	query := s.db.WithContext(ctx)
	if withTeam {
		query = query.Preload("Team")
	}
	var user models.User
	if errFind := query.First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth: load user: %w", errFind)
	}
	return &user, nil
}

// SetupPIN derives and stores a PIN record, makes PIN the 2FA method and clears
// the setup flag.
func (s *Service) SetupPIN(ctx context.Context, userID uint64, pin string) error {
	record, errDerive := security.DerivePIN(pin)
	if errDerive != nil {
		return &ValidationError{Field: "pin", Err: errDerive}
	}
	raw, errMarshal := record.Marshal()
	if errMarshal != nil {
		return fmt.Errorf("auth: encode pin record: %w", errMarshal)
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"pin_hash":              datatypes.JSON(raw),
			"two_fa_method":         models.TwoFAMethodPIN,
			"two_fa_setup_required": false,
			"updated_at":            s.now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("auth: store pin: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	log.WithField("user_id", userID).Info("pin configured")
	return nil
}

// Get2FASettings reports the configured method, the setup flag and whether a PIN exists.
func (s *Service) Get2FASettings(ctx context.Context, userID uint64) (*TwoFASettings, error) {
	user, errFind := s.loadUser(ctx, userID, false)
	if errFind != nil {
		return nil, errFind
	}
	return &TwoFASettings{
		Method:         user.TwoFAMethod,
		SetupRequired:  user.TwoFASetupRequired,
		PINHashPresent: hasPINRecord(user.PINHash),
	}, nil
}

// VerifyUserPIN checks pin against the stored record. A corrupt record
// verifies as false.
func (s *Service) VerifyUserPIN(ctx context.Context, userID uint64, pin string) (bool, error) {
	if errPIN := security.ValidatePIN(pin); errPIN != nil {
		return false, &ValidationError{Field: "pin", Err: errPIN}
	}
	user, errFind := s.loadUser(ctx, userID, false)
	if errFind != nil {
		return false, errFind
	}
	if !hasPINRecord(user.PINHash) {
		return false, ErrPINNotConfigured
	}
	record, errParse := security.ParsePINRecord(user.PINHash)
	if errParse != nil {
		log.WithError(errParse).WithField("user_id", userID).Warn("stored pin record unreadable")
		return false, nil
	}
	return security.VerifyPIN(pin, record), nil
}

func hasPINRecord(raw datatypes.JSON) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}

// ActivateUser approves a pending or inactive member of teamID.
func (s *Service) ActivateUser(ctx context.Context, teamID, userID uint64) error {
	return s.setStatus(ctx, teamID, userID, models.StatusActive)
}

// DeactivateUser blocks further logins for a member of teamID.
func (s *Service) DeactivateUser(ctx context.Context, teamID, userID uint64) error {
	return s.setStatus(ctx, teamID, userID, models.StatusInactive)
}

func (s *Service) setStatus(ctx context.Context, teamID, userID uint64, status string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND team_id = ?", userID, teamID).
		Updates(map[string]any{"status": status, "updated_at": s.now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("auth: update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	log.WithFields(log.Fields{"user_id": userID, "team_id": teamID, "status": status}).Info("user status changed")
	return nil
}

// DisableTwoFA removes the PIN record and registered passkeys and flags the
// account for 2FA setup again.
func (s *Service) DisableTwoFA(ctx context.Context, userID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"pin_hash":              nil,
				"two_fa_method":         nil,
				"two_fa_setup_required": true,
				"updated_at":            s.now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("auth: reset 2fa: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		if errDelete := tx.Where("user_id = ?", userID).Delete(&models.BiometricCredential{}).Error; errDelete != nil {
			return fmt.Errorf("auth: delete passkeys: %w", errDelete)
		}
		return nil
	})
}

// isDuplicateKey reports a unique index violation. Users only carry the
// (team_id, username) unique index, so a concurrent signup lands here.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Connections opened without TranslateError still surface the driver text.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
