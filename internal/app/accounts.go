package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/store"
)

// Accounts covers the athlete lifecycle around recovery: registration, onboarding,
// login and PIN change. It also signs administrators in, since registration is
// admin-only.
type Accounts struct {
	admins   store.AdminRepository
	athletes store.AthleteRepository
	hasher   PinHasher
	tokens   *TokenIssuer
	audit    *Auditor
}

func NewAccounts(admins store.AdminRepository, athletes store.AthleteRepository, hasher PinHasher, tokens *TokenIssuer, audit *Auditor) *Accounts {
	return &Accounts{admins: admins, athletes: athletes, hasher: hasher, tokens: tokens, audit: audit}
}

// BootstrapAdmin creates the initial administrator when it does not exist yet. It
// reports false when the pincode or email is already taken.
func (a *Accounts) BootstrapAdmin(ctx context.Context, pincode, email, password string) (bool, error) {
	pincode = strings.TrimSpace(pincode)
	email = strings.ToLower(strings.TrimSpace(email))
	if !adminPincodePattern.MatchString(pincode) {
		return false, invalid("pincode", "Admin pincode must be exactly 6 digits.")
	}
	if email == "" || password == "" {
		return false, invalid("credentials", "Admin email and password are required.")
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	admin := &domain.Admin{
		Pincode:      pincode,
		Email:        email,
		FirstName:    "Kiosk",
		LastName:     "Administrator",
		PasswordHash: hash,
	}
	if err := a.admins.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, store.ErrAdminExists) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	log.Printf("level=info component=accounts msg=\"bootstrap admin created\" admin_id=%s", admin.ID)
	return true, nil
}

// AdminLogin verifies pincode and password and issues an admin session token.
func (a *Accounts) AdminLogin(ctx context.Context, req domain.AdminLoginRequest) (*domain.LoginResult, error) {
	pincode := strings.TrimSpace(req.Pincode)
	role := strings.TrimSpace(req.Role)
	if !adminPincodePattern.MatchString(pincode) || req.Password == "" {
		return nil, invalid("credentials", "Missing login fields")
	}
	if role != "" && role != domain.RoleAdmin {
		return nil, invalid("role", "Athletes sign in with their ID number and pincode.")
	}

	admin, err := a.admins.FindAdminByPincode(ctx, pincode)
	if err != nil {
		if errors.Is(err, store.ErrAdminNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	if !a.hasher.Matches(admin.PasswordHash, req.Password) {
		log.Printf("level=info component=accounts msg=\"admin login rejected\" admin_id=%s", admin.ID)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := a.tokens.Issue(admin.ID.String(), domain.RoleAdmin, "")
	if err != nil {
		return nil, err
	}
	a.audit.Record(ctx, domain.AuditEntry{
		ActorID:   admin.ID.String(),
		ActorRole: domain.RoleAdmin,
		ActorName: admin.FirstName + " " + admin.LastName,
		Action:    domain.AuditAdminLogin,
		Details:   map[string]any{"route": "/api/auth/login"},
	})

	return &domain.LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Role:      domain.RoleAdmin,
		FirstName: admin.FirstName,
		LastName:  admin.LastName,
	}, nil
}

// Logout records the sign-out. Session tokens are stateless and simply expire.
func (a *Accounts) Logout(ctx context.Context, claims *SessionClaims) {
	a.audit.Record(ctx, domain.AuditEntry{
		ActorID:   claims.Subject,
		ActorRole: claims.Role,
		ActorName: "ID " + claims.IDNumber,
		Action:    domain.AuditAthleteLogout,
		Target:    claims.IDNumber,
	})
}

// RegisterAthlete creates a pre-activation placeholder with no credential.
func (a *Accounts) RegisterAthlete(ctx context.Context, actorID string, req domain.RegisterAthleteRequest) (*domain.Athlete, error) {
	idNumber := strings.TrimSpace(req.IDNumber)
	if err := validateIdentity(idNumber); err != nil {
		return nil, err
	}
	athlete := &domain.Athlete{
		IDNumber:  idNumber,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	}
	if err := a.athletes.CreateAthlete(ctx, athlete); err != nil {
		if errors.Is(err, store.ErrAthleteExists) {
			return nil, ErrAthleteExists
		}
		return nil, fmt.Errorf("create athlete: %w", err)
	}
	log.Printf("level=info component=accounts msg=\"athlete registered\" id_number=%s actor_id=%s", idNumber, actorID)
	a.audit.Record(ctx, domain.AuditEntry{
		ActorID:   actorID,
		ActorRole: domain.RoleAdmin,
		Action:    domain.AuditAthleteRegistered,
		Target:    idNumber,
	})
	return athlete, nil
}

// CompleteOnboarding sets the first PIN and the recovery answers.
func (a *Accounts) CompleteOnboarding(ctx context.Context, req domain.OnboardingRequest) (*domain.Athlete, error) {
	idNumber := strings.TrimSpace(req.IDNumber)
	pin := strings.TrimSpace(req.Pincode)
	if err := validateIdentity(idNumber); err != nil {
		return nil, err
	}
	if err := validatePincodePair("pincode", pin, strings.TrimSpace(req.ConfirmPincode)); err != nil {
		return nil, err
	}
	answers := normalizeSecurityAnswers(req.SecurityAnswers)
	if !answers.Complete() {
		return nil, invalid("securityAnswers", "All five security answers are required.")
	}

	current, err := a.athletes.FindAthleteByIDNumber(ctx, idNumber)
	if err != nil {
		if errors.Is(err, store.ErrAthleteNotFound) {
			return nil, ErrAthleteNotFound
		}
		return nil, fmt.Errorf("find athlete: %w", err)
	}
	if !current.FirstLoginPending && current.HasCredential() {
		return nil, ErrAlreadyOnboarded
	}

	hash, err := a.hasher.Hash(pin)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}
	firstName := strings.TrimSpace(req.FirstName)
	if firstName == "" {
		firstName = current.FirstName
	}
	lastName := strings.TrimSpace(req.LastName)
	if lastName == "" {
		lastName = current.LastName
	}

	athlete, err := a.athletes.CompleteOnboarding(ctx, store.OnboardingParams{
		IDNumber:        idNumber,
		FirstName:       firstName,
		LastName:        lastName,
		CredentialHash:  hash,
		SecurityAnswers: answers,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAthleteNotFound):
			return nil, ErrAthleteNotFound
		case errors.Is(err, store.ErrAthleteNotPending):
			return nil, ErrAlreadyOnboarded
		default:
			return nil, fmt.Errorf("complete onboarding: %w", err)
		}
	}
	log.Printf("level=info component=accounts msg=\"athlete onboarded\" id_number=%s", idNumber)
	a.audit.Record(ctx, athleteActor(athlete, domain.AuditAthleteOnboarded))
	return athlete, nil
}

// Login verifies the PIN and issues an athlete session token.
func (a *Accounts) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	idNumber := strings.TrimSpace(req.IDNumber)
	pin := strings.TrimSpace(req.Pincode)
	if !idNumberPattern.MatchString(idNumber) || !pincodePattern.MatchString(pin) {
		return nil, invalid("credentials", "Invalid credentials format.")
	}

	athlete, err := a.athletes.FindAthleteByIDNumber(ctx, idNumber)
	if err != nil {
		if errors.Is(err, store.ErrAthleteNotFound) {
			return nil, ErrAthleteNotFound
		}
		return nil, fmt.Errorf("find athlete: %w", err)
	}
	if !athlete.HasCredential() {
		return nil, ErrAccountNotActivated
	}
	if !a.hasher.Matches(*athlete.CredentialHash, pin) {
		log.Printf("level=info component=accounts msg=\"login rejected\" id_number=%s", idNumber)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := a.tokens.Issue(athlete.IDNumber, domain.RoleAthlete, athlete.IDNumber)
	if err != nil {
		return nil, err
	}
	entry := athleteActor(athlete, domain.AuditAthleteLogin)
	entry.Details = map[string]any{"route": "/api/auth/athlete/login"}
	a.audit.Record(ctx, entry)

	return &domain.LoginResult{
		Token:      token,
		ExpiresAt:  expiresAt,
		Role:       domain.RoleAthlete,
		FirstName:  athlete.FirstName,
		LastName:   athlete.LastName,
		IDNumber:   athlete.IDNumber,
		FirstLogin: athlete.FirstLoginPending,
	}, nil
}

// ChangePin replaces the PIN after verifying the current one.
func (a *Accounts) ChangePin(ctx context.Context, req domain.ChangePinRequest) error {
	idNumber := strings.TrimSpace(req.IDNumber)
	oldPin := strings.TrimSpace(req.OldPincode)
	newPin := strings.TrimSpace(req.NewPincode)
	if err := validateIdentity(idNumber); err != nil {
		return err
	}
	if !pincodePattern.MatchString(oldPin) || !pincodePattern.MatchString(newPin) {
		return invalid("pincode", "Pincodes must be 4-digit codes.")
	}

	athlete, err := a.athletes.FindAthleteByIDNumber(ctx, idNumber)
	if err != nil {
		if errors.Is(err, store.ErrAthleteNotFound) {
			return ErrAthleteNotFound
		}
		return fmt.Errorf("find athlete: %w", err)
	}
	if !athlete.HasCredential() || !a.hasher.Matches(*athlete.CredentialHash, oldPin) {
		return ErrInvalidCredentials
	}

	hash, err := a.hasher.Hash(newPin)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	updated, err := a.athletes.UpdateCredential(ctx, idNumber, hash)
	if err != nil {
		if errors.Is(err, store.ErrAthleteNotFound) {
			return ErrAthleteNotFound
		}
		return fmt.Errorf("update credential: %w", err)
	}
	a.audit.Record(ctx, athleteActor(updated, domain.AuditPinChanged))
	return nil
}
