package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
)

func onboardingRequest() domain.OnboardingRequest {
	return domain.OnboardingRequest{
		IDNumber:       testIDNumber,
		Pincode:        "4321",
		ConfirmPincode: "4321",
		FirstName:      "Jane",
		LastName:       "Doe",
		SecurityAnswers: domain.SecurityAnswers{
			FullName:          "  Jane   Doe ",
			FirstName:         "Jane",
			LastName:          "DOE",
			FavoriteLunchFood: "Chicken Adobo",
			ExtraAnswer:       "Protein Shake",
		},
	}
}

func newAccountsFixture(athletes ...*domain.Athlete) (*Accounts, *athleteRepoStub, *auditRepoStub) {
	repo := newAthleteRepoStub(athletes...)
	auditRepo := &auditRepoStub{}
	return NewAccounts(newAdminRepoStub(), repo, plainHasher{}, NewTokenIssuer("test-secret", time.Hour), NewAuditor(auditRepo)), repo, auditRepo
}

func TestRegisterAthlete(t *testing.T) {
	accounts, repo, auditRepo := newAccountsFixture()

	athlete, err := accounts.RegisterAthlete(context.Background(), "admin-1", domain.RegisterAthleteRequest{IDNumber: " 123456 ", FirstName: "Jane ", LastName: " Doe"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if athlete.HasCredential() || !athlete.FirstLoginPending {
		t.Fatalf("expected pre-activation placeholder, got %+v", athlete)
	}
	if stored := repo.get(testIDNumber); stored == nil || stored.FirstName != "Jane" {
		t.Fatalf("expected stored athlete, got %+v", stored)
	}
	if !containsString(auditRepo.actions(), domain.AuditAthleteRegistered) {
		t.Fatal("expected registration audit entry")
	}

	if _, err := accounts.RegisterAthlete(context.Background(), "admin-1", domain.RegisterAthleteRequest{IDNumber: testIDNumber}); !errors.Is(err, ErrAthleteExists) {
		t.Fatalf("expected ErrAthleteExists, got %v", err)
	}
	if _, err := accounts.RegisterAthlete(context.Background(), "admin-1", domain.RegisterAthleteRequest{IDNumber: "12-456"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCompleteOnboarding_StoresNormalizedAnswers(t *testing.T) {
	accounts, repo, _ := newAccountsFixture(&domain.Athlete{IDNumber: testIDNumber, FirstLoginPending: true})

	athlete, err := accounts.CompleteOnboarding(context.Background(), onboardingRequest())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if athlete.FirstLoginPending || !athlete.HasCredential() {
		t.Fatalf("expected activated athlete, got %+v", athlete)
	}
	answers := repo.get(testIDNumber).SecurityAnswers
	if answers.FullName != "jane doe" || answers.LastName != "doe" || answers.FavoriteLunchFood != "chicken adobo" {
		t.Fatalf("expected normalized answers, got %+v", answers)
	}
	if answers.ExtraQuestionLabel != domain.DefaultExtraQuestionLabel {
		t.Fatalf("expected default extra label, got %q", answers.ExtraQuestionLabel)
	}

	if _, err := accounts.CompleteOnboarding(context.Background(), onboardingRequest()); !errors.Is(err, ErrAlreadyOnboarded) {
		t.Fatalf("expected ErrAlreadyOnboarded on second onboarding, got %v", err)
	}
}

func TestCompleteOnboarding_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *domain.OnboardingRequest)
		field  string
	}{
		{name: "pin format", mutate: func(r *domain.OnboardingRequest) { r.Pincode, r.ConfirmPincode = "12345", "12345" }, field: "pincode"},
		{name: "pin confirmation", mutate: func(r *domain.OnboardingRequest) { r.ConfirmPincode = "0000" }, field: "confirmPincode"},
		{name: "missing answer", mutate: func(r *domain.OnboardingRequest) { r.SecurityAnswers.ExtraAnswer = "   " }, field: "securityAnswers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts, _, _ := newAccountsFixture(&domain.Athlete{IDNumber: testIDNumber, FirstLoginPending: true})
			req := onboardingRequest()
			tt.mutate(&req)

			_, err := accounts.CompleteOnboarding(context.Background(), req)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) || validationErr.Field != tt.field {
				t.Fatalf("expected %s validation error, got %v", tt.field, err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	pending := &domain.Athlete{IDNumber: "111111", FirstLoginPending: true}
	accounts, _, auditRepo := newAccountsFixture(onboardedAthlete(0, false), pending)

	result, err := accounts.Login(context.Background(), domain.LoginRequest{IDNumber: testIDNumber, Pincode: "1111"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	claims, err := accounts.tokens.Parse(result.Token)
	if err != nil {
		t.Fatalf("expected issued token to parse, got %v", err)
	}
	if claims.Subject != testIDNumber || claims.Role != domain.RoleAthlete {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if !containsString(auditRepo.actions(), domain.AuditAthleteLogin) {
		t.Fatal("expected login audit entry")
	}

	cases := []struct {
		req  domain.LoginRequest
		want error
	}{
		{req: domain.LoginRequest{IDNumber: testIDNumber, Pincode: "9999"}, want: ErrInvalidCredentials},
		{req: domain.LoginRequest{IDNumber: "111111", Pincode: "1111"}, want: ErrAccountNotActivated},
		{req: domain.LoginRequest{IDNumber: "999999", Pincode: "1111"}, want: ErrAthleteNotFound},
		{req: domain.LoginRequest{IDNumber: "1234", Pincode: "1111"}, want: ErrValidation},
	}
	for _, c := range cases {
		if _, err := accounts.Login(context.Background(), c.req); !errors.Is(err, c.want) {
			t.Fatalf("login %+v: expected %v, got %v", c.req, c.want, err)
		}
	}
}

func TestChangePin(t *testing.T) {
	accounts, repo, _ := newAccountsFixture(onboardedAthlete(0, false))

	if err := accounts.ChangePin(context.Background(), domain.ChangePinRequest{IDNumber: testIDNumber, OldPincode: "0000", NewPincode: "2468"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong old pin, got %v", err)
	}
	if err := accounts.ChangePin(context.Background(), domain.ChangePinRequest{IDNumber: testIDNumber, OldPincode: "1111", NewPincode: "2468"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if *repo.get(testIDNumber).CredentialHash != "plain:2468" {
		t.Fatal("expected credential to be replaced")
	}
}

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(4)
	hash, err := hasher.Hash("1234")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !hasher.Matches(hash, "1234") || hasher.Matches(hash, "4321") || hasher.Matches("", "1234") {
		t.Fatal("unexpected bcrypt comparison result")
	}
	if NewBcryptHasher(99).cost != 10 {
		t.Fatal("expected out-of-range cost to fall back to the default")
	}
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", time.Minute)
	token, _, err := issuer.Issue("admin-1", domain.RoleAdmin, "")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if claims, err := issuer.Parse(token); err != nil || claims.Role != domain.RoleAdmin {
		t.Fatalf("expected admin claims, got %+v err=%v", claims, err)
	}
	if _, err := NewTokenIssuer("secret-b", time.Minute).Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature mismatch to fail, got %v", err)
	}

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := issuer.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestAdminLogin(t *testing.T) {
	accounts, _, auditRepo := newAccountsFixture()
	created, err := accounts.BootstrapAdmin(context.Background(), " 111111 ", "R7@Example.com ", "pass123")
	if err != nil || !created {
		t.Fatalf("expected bootstrap admin to be created, got created=%t err=%v", created, err)
	}

	result, err := accounts.AdminLogin(context.Background(), domain.AdminLoginRequest{Pincode: "111111", Password: "pass123", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	claims, err := accounts.tokens.Parse(result.Token)
	if err != nil {
		t.Fatalf("expected issued token to parse, got %v", err)
	}
	if claims.Role != domain.RoleAdmin || result.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got claims=%+v result=%+v", claims, result)
	}
	if !containsString(auditRepo.actions(), domain.AuditAdminLogin) {
		t.Fatal("expected admin login audit entry")
	}

	cases := []struct {
		req  domain.AdminLoginRequest
		want error
	}{
		{req: domain.AdminLoginRequest{Pincode: "111111", Password: "wrong"}, want: ErrInvalidCredentials},
		{req: domain.AdminLoginRequest{Pincode: "222222", Password: "pass123"}, want: ErrAdminNotFound},
		{req: domain.AdminLoginRequest{Pincode: "1111", Password: "pass123"}, want: ErrValidation},
		{req: domain.AdminLoginRequest{Pincode: "111111", Password: ""}, want: ErrValidation},
		{req: domain.AdminLoginRequest{Pincode: "111111", Password: "pass123", Role: domain.RoleAthlete}, want: ErrValidation},
	}
	for _, c := range cases {
		if _, err := accounts.AdminLogin(context.Background(), c.req); !errors.Is(err, c.want) {
			t.Fatalf("admin login %+v: expected %v, got %v", c.req, c.want, err)
		}
	}
}

func TestBootstrapAdmin_ExistingAdminIsKept(t *testing.T) {
	accounts, _, _ := newAccountsFixture()
	if _, err := accounts.BootstrapAdmin(context.Background(), "111111", "r7@example.com", "first"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	created, err := accounts.BootstrapAdmin(context.Background(), "111111", "r7@example.com", "second")
	if err != nil || created {
		t.Fatalf("expected existing admin to be left alone, got created=%t err=%v", created, err)
	}
	if _, err := accounts.AdminLogin(context.Background(), domain.AdminLoginRequest{Pincode: "111111", Password: "first"}); err != nil {
		t.Fatalf("expected original password to keep working, got %v", err)
	}

	if _, err := accounts.BootstrapAdmin(context.Background(), "12ab56", "x@example.com", "pw"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for bad pincode, got %v", err)
	}
}

func TestLogoutRecordsAudit(t *testing.T) {
	accounts, _, auditRepo := newAccountsFixture()
	accounts.Logout(context.Background(), &SessionClaims{Role: domain.RoleAthlete, IDNumber: testIDNumber})

	if !containsString(auditRepo.actions(), domain.AuditAthleteLogout) {
		t.Fatalf("expected logout audit entry, got %v", auditRepo.actions())
	}
}
