package app

import (
	"regexp"
	"strings"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
)

// \d is ASCII-only in RE2.
var (
	idNumberPattern     = regexp.MustCompile(`^\d{6}$`)
	pincodePattern      = regexp.MustCompile(`^\d{4}$`)
	adminPincodePattern = regexp.MustCompile(`^\d{6}$`)
)

// normalizeAnswer trims, collapses internal whitespace runs to one space and lowercases.
func normalizeAnswer(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

func normalizeSecurityAnswers(in domain.SecurityAnswers) domain.SecurityAnswers {
	label := strings.TrimSpace(in.ExtraQuestionLabel)
	if label == "" {
		label = domain.DefaultExtraQuestionLabel
	}
	return domain.SecurityAnswers{
		FullName:           normalizeAnswer(in.FullName),
		FirstName:          normalizeAnswer(in.FirstName),
		LastName:           normalizeAnswer(in.LastName),
		FavoriteLunchFood:  normalizeAnswer(in.FavoriteLunchFood),
		ExtraAnswer:        normalizeAnswer(in.ExtraAnswer),
		ExtraQuestionLabel: label,
	}
}

func validateIdentity(idNumber string) error {
	if !idNumberPattern.MatchString(idNumber) {
		return invalid("idNumber", "ID number must be exactly 6 digits.")
	}
	return nil
}

func validatePincodePair(field, pin, confirm string) error {
	if !pincodePattern.MatchString(pin) {
		return invalid(field, "PIN must be exactly 4 digits.")
	}
	if pin != confirm {
		return invalid("confirmPincode", "PIN confirmation does not match.")
	}
	return nil
}
