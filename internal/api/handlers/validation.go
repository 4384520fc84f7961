package handlers

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/dartlens/backend/internal/contracts"
)

var corpCodeRegex = regexp.MustCompile(`^[0-9]{8}$`)

// NewValidator returns a validator with the insights tags registered
func NewValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("corpcode", CorpCode)
	_ = validate.RegisterValidation("reprt", ReportVariant)
	_ = validate.RegisterValidation("fsdiv", Scope)
	return validate
}

// CorpCode accepts 8-digit DART corp codes
func CorpCode(fl validator.FieldLevel) bool {
	return corpCodeRegex.MatchString(fl.Field().String())
}

// ReportVariant accepts "auto" or a known report code
func ReportVariant(fl validator.FieldLevel) bool {
	_, err := contracts.ParseReportVariant(fl.Field().String())
	return err == nil
}

// Scope accepts CFS or OFS in any case
func Scope(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return true
	}
	_, err := contracts.ParseScope(s)
	return err == nil
}
