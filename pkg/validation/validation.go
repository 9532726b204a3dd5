// Package validation applies struct-tag validation to the configuration
// surfaces callers feed into dupefind before a store is built from them,
// so a malformed threshold or descriptor fails fast with a field-level
// message instead of surfacing later as a planner or tokenizer error.
package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dupefind/dupefind/pkg/dferr"
	"github.com/dupefind/dupefind/pkg/tokenize"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("dupefind_descriptor", validateDescriptor)
}

// validateDescriptor defers to the tokenizer grammar itself rather than
// duplicating its regex here.
func validateDescriptor(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || s == tokenize.CustomDescriptor {
		return true
	}
	_, err := tokenize.Parse(s)
	return err == nil
}

// StoreParams is the validated subset of fields a caller supplies when
// building or configuring a similarity store: error bounds, threshold,
// and tokenizer descriptor.
type StoreParams struct {
	Threshold float64 `validate:"gte=0,lte=1"`
	MaxFN     float64 `validate:"gte=0,lte=1"`
	MaxFP     float64 `validate:"gte=0,lte=1"`
	// Descriptor may be empty, meaning "use the store's default tokenizer".
	Descriptor string `validate:"omitempty,dupefind_descriptor"`
}

// ValidateStoreParams checks threshold/bound ranges and descriptor syntax,
// returning an InvalidInput error naming the first offending field.
func ValidateStoreParams(p StoreParams) error {
	if err := validate.Struct(p); err != nil {
		return dferr.New(dferr.InvalidInput, "validation", "ValidateStoreParams", describe(err))
	}
	return nil
}

// TopNParams validates the n argument to Store.TopN.
type TopNParams struct {
	N int `validate:"gt=0"`
}

// ValidateTopN checks that n is a positive result count.
func ValidateTopN(n int) error {
	if err := validate.Struct(TopNParams{N: n}); err != nil {
		return dferr.New(dferr.InvalidInput, "validation", "ValidateTopN", describe(err))
	}
	return nil
}

// PlannerBounds validates the planner's own (tau, maxFN, maxFP) inputs,
// which are stricter than storage params: tau must be in the open unit
// interval since both 0 and 1 make the banding search degenerate.
type PlannerBounds struct {
	Tau   float64 `validate:"gt=0,lt=1"`
	MaxFN float64 `validate:"gte=0,lte=1"`
	MaxFP float64 `validate:"gte=0,lte=1"`
}

// ValidatePlannerBounds checks the planner's similarity threshold and
// error-rate bounds before a search is attempted.
func ValidatePlannerBounds(tau, maxFN, maxFP float64) error {
	b := PlannerBounds{Tau: tau, MaxFN: maxFN, MaxFP: maxFP}
	if err := validate.Struct(b); err != nil {
		return dferr.New(dferr.InvalidInput, "validation", "ValidatePlannerBounds", describe(err))
	}
	return nil
}

// describe flattens a validator.ValidationErrors into a single compact
// message, since dferr.Error wraps one cause, not a list.
func describe(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return messageError(strings.Join(parts, "; "))
}

type messageError string

func (e messageError) Error() string { return string(e) }
