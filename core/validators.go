package core

import (
	"reflect"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Supported sign languages.
const (
	LanguageASL = "ASL"
	LanguageBSL = "BSL"
)

var (
	// custom validation tags & texts
	signLanguageTag  = "signlang"
	signLanguageText = "{0} must be one of ASL, BSL"

	unitIntervalTag  = "unit"
	unitIntervalText = "{0} must be between 0 and 1"

	requiredTag  = "required"
	requiredText = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(signLanguageTag, signLanguageValidation)
	RegisterCustomTranslation(validate, translator, signLanguageTag, signLanguageText)

	_ = validate.RegisterValidation(unitIntervalTag, unitIntervalValidation)
	RegisterCustomTranslation(validate, translator, unitIntervalTag, unitIntervalText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// TranslateValidationErrors turns validator errors into a *ValidationError keyed by JSON field names.
func TranslateValidationErrors(err error, translator ut.Translator) error {
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		flds = append(flds, FieldError{Field: fe.Field(), Error: fe.Translate(translator)})
	}
	return NewValidationError(vErrs, flds...)
}

// NormalizeLanguage upper-cases lang and defaults it to ASL.
func NormalizeLanguage(lang string) string {
	lang = strings.ToUpper(CleanString(lang))
	if lang == "" {
		return LanguageASL
	}
	return lang
}

// Custom Global Validators

// signLanguageValidation accepts ASL and BSL in any case. Empty values pass; they default to ASL.
func signLanguageValidation(fl validator.FieldLevel) bool {
	switch NormalizeLanguage(fl.Field().String()) {
	case LanguageASL, LanguageBSL:
		return true
	}
	return false
}

// unitIntervalValidation accepts floats in [0, 1]. Nil pointers pass; combine with `required` when needed.
func unitIntervalValidation(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return v >= 0 && v <= 1
}
