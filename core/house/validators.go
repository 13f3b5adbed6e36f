package house

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trackside/carnival/core"
)

var (
	// custom validation tags & texts
	houseTag  = "house"
	houseText = "not a valid house"
)

// InitValidators registers this package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(houseTag, houseValidation)
	core.RegisterCustomTranslation(validate, translator, houseTag, houseText)
}

func houseValidation(fl validator.FieldLevel) bool {
	return IsValid(fl.Field().String())
}
