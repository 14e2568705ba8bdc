package zone

import (
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/geo-pricing/internal/model"
)

// ValidationTag is the struct tag name checked by ValidateField.
const ValidationTag = "zone"

// ValidateField is a validator.Func accepting only the eight zone ids.
func ValidateField(fl validator.FieldLevel) bool {
	return IsValidZone(model.ZoneID(fl.Field().String()))
}
