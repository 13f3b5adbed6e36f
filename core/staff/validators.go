package staff

import (
	"github.com/go-playground/validator/v10"

	"github.com/trackside/carnival/core"
)

func (ns *NewStaff) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Username = core.CleanString(ns.Username, true /* lower */)
	return validate.Struct(ns)
}

func (cp *ChangePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(cp)
}
