package race

import (
	"github.com/go-playground/validator/v10"

	"github.com/trackside/carnival/core"
)

func (nr *NewRace) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	return validate.Struct(nr)
}

func (rf *RecordFinish) Validate(validate *validator.Validate) error {
	rf.RunnerID = core.CleanString(rf.RunnerID)
	return validate.Struct(rf)
}
