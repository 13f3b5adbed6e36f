package race

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trackside/carnival/core"
	"github.com/trackside/carnival/core/house"
)

const runnerCSVColumns = 5 // name, house, age_group, date_of_birth, gender

// ParseRunnersCSV reads the runner bulk-upload format: a header row (ignored)
// followed by comma-separated `name, house, age_group, date_of_birth, gender`
// rows. Embedded commas are not supported. date_of_birth is YYYY-MM-DD and
// may be empty.
func ParseRunnersCSV(r io.Reader) ([]Runner, error) {
	scanner := bufio.NewScanner(r)
	var runners []Runner
	var line int
	for scanner.Scan() {
		line++
		if line == 1 { // header
			continue
		}
		row := strings.TrimSpace(scanner.Text())
		if row == "" {
			continue
		}

		cols := strings.Split(row, ",")
		if len(cols) != runnerCSVColumns {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("line %d", line),
				Error: fmt.Sprintf("expected %d columns, got %d", runnerCSVColumns, len(cols)),
			})
		}
		for i := range cols {
			cols[i] = core.CleanString(cols[i])
		}

		if cols[0] == "" {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("line %d", line),
				Error: "name is required",
			})
		}
		if !house.IsValid(cols[1]) {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("line %d", line),
				Error: fmt.Sprintf("unknown house %q", cols[1]),
			})
		}

		var dob time.Time
		if cols[3] != "" {
			var err error
			if dob, err = time.Parse("2006-01-02", cols[3]); err != nil {
				return nil, core.NewValidationError(nil, core.FieldError{
					Field: fmt.Sprintf("line %d", line),
					Error: fmt.Sprintf("invalid date_of_birth %q", cols[3]),
				})
			}
		}

		runners = append(runners, Runner{
			Name:        cols[0],
			House:       cols[1],
			AgeGroup:    cols[2],
			DateOfBirth: dob,
			Gender:      cols[4],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading runner CSV")
	}
	return runners, nil
}
