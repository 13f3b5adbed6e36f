package sqlxrepos

import (
	"strings"

	"github.com/trackside/carnival/core"
)

func orderingList(ordering []core.DBOrdering) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return strings.Join(parts, ", ")
}
