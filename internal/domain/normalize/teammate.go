package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/model"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/taxonomy"
)

const (
	teammateSeparator = ";"
	fieldSeparator    = ","
	teammateFields    = 4
)

// DecodeTeammates parses the embedded teammate column: a ";" separated list
// of "name,class,global_role_id,role_id" tuples. Empty segments are skipped
// and class ids are already canonical in the result.
func DecodeTeammates(field string) ([]model.Teammate, error) {
	segments := strings.Split(field, teammateSeparator)
	out := make([]model.Teammate, 0, len(segments))
	for i, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		parts := strings.Split(seg, fieldSeparator)
		if len(parts) != teammateFields {
			return nil, fmt.Errorf("%w: entry %d has %d fields", ErrParse, i, len(parts))
		}
		class, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d class %q", ErrParse, i, parts[1])
		}
		out = append(out, model.Teammate{
			Name:         parts[0],
			ClassID:      taxonomy.Canonical(class),
			GlobalRoleID: strings.TrimSpace(parts[2]),
			RoleID:       strings.TrimSpace(parts[3]),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrParse)
	}
	return out, nil
}
