package synth

import (
	"context"
	"crypto/md5" //nolint:gosec // fingerprint column, not a security boundary
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/taxonomy"
	"github.com/JX3BOX/analysis-dungeon-rank/pkg/logger"
	"github.com/google/uuid"
)

// Columns is the header written by the generator, matching the upstream
// export.
var Columns = []string{
	"guid", "server", "role", "leader", "teammate", "teammate_md5", "achieve_id",
	"finish_time", "start_time", "fight_time", "damage", "dps", "therapy", "hps",
	"body_type", "is_leader", "uid", "team_id", "status", "verified", "battleId", "mount",
}

// Generator writes synthetic participant rows.
type Generator struct {
	cfg   Config
	tax   *taxonomy.Taxonomy
	rng   *rand.Rand
	pools map[taxonomy.RoleGroup][]int
	// bias is a per class performance multiplier so class rankings differ.
	bias map[int]float64
}

// NewGenerator creates a Generator drawing classes from tax.
func NewGenerator(cfg Config, tax *taxonomy.Taxonomy) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{
		cfg:   cfg,
		tax:   tax,
		rng:   rand.New(rand.NewSource(cfg.Seed)), //nolint:gosec // deterministic test data
		pools: make(map[taxonomy.RoleGroup][]int, len(taxonomy.RoleGroups)),
		bias:  make(map[int]float64),
	}
	for _, grp := range taxonomy.RoleGroups {
		classes := tax.Classes(grp)
		if len(classes) == 0 {
			return nil, fmt.Errorf("%w: role group %s has no classes", ErrInvalidConfig, grp)
		}
		g.pools[grp] = classes
		for _, c := range classes {
			g.bias[c] = 1 + classSpread*(2*g.rng.Float64()-1)
		}
	}
	return g, nil
}

type member struct {
	name         string
	class        int
	globalRoleID string
	roleID       string
	uid          string
}

// Generate writes a header and cfg.Teams teams of rows to w.
func (g *Generator) Generate(ctx context.Context, w io.Writer) (Stats, error) {
	start := time.Now()
	var stats Stats
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return stats, fmt.Errorf("write header: %w", err)
	}

	for t := 0; t < g.cfg.Teams; t++ {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("context cancelled during generation: %w", err)
		}
		rows, rejected, malformed := g.team()
		for _, row := range rows {
			if err := cw.Write(row); err != nil {
				return stats, fmt.Errorf("write team %d: %w", t, err)
			}
		}
		stats.Teams++
		stats.Rows += len(rows)
		stats.Malformed += malformed
		if rejected {
			stats.Rejected++
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return stats, fmt.Errorf("flush: %w", err)
	}
	stats.Duration = time.Since(start)
	return stats, nil
}

// GenerateFile writes a data set to path.
func GenerateFile(ctx context.Context, cfg Config, tax *taxonomy.Taxonomy, path string) (Stats, error) {
	g, err := NewGenerator(cfg, tax)
	if err != nil {
		return Stats{}, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to create output file: %w", err)
	}
	stats, err := g.Generate(ctx, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close output file: %w", closeErr)
	}
	if err != nil {
		return stats, err
	}
	logger.Get().Info(ctx, "generated synthetic data set",
		logger.String("path", path),
		logger.Int("teams", stats.Teams),
		logger.Int("rows", stats.Rows),
		logger.Int("rejected", stats.Rejected),
		logger.Int("malformed", stats.Malformed),
		logger.String("duration", stats.Duration.String()))
	return stats, nil
}

// team returns the rows of one clear.
func (g *Generator) team() (rows [][]string, rejected bool, malformed int) {
	teamID, _ := uuid.NewRandomFromReader(g.rng)
	battleID, _ := uuid.NewRandomFromReader(g.rng)
	boss := g.cfg.Bosses[g.rng.Intn(len(g.cfg.Bosses))]
	server := g.cfg.Servers[g.rng.Intn(len(g.cfg.Servers))]
	fight := math.Max(minFightTime, fightTimeMean+fightTimeStdDev*g.rng.NormFloat64())
	finish := int64(baseFinishTime + g.rng.Intn(finishSpread))
	startTime := finish - int64(fight)
	rejected = g.rng.Float64() < g.cfg.RejectRate

	members := g.members()
	tuples := make([]string, len(members))
	for i, m := range members {
		tuples[i] = strings.Join([]string{m.name, g.legacyAlias(m.class), m.globalRoleID, m.roleID}, ",")
	}
	teammate := strings.Join(tuples, ";")
	sum := md5.Sum([]byte(teammate)) //nolint:gosec // fingerprint only
	fingerprint := hex.EncodeToString(sum[:])

	status := "1"
	if rejected {
		status = "0"
	}
	for i, m := range members {
		damage, dps, therapy, hps := g.performance(m.class, fight)
		tm := teammate
		dpsCol := formatFloat(dps)
		if g.rng.Float64() < g.cfg.MalformedRate {
			malformed++
			if g.rng.Intn(2) == 0 {
				tm = strings.ReplaceAll(teammate, ",", "|")
			} else {
				dpsCol = "n/a"
			}
		}
		guid, _ := uuid.NewRandomFromReader(g.rng)
		isLeader := "0"
		if i == 0 {
			isLeader = "1"
		}
		rows = append(rows, []string{
			guid.String(),
			server,
			m.roleID,
			members[0].name,
			tm,
			fingerprint,
			strconv.Itoa(boss),
			strconv.FormatInt(finish, 10),
			strconv.FormatInt(startTime, 10),
			formatFloat(fight),
			formatFloat(damage),
			dpsCol,
			formatFloat(therapy),
			formatFloat(hps),
			strconv.Itoa(1 + g.rng.Intn(4)),
			isLeader,
			m.uid,
			teamID.String(),
			status,
			"1",
			battleID.String(),
			g.legacyAlias(m.class),
		})
	}
	return rows, rejected, malformed
}

// members picks a team: tanks and healers first, the rest damage dealers.
func (g *Generator) members() []member {
	size := g.cfg.TeamSize
	tanks, heals := 1, 1
	if size >= raidSize {
		tanks, heals = 2, size/5
	}
	out := make([]member, 0, size)
	for i := 0; i < size; i++ {
		var grp taxonomy.RoleGroup
		switch {
		case i < tanks:
			grp = taxonomy.Tank
		case i < tanks+heals:
			grp = taxonomy.Heal
		default:
			grp = taxonomy.DPS[g.rng.Intn(len(taxonomy.DPS))]
		}
		pool := g.pools[grp]
		id := 100000 + g.rng.Intn(900000)
		out = append(out, member{
			name:         fmt.Sprintf("player%d", id),
			class:        pool[g.rng.Intn(len(pool))],
			globalRoleID: strconv.Itoa(id * 7),
			roleID:       strconv.Itoa(id),
			uid:          strconv.Itoa(id * 3),
		})
	}
	return out
}

// performance draws the metric columns of one member. Damage dealers do
// not heal and healers report a small dps.
func (g *Generator) performance(class int, fight float64) (damage, dps, therapy, hps float64) {
	bias := g.bias[class]
	gain := 1.0
	if g.rng.Float64() < outlierRate {
		gain = outlierGain
	}
	role, _ := g.tax.Role(class)
	switch role {
	case taxonomy.Heal:
		hps = math.Max(1, bias*gain*(hpsMean+hpsStdDev*g.rng.NormFloat64()))
		therapy = hps * fight
		dps = math.Max(0, 0.05*dpsMean*g.rng.Float64())
	case taxonomy.Tank:
		dps = math.Max(1, 0.4*bias*(dpsMean+dpsStdDev*g.rng.NormFloat64()))
	default:
		dps = math.Max(1, bias*gain*(dpsMean+dpsStdDev*g.rng.NormFloat64()))
	}
	damage = dps * fight
	return damage, dps, therapy, hps
}

// legacyAlias writes some canonical ids in their legacy form.
func (g *Generator) legacyAlias(class int) string {
	if class == taxonomy.CanonicalClassID && g.rng.Intn(2) == 0 {
		return strconv.Itoa(taxonomy.LegacyClassID)
	}
	return strconv.Itoa(class)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
