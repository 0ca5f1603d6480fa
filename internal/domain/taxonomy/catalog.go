package taxonomy

import (
	"context"
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.yaml
var defaults embed.FS

const (
	defaultSchool     = "defaults/school.yaml"
	defaultMountGroup = "defaults/mount_group.yaml"
)

// groupAliases accepts canonical names and the upstream catalog labels.
var groupAliases = map[string]RoleGroup{
	"heal":         Heal,
	"tank":         Tank,
	"external-dps": ExternalDPS,
	"internal-dps": InternalDPS,
	"治疗":           Heal,
	"坦克":           Tank,
	"外攻":           ExternalDPS,
	"内攻":           InternalDPS,
}

// school is one entry of the school catalog. Unknown keys are ignored so the
// upstream JSON files load unchanged.
type school struct {
	ForceID int   `yaml:"force_id"`
	Mounts  []int `yaml:"mounts"`
}

type mountGroupCatalog struct {
	MountGroup map[string][]int `yaml:"mount_group"`
}

// Load reads both catalogs. An empty path selects the embedded default.
func Load(_ context.Context, schoolPath, mountGroupPath string) (*Taxonomy, error) {
	schoolData, err := readCatalog(schoolPath, defaultSchool)
	if err != nil {
		return nil, err
	}
	groupData, err := readCatalog(mountGroupPath, defaultMountGroup)
	if err != nil {
		return nil, err
	}
	return Parse(schoolData, groupData)
}

// Default returns the embedded catalogs.
func Default() (*Taxonomy, error) {
	return Load(context.Background(), "", "")
}

func readCatalog(path, fallback string) ([]byte, error) {
	if path == "" {
		data, err := defaults.ReadFile(fallback)
		if err != nil {
			return nil, fmt.Errorf("%w: embedded %s: %w", ErrConfig, fallback, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return data, nil
}

// Parse builds a Taxonomy from a school catalog and a mount group catalog,
// each in YAML or JSON.
func Parse(schoolData, mountGroupData []byte) (*Taxonomy, error) {
	t := &Taxonomy{
		force:  make(map[int]int),
		role:   make(map[int]RoleGroup),
		groups: make(map[RoleGroup][]int),
	}
	if err := t.parseSchools(schoolData); err != nil {
		return nil, err
	}
	if err := t.parseGroups(mountGroupData); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Taxonomy) parseSchools(data []byte) error {
	var schools map[string]school
	if err := yaml.Unmarshal(data, &schools); err != nil {
		return fmt.Errorf("%w: school catalog: %w", ErrConfig, err)
	}
	if len(schools) == 0 {
		return fmt.Errorf("%w: school catalog is empty", ErrConfig)
	}

	// Sorted so a conflict always reports the same pair.
	names := make([]string, 0, len(schools))
	for name := range schools {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := schools[name]
		for _, class := range s.Mounts {
			class = Canonical(class)
			if prev, ok := t.force[class]; ok && prev != s.ForceID {
				return fmt.Errorf("%w: school catalog: class %d belongs to forces %d and %d", ErrConfig, class, prev, s.ForceID)
			}
			t.force[class] = s.ForceID
		}
	}
	return nil
}

func (t *Taxonomy) parseGroups(data []byte) error {
	var catalog mountGroupCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("%w: mount group catalog: %w", ErrConfig, err)
	}
	if len(catalog.MountGroup) == 0 {
		return fmt.Errorf("%w: mount group catalog has no mount_group entries", ErrConfig)
	}

	names := make([]string, 0, len(catalog.MountGroup))
	for name := range catalog.MountGroup {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		classes := catalog.MountGroup[name]
		group, ok := groupAliases[strings.TrimSpace(name)]
		if !ok {
			return fmt.Errorf("%w: mount group catalog: unknown role group %q", ErrConfig, name)
		}
		for _, class := range classes {
			class = Canonical(class)
			if prev, ok := t.role[class]; ok {
				if prev == group {
					continue
				}
				return fmt.Errorf("%w: mount group catalog: class %d is in %s and %s", ErrConfig, class, prev, group)
			}
			t.role[class] = group
			t.groups[group] = append(t.groups[group], class)
		}
	}
	return nil
}
