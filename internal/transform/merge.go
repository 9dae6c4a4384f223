package transform

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/shipkr/shipdata/internal/jsondoc"
)

const (
	// barrageMarker identifies the "all out assault" skills that come in
	// phase I / phase II pairs.
	barrageMarker = "전탄발사"

	mergedDescFormat = "주포로 %s/%s회 공격할때마다 특수 탄막 발사"
)

var (
	nameCodeToken = regexp.MustCompile(`\{namecode:(\d+)\}`)

	markerPrefix  = regexp.MustCompile(barrageMarker + `[\s-]*`)
	numeralSuffix = regexp.MustCompile(`[\s-]*I[IV]*$`)
	phaseSuffix   = regexp.MustCompile(`(I[IV]*)\s*$`)
	phaseOneTail  = regexp.MustCompile(`I\s*$`)
	repeatCount   = regexp.MustCompile(`(\d+)회`)
)

type MergeStats struct {
	Substituted int      // descriptions rewritten by name-code lookup
	Merged      int      // phase I/II pairs folded into one record
	Ambiguous   []string // groups left alone because a phase had several candidates
}

// PostProcessSkills resolves {namecode:N} tokens in every description and
// then folds barrage skill pairs together. The skills table is modified in
// place; the returned table is the final assembly.
func PostProcessSkills(nameCodes, skills *jsondoc.Table) (*jsondoc.Table, MergeStats, error) {
	var stats MergeStats
	n, err := SubstituteNameCodes(nameCodes, skills)
	if err != nil {
		return nil, stats, err
	}
	out, stats, err := MergeBarrageSkills(skills)
	stats.Substituted = n
	return out, stats, err
}

// SubstituteNameCodes replaces each distinct {namecode:N} token whose code
// has a name in nameCodes. Unknown codes stay as written. It returns the
// number of descriptions changed.
func SubstituteNameCodes(nameCodes, skills *jsondoc.Table) (int, error) {
	names := make(map[string]string, nameCodes.Len())
	nameCodes.Each(func(code string, r jsondoc.Record) error {
		if n := r.Get("name"); n.Exists() {
			names[code] = n.String()
		}
		return nil
	})

	changed := 0
	err := skills.Update(func(id string, skill jsondoc.Record) (jsondoc.Record, error) {
		desc := skill.Get("desc")
		if desc.Type != gjson.String {
			return skill, nil
		}
		text := desc.String()
		out := text
		seen := make(map[string]bool)
		for _, m := range nameCodeToken.FindAllStringSubmatch(text, -1) {
			code := m[1]
			if seen[code] {
				continue
			}
			seen[code] = true
			if name, ok := names[code]; ok {
				out = strings.ReplaceAll(out, m[0], name)
			}
		}
		if out == text {
			return skill, nil
		}
		changed++
		skill, err := skill.Set("desc", out)
		if err != nil {
			return skill, fmt.Errorf("skill %s: %w", id, err)
		}
		return skill, nil
	})
	return changed, err
}

type barrageSkill struct {
	key  string
	name string
	rec  jsondoc.Record
}

// id is the skill's own id field, falling back to its table key.
func (s barrageSkill) id() string {
	if v := s.rec.Get("id"); v.Exists() {
		return jsondoc.Scalar(v)
	}
	return s.key
}

type barrageGroup struct {
	one, two []barrageSkill
}

// MergeBarrageSkills groups barrage skills by base name and replaces each
// group holding exactly one phase I and one phase II skill, both with a
// repeat count in their description, by a single "I/II" record keyed by the
// phase I id. Merged records follow the surviving ones, in group order.
func MergeBarrageSkills(skills *jsondoc.Table) (*jsondoc.Table, MergeStats, error) {
	var stats MergeStats
	groups := orderedmap.New[string, *barrageGroup]()
	skills.Each(func(key string, r jsondoc.Record) error {
		name := norm.NFC.String(r.Get("name").String())
		if !strings.Contains(name, barrageMarker) {
			return nil
		}
		base := baseName(name)
		g, ok := groups.Get(base)
		if !ok {
			g = &barrageGroup{}
			groups.Set(base, g)
		}
		s := barrageSkill{key: key, name: name, rec: r}
		switch phaseOf(name) {
		case "I":
			g.one = append(g.one, s)
		case "II":
			g.two = append(g.two, s)
		}
		return nil
	})

	removed := make(map[string]bool)
	merged := jsondoc.NewTable()
	for p := groups.Oldest(); p != nil; p = p.Next() {
		g := p.Value
		if len(g.one) > 1 || len(g.two) > 1 {
			stats.Ambiguous = append(stats.Ambiguous, p.Key)
			continue
		}
		if len(g.one) == 0 || len(g.two) == 0 {
			continue
		}
		one, two := g.one[0], g.two[0]
		c1 := repeatCount.FindStringSubmatch(one.rec.Get("desc").String())
		c2 := repeatCount.FindStringSubmatch(two.rec.Get("desc").String())
		if c1 == nil || c2 == nil {
			continue
		}
		rec, err := mergedRecord(one, c1[1], c2[1])
		if err != nil {
			return nil, stats, fmt.Errorf("merge %q: %w", p.Key, err)
		}
		removed[one.key] = true
		removed[two.key] = true
		merged.Set(one.id(), rec)
		stats.Merged++
	}

	out := jsondoc.NewTable()
	skills.Each(func(key string, r jsondoc.Record) error {
		if !removed[key] {
			out.Set(key, r)
		}
		return nil
	})
	merged.Each(func(key string, r jsondoc.Record) error {
		out.Set(key, r)
		return nil
	})
	return out, stats, nil
}

// baseName strips the marker and the trailing roman numeral, so that
// "전탄발사 - 세레스급I" and "전탄발사 - 세레스급II" share "세레스급".
func baseName(name string) string {
	base := markerPrefix.ReplaceAllString(name, "")
	base = numeralSuffix.ReplaceAllString(base, "")
	return strings.TrimSpace(base)
}

func phaseOf(name string) string {
	m := phaseSuffix.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

type mergedSkill struct {
	ID       jsondoc.Record `json:"id"`
	Name     string         `json:"name"`
	Desc     string         `json:"desc"`
	Type     jsondoc.Record `json:"type"`
	MaxLevel int            `json:"max_level"`
	NameCode jsondoc.Record `json:"namecode"`
}

func mergedRecord(one barrageSkill, count1, count2 string) (jsondoc.Record, error) {
	id := jsondoc.Record(one.rec.Get("id").Raw)
	if len(id) == 0 {
		raw, err := jsondoc.Marshal(one.key)
		if err != nil {
			return nil, err
		}
		id = raw
	}
	m := mergedSkill{
		ID:       id,
		Name:     strings.TrimSpace(phaseOneTail.ReplaceAllString(one.name, "I/II")),
		Desc:     fmt.Sprintf(mergedDescFormat, count1, count2),
		Type:     jsondoc.Record(one.rec.Get("type").Raw),
		MaxLevel: 1,
		NameCode: jsondoc.Record(one.rec.Get("namecode").Raw),
	}
	raw, err := jsondoc.Marshal(m)
	if err != nil {
		return nil, err
	}
	return jsondoc.Record(raw), nil
}
