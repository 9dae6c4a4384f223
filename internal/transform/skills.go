package transform

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/shipkr/shipdata/internal/jsondoc"
)

// ErrContract marks input that breaks what a transformation requires of it,
// such as a $N placeholder with no desc_add entry behind it.
var ErrContract = errors.New("input contract violated")

// Highest $N placeholder expanded in a skill description.
const maxPlaceholder = 7

// workingFields only feed the range expansion and are dropped afterwards.
var workingFields = []string{
	"desc_add",
	"desc_get_add",
	"desc_get",
	"system_transform",
	"world_death_mark",
}

type FilterOptions struct {
	// LenientFields drops only the working fields that are present instead
	// of rejecting a skill that lacks one of them.
	LenientFields bool
}

type FilterStats struct {
	Skills       int
	Kept         int
	Placeholders int
}

// FilterSkills keeps the skills that have an icon, expands their $1..$7
// placeholders into "(first ~ last)" ranges taken from desc_add and strips
// the working fields. The result is a new table in skill-table order.
func FilterSkills(icons, skills *jsondoc.Table, opts FilterOptions) (*jsondoc.Table, FilterStats, error) {
	out := jsondoc.NewTable()
	stats := FilterStats{Skills: skills.Len()}
	err := skills.Each(func(id string, skill jsondoc.Record) error {
		if !icons.Has(id) {
			return nil
		}
		skill, n, err := expandRanges(skill)
		if err != nil {
			return fmt.Errorf("skill %s: %w", id, err)
		}
		if skill, err = dropWorkingFields(skill, opts.LenientFields); err != nil {
			return fmt.Errorf("skill %s: %w", id, err)
		}
		stats.Placeholders += n
		out.Set(id, skill)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	stats.Kept = out.Len()
	return out, stats, nil
}

// expandRanges substitutes $1..$7 in ascending order. Each token that occurs
// is replaced once, everywhere it appears.
func expandRanges(skill jsondoc.Record) (jsondoc.Record, int, error) {
	desc := skill.Get("desc")
	if desc.Type != gjson.String {
		return skill, 0, nil
	}
	text := desc.String()
	adds := skill.Get("desc_add")

	replaced := 0
	for n := 1; n <= maxPlaceholder; n++ {
		token := "$" + strconv.Itoa(n)
		if !strings.Contains(text, token) {
			continue
		}
		r, err := placeholderRange(adds, n-1)
		if err != nil {
			return skill, 0, fmt.Errorf("%s: %w", token, err)
		}
		text = strings.ReplaceAll(text, token, r)
		replaced++
	}
	if replaced == 0 {
		return skill, 0, nil
	}
	skill, err := skill.Set("desc", text)
	return skill, replaced, err
}

// placeholderRange builds "(first ~ last)" from desc_add[i], a list of
// [value, ...] steps of which only the leading value is shown.
func placeholderRange(adds gjson.Result, i int) (string, error) {
	if !adds.IsArray() {
		return "", fmt.Errorf("%w: no desc_add list", ErrContract)
	}
	entries := adds.Array()
	if i >= len(entries) {
		return "", fmt.Errorf("%w: desc_add index %d out of range (len %d)", ErrContract, i, len(entries))
	}
	steps := entries[i]
	if !steps.IsArray() || len(steps.Array()) == 0 {
		return "", fmt.Errorf("%w: desc_add[%d] is empty", ErrContract, i)
	}
	all := steps.Array()
	first, err := stepValue(all[0])
	if err != nil {
		return "", fmt.Errorf("desc_add[%d][0]: %w", i, err)
	}
	last, err := stepValue(all[len(all)-1])
	if err != nil {
		return "", fmt.Errorf("desc_add[%d][%d]: %w", i, len(all)-1, err)
	}
	return "(" + first + " ~ " + last + ")", nil
}

func stepValue(step gjson.Result) (string, error) {
	if !step.IsArray() {
		return "", fmt.Errorf("%w: step is not a list", ErrContract)
	}
	vals := step.Array()
	if len(vals) == 0 {
		return "", fmt.Errorf("%w: step is empty", ErrContract)
	}
	return jsondoc.Scalar(vals[0]), nil
}

func dropWorkingFields(skill jsondoc.Record, lenient bool) (jsondoc.Record, error) {
	var missing []string
	for _, f := range workingFields {
		if !skill.Has(f) {
			missing = append(missing, f)
			continue
		}
		var err error
		if skill, err = skill.Delete(f); err != nil {
			return skill, err
		}
	}
	if len(missing) > 0 && !lenient {
		return skill, fmt.Errorf("%w: missing %s", ErrContract, strings.Join(missing, ", "))
	}
	return skill, nil
}
