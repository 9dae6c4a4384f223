// Package transform holds the record-level transformations applied to the
// ship and skill tables. Functions here never touch the filesystem; loading
// and saving is the pipeline package's job.
package transform

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/shipkr/shipdata/internal/jsondoc"
)

// SkinNameField is added to every skin that has a localized template name.
const SkinNameField = "name_kr"

// techFields are removed from a ship's tech block.
var techFields = []string{"id", "max_star", "class"}

type SkinStats struct {
	Names   int // template entries that carry a name
	Updated int // skins that received SkinNameField
}

// MergeSkinNames copies the template name of every known skin into the
// nested skins object of each ship. Ships without a skins object and skins
// missing from the template are left alone.
func MergeSkinNames(templates, ships *jsondoc.Table) (SkinStats, error) {
	names := make(map[string]string, templates.Len())
	templates.Each(func(id string, r jsondoc.Record) error {
		if n := r.Get("name"); n.Exists() {
			names[id] = n.Raw
		}
		return nil
	})

	stats := SkinStats{Names: len(names)}
	err := ships.Update(func(shipID string, ship jsondoc.Record) (jsondoc.Record, error) {
		skins := ship.Get("skins")
		if !skins.IsObject() {
			return ship, nil
		}
		var err error
		skins.ForEach(func(k, _ gjson.Result) bool {
			skinID := k.String()
			name, ok := names[skinID]
			if !ok {
				return true
			}
			ship, err = ship.SetRaw("skins."+jsondoc.Key(skinID)+"."+SkinNameField, []byte(name))
			if err != nil {
				err = fmt.Errorf("ship %s skin %s: %w", shipID, skinID, err)
				return false
			}
			stats.Updated++
			return true
		})
		return ship, err
	})
	return stats, err
}

type PruneStats struct {
	Records int // records with a tech block
	Removed int // keys deleted
}

// PruneTech deletes tech.id, tech.max_star and tech.class from every ship
// that has a tech object. Running it twice is the same as running it once.
func PruneTech(ships jsondoc.List) (PruneStats, error) {
	var stats PruneStats
	for i, ship := range ships {
		if !ship.Get("tech").IsObject() {
			continue
		}
		stats.Records++
		for _, f := range techFields {
			path := "tech." + f
			if !ship.Has(path) {
				continue
			}
			var err error
			if ship, err = ship.Delete(path); err != nil {
				return stats, fmt.Errorf("ship %d: %w", i, err)
			}
			stats.Removed++
		}
		ships[i] = ship
	}
	return stats, nil
}

type OilStats struct {
	Ships  int
	Merged int // ships whose sid matched a template entry
}

// MergeOilCost joins each ship to the ship template by the last element of
// its sid and copies oil_at_end into oilMax and oil_at_start into oilMin.
// Every ship is returned, matched or not, in input order.
func MergeOilCost(templates *jsondoc.Table, ships jsondoc.List) (jsondoc.List, OilStats, error) {
	out := make(jsondoc.List, 0, len(ships))
	stats := OilStats{Ships: len(ships)}
	for i, ship := range ships {
		key, ok := shipTemplateKey(ship)
		if tmpl, found := templates.Get(key); ok && found {
			var err error
			if ship, err = copyField(ship, "oilMax", tmpl, "oil_at_end"); err != nil {
				return nil, stats, fmt.Errorf("ship %d: %w", i, err)
			}
			if ship, err = copyField(ship, "oilMin", tmpl, "oil_at_start"); err != nil {
				return nil, stats, fmt.Errorf("ship %d: %w", i, err)
			}
			stats.Merged++
		}
		out = append(out, ship)
	}
	return out, stats, nil
}

func shipTemplateKey(ship jsondoc.Record) (string, bool) {
	sid := ship.Get("sid")
	if !sid.IsArray() {
		return "", false
	}
	ids := sid.Array()
	if len(ids) == 0 {
		return "", false
	}
	return jsondoc.Scalar(ids[len(ids)-1]), true
}

func copyField(dst jsondoc.Record, dstField string, src jsondoc.Record, srcField string) (jsondoc.Record, error) {
	v := src.Get(srcField)
	if !v.Exists() {
		return dst, nil
	}
	return dst.SetRaw(dstField, []byte(v.Raw))
}
