package pipeline

import (
	"context"

	"github.com/shipkr/shipdata/internal/jsondoc"
	"github.com/shipkr/shipdata/internal/transform"
)

func init() {
	Register(Step{Name: "skin-names", Short: "Copy localized skin names into the ship skin table", Run: skinNames})
	Register(Step{Name: "prune-tech", Short: "Strip id, max_star and class from ship tech blocks", Run: pruneTech})
	Register(Step{Name: "oil-cost", Short: "Merge oil costs from the ship template into the ship list", Run: oilCost})
	Register(Step{Name: "filter-skills", Short: "Keep skills with an icon and expand $N ranges", Run: filterSkills})
	Register(Step{Name: "merge-skills", Short: "Resolve name codes and merge barrage skill pairs", Run: mergeSkills})
}

func skinNames(_ context.Context, env *Env) error {
	cfg := env.Config
	templates, err := jsondoc.ReadTable(cfg.Path(cfg.Files.SkinTemplate))
	if err != nil {
		return err
	}
	env.Log.Debug("loaded skin templates", "count", templates.Len())

	out := cfg.Path(cfg.Files.ShipSkins)
	ships, err := jsondoc.ReadTable(out)
	if err != nil {
		return err
	}

	stats, err := transform.MergeSkinNames(templates, ships)
	if err != nil {
		return err
	}
	if err := jsondoc.WriteFile(out, ships); err != nil {
		return err
	}

	env.Log.Info("merged skin names", "names", stats.Names, "updated", stats.Updated, "path", out)
	env.printf("Successfully updated %d skins in %s.\n", stats.Updated, out)
	return nil
}

func pruneTech(_ context.Context, env *Env) error {
	path := env.Config.Path(env.Config.Files.Ships)
	ships, err := jsondoc.ReadList(path)
	if err != nil {
		return err
	}

	stats, err := transform.PruneTech(ships)
	if err != nil {
		return err
	}
	if err := jsondoc.WriteFile(path, ships); err != nil {
		return err
	}

	env.Log.Info("pruned tech fields", "records", stats.Records, "removed", stats.Removed, "path", path)
	env.printf("Removed id, max_star and class from %d tech blocks in %s.\n", stats.Records, path)
	return nil
}

func oilCost(_ context.Context, env *Env) error {
	cfg := env.Config
	templates, err := jsondoc.ReadTable(cfg.Path(cfg.Files.ShipTemplate))
	if err != nil {
		return err
	}
	ships, err := jsondoc.ReadList(cfg.Path(cfg.Files.Ships))
	if err != nil {
		return err
	}

	merged, stats, err := transform.MergeOilCost(templates, ships)
	if err != nil {
		return err
	}
	out := cfg.Path(cfg.Files.ShipsUpdated)
	if err := jsondoc.WriteFile(out, merged); err != nil {
		return err
	}

	env.Log.Info("merged oil cost", "ships", stats.Ships, "merged", stats.Merged, "path", out)
	env.printf("Merged oil cost into %d ships. Saved to %s.\n", stats.Merged, out)
	return nil
}

func filterSkills(_ context.Context, env *Env) error {
	cfg := env.Config
	icons, err := jsondoc.ReadTable(cfg.Path(cfg.Files.SkillIcons))
	if err != nil {
		return err
	}
	skills, err := jsondoc.ReadTable(cfg.Path(cfg.Files.SkillTemplate))
	if err != nil {
		return err
	}

	kept, stats, err := transform.FilterSkills(icons, skills, transform.FilterOptions{
		LenientFields: cfg.Skills.LenientFields,
	})
	if err != nil {
		return err
	}
	out := cfg.Path(cfg.Files.Skills)
	if err := jsondoc.WriteFile(out, kept); err != nil {
		return err
	}

	env.Log.Info("filtered skills", "skills", stats.Skills, "kept", stats.Kept, "placeholders", stats.Placeholders, "path", out)
	env.printf("Filtered %d skills into %s.\n", stats.Kept, out)
	return nil
}

func mergeSkills(_ context.Context, env *Env) error {
	cfg := env.Config
	names, err := jsondoc.ReadTable(cfg.Path(cfg.Files.NameCodes))
	if err != nil {
		return err
	}
	skills, err := jsondoc.ReadTable(cfg.Path(cfg.Files.Skills))
	if err != nil {
		return err
	}

	final, stats, err := transform.PostProcessSkills(names, skills)
	if err != nil {
		return err
	}
	for _, g := range stats.Ambiguous {
		env.Log.Warn("left barrage group unmerged: several skills share a phase", "group", g)
	}
	out := cfg.Path(cfg.Files.SkillsMerged)
	if err := jsondoc.WriteFile(out, final); err != nil {
		return err
	}

	env.Log.Info("merged skills", "substituted", stats.Substituted, "merged", stats.Merged, "path", out)
	env.printf("Skill data processing complete. Saved to %s.\n", out)
	return nil
}
