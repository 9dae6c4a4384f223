package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/shipkr/shipdata/internal/config"
	"github.com/shipkr/shipdata/internal/jsondoc"
	"github.com/shipkr/shipdata/internal/transform"
)

var fixtures = map[string]string{
	"ship_skin_template.json": `{"100101": {"name": "여름 벨파스트"}}`,
	"ship_skin.json":          `{"1001": {"skins": {"100101": {"id": 100101}, "100102": {"id": 100102}}}}`,
	"ship_kr.json": `[
		{"name": "벨파스트", "sid": [101010, 101011], "tech": {"id": 1, "max_star": 5, "class": 2, "attr": 1}},
		{"name": "로드니", "sid": [202020]}
	]`,
	"ship_data_template.json": `{"101011": {"oil_at_end": 10, "oil_at_start": 1}}`,
	"skill_icon.json":         `{"201": 1, "202": 1, "300": 1}`,
	"skill_data_template.json": `{
		"201": {"id": 201, "name": "전탄발사 - 세레스급I", "desc": "주포로 10회 공격할때마다", "type": 1, "namecode": 0, "desc_add": [], "desc_get_add": [], "desc_get": "", "system_transform": {}, "world_death_mark": []},
		"202": {"id": 202, "name": "전탄발사 - 세레스급II", "desc": "주포로 15회 공격할때마다", "type": 1, "desc_add": [], "desc_get_add": [], "desc_get": "", "system_transform": {}, "world_death_mark": []},
		"300": {"id": 300, "name": "화력 강화", "desc": "{namecode:7}의 화력 $1 증가", "desc_add": [[["5%"], ["20%"]]], "desc_get_add": [], "desc_get": "", "system_transform": {}, "world_death_mark": []},
		"400": {"id": 400, "name": "no icon"}
	}`,
	"name_code.json": `{"7": {"name": "세레스"}}`,
}

func setup(t *testing.T) (*Env, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range fixtures {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	var out bytes.Buffer
	return &Env{
		Config: cfg,
		Log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Out:    &out,
	}, &out
}

func readOutput(t *testing.T, env *Env, name string) gjson.Result {
	t.Helper()
	data, err := os.ReadFile(env.Config.Path(name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return gjson.ParseBytes(data)
}

func TestRegistered(t *testing.T) {
	want := []string{"skin-names", "prune-tech", "oil-cost", "filter-skills", "merge-skills"}
	if got := Registered(); !slices.Equal(got, want) {
		t.Fatalf("Registered() = %v, want %v", got, want)
	}
	if _, err := Lookup("nope"); err == nil {
		t.Fatal("expected error for unknown pipeline")
	}
}

func TestRunAll(t *testing.T) {
	env, out := setup(t)
	if err := RunAll(context.Background(), env); err != nil {
		t.Fatalf("RunAll: %v", err)
	}

	skins := readOutput(t, env, "ship_skin.json")
	if got := skins.Get("1001.skins.100101.name_kr").String(); got != "여름 벨파스트" {
		t.Errorf("name_kr = %q", got)
	}

	ships := readOutput(t, env, "ship_kr.json")
	if ships.Get("0.tech.id").Exists() || !ships.Get("0.tech.attr").Exists() {
		t.Errorf("tech not pruned: %s", ships.Get("0.tech").Raw)
	}

	updated := readOutput(t, env, "ship_kr_updated.json")
	if n := len(updated.Array()); n != 2 {
		t.Fatalf("ship_kr_updated has %d ships, want 2", n)
	}
	if got := updated.Get("0.oilMax").Int(); got != 10 {
		t.Errorf("oilMax = %d, want 10", got)
	}
	if updated.Get("1.oilMax").Exists() {
		t.Errorf("unmatched ship got oilMax")
	}

	filtered := readOutput(t, env, "skill_data.json")
	if filtered.Get("400").Exists() {
		t.Errorf("skill without icon kept")
	}
	if got := filtered.Get("300.desc").String(); got != "{namecode:7}의 화력 (5% ~ 20%) 증가" {
		t.Errorf("300 desc = %q", got)
	}

	merged := readOutput(t, env, "skill_data_modified.json")
	var keys []string
	merged.ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	if got := strings.Join(keys, ","); got != "300,201" {
		t.Fatalf("merged keys = %q, want 300,201", got)
	}
	if got := merged.Get("201.desc").String(); got != "주포로 10/15회 공격할때마다 특수 탄막 발사" {
		t.Errorf("201 desc = %q", got)
	}
	if got := merged.Get("300.desc").String(); got != "세레스의 화력 (5% ~ 20%) 증가" {
		t.Errorf("300 desc = %q", got)
	}

	if !strings.Contains(out.String(), "Successfully updated 1 skins") {
		t.Errorf("summary missing skin count: %q", out.String())
	}
}

func TestOutputFormatting(t *testing.T) {
	env, _ := setup(t)
	s, _ := Lookup("oil-cost")
	if err := Run(context.Background(), s, env); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(env.Config.Path("ship_kr_updated.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("[\n  {\n    \"name\": \"벨파스트\",\n")) {
		t.Fatalf("unexpected layout:\n%s", data)
	}
}

func TestEscapedInputWrittenLiterally(t *testing.T) {
	env, _ := setup(t)
	inputs := map[string]string{
		"ship_kr.json":            `[{"name": "\ubca8\ud30c\uc2a4\ud2b8", "tech": {"id": 1}}]`,
		"ship_skin_template.json": `{"100101": {"name": "\uc5ec\ub984 \ubca8\ud30c\uc2a4\ud2b8"}}`,
	}
	for name, body := range inputs {
		if err := os.WriteFile(env.Config.Path(name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	for _, name := range []string{"prune-tech", "skin-names"} {
		s, _ := Lookup(name)
		if err := Run(context.Background(), s, env); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}

	tests := []struct {
		file, want string
	}{
		{"ship_kr.json", `"name": "벨파스트"`},
		{"ship_skin.json", `"name_kr": "여름 벨파스트"`},
	}
	for _, tt := range tests {
		data, err := os.ReadFile(env.Config.Path(tt.file))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), tt.want) {
			t.Errorf("%s missing %s:\n%s", tt.file, tt.want, data)
		}
		if strings.Contains(string(data), `\u`) {
			t.Errorf("%s still escaped:\n%s", tt.file, data)
		}
	}
}

func TestMissingInputWritesNothing(t *testing.T) {
	env, _ := setup(t)
	os.Remove(env.Config.Path("ship_data_template.json"))

	s, _ := Lookup("oil-cost")
	err := Run(context.Background(), s, env)
	if !errors.Is(err, jsondoc.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if Kind(err) != "file-not-found" {
		t.Errorf("Kind = %q", Kind(err))
	}
	if _, err := os.Stat(env.Config.Path("ship_kr_updated.json")); !os.IsNotExist(err) {
		t.Fatalf("output written despite error: %v", err)
	}
}

func TestMalformedInputLeavesFileUntouched(t *testing.T) {
	env, _ := setup(t)
	path := env.Config.Path("ship_kr.json")
	if err := os.WriteFile(path, []byte(`[{"tech": `), 0o644); err != nil {
		t.Fatal(err)
	}

	s, _ := Lookup("prune-tech")
	err := Run(context.Background(), s, env)
	if Kind(err) != "parse-error" {
		t.Fatalf("Kind(%v) = %q, want parse-error", err, Kind(err))
	}
	data, _ := os.ReadFile(path)
	if string(data) != `[{"tech": ` {
		t.Fatalf("input rewritten: %q", data)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", jsondoc.ErrNotFound), "file-not-found"},
		{fmt.Errorf("x: %w", &jsondoc.SyntaxError{Msg: "bad"}), "parse-error"},
		{fmt.Errorf("skill 1: %w", transform.ErrContract), "contract"},
		{errors.New("boom"), "generic"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRunAllStopsWhenCancelled(t *testing.T) {
	env, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := RunAll(ctx, env); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
