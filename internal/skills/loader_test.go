package skills

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSkill(t *testing.T, dir, name, frontmatter, body string) {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "---\n" + frontmatter + "\n---\n" + body
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644); err != nil {
		t.Fatalf("write SKILL.md: %v", err)
	}
}

func TestLoadAllParsesFrontmatter(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "weather", "name: Weather\ndescription: Check forecasts\nstatus: active", "# Weather\nUse http_fetch.")
	writeSkill(t, dir, "flights", "name: Flights\ndescription: Find flights", "# Flights")
	// A directory without SKILL.md is not a skill.
	if err := os.MkdirAll(filepath.Join(dir, "notes"), 0o755); err != nil {
		t.Fatal(err)
	}

	skills, err := LoadAll(dir)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(skills) != 2 {
		t.Fatalf("len=%d, want 2", len(skills))
	}
	if skills["weather"].Description != "Check forecasts" {
		t.Fatalf("weather=%+v", skills["weather"])
	}
	if skills["flights"].Status != "active" {
		t.Fatalf("missing status should default to active: %+v", skills["flights"])
	}
}

func TestLoadAllMissingDir(t *testing.T) {
	skills, err := LoadAll(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing dir must not error: %v", err)
	}
	if len(skills) != 0 {
		t.Fatalf("len=%d, want 0", len(skills))
	}
}

func TestLoadDetailStripsFrontmatter(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "weather", "name: Weather\ndescription: d", "# Weather Skill\n\nInstructions here.")

	body, err := LoadDetail(dir, "weather")
	if err != nil {
		t.Fatalf("LoadDetail: %v", err)
	}
	if body != "# Weather Skill\n\nInstructions here." {
		t.Fatalf("body=%q", body)
	}

	if _, err := LoadDetail(dir, "missing"); err == nil {
		t.Fatal("missing skill must error")
	}
}

func TestBuildMonolithPromptIncludesEverySkill(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "weather", "name: Weather\ndescription: d", "WEATHER-BODY")
	writeSkill(t, dir, "visa", "name: Visa\ndescription: d", "VISA-BODY")

	prompt, err := BuildMonolithPrompt(dir)
	if err != nil {
		t.Fatalf("BuildMonolithPrompt: %v", err)
	}
	for _, want := range []string{"# Travel Concierge Assistant", "WEATHER-BODY", "VISA-BODY"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestBuildMenuPromptCarriesSummariesOnly(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "weather", "name: Weather\ndescription: Check forecasts", "FULL-BODY-TEXT")

	prompt, err := BuildMenuPrompt(dir)
	if err != nil {
		t.Fatalf("BuildMenuPrompt: %v", err)
	}
	if !strings.Contains(prompt, "Check forecasts") {
		t.Fatal("menu must carry the summary")
	}
	if strings.Contains(prompt, "FULL-BODY-TEXT") {
		t.Fatal("menu must not carry full skill bodies")
	}
	if !strings.Contains(prompt, "load_skill") {
		t.Fatal("menu prompt must explain on-demand loading")
	}
}

func TestReadSkillFileBlocksTraversal(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "weather", "name: Weather\ndescription: d", "body")
	refPath := filepath.Join(dir, "weather", "api_reference.md")
	if err := os.WriteFile(refPath, []byte("API docs"), 0o644); err != nil {
		t.Fatal(err)
	}

	content, err := ReadSkillFile(dir, "weather", "api_reference.md")
	if err != nil || content != "API docs" {
		t.Fatalf("ReadSkillFile=%q, %v", content, err)
	}

	if _, err := ReadSkillFile(dir, "weather", "../../etc/passwd"); err == nil {
		t.Fatal("traversal outside the skill directory must fail")
	}

	files, err := ListSkillFiles(dir, "weather")
	if err != nil {
		t.Fatalf("ListSkillFiles: %v", err)
	}
	if len(files) != 1 || files[0] != "api_reference.md" {
		t.Fatalf("files=%v, want just the reference (SKILL.md excluded)", files)
	}
}
