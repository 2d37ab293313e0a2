// Package skills discovers skill definitions on disk and builds the
// prompts that carry them. A skill is a directory holding a SKILL.md
// with YAML frontmatter (name, description, status) above a markdown
// body, plus optional reference files.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata is a skill's frontmatter.
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Status      string `yaml:"status"`
}

// LoadAll reads every skill's frontmatter, keyed by directory name.
// A missing skills directory yields an empty map, not an error.
func LoadAll(skillsDir string) (map[string]Metadata, error) {
	entries, err := os.ReadDir(skillsDir)
	if os.IsNotExist(err) {
		return map[string]Metadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read skills dir %s: %w", skillsDir, err)
	}

	skills := make(map[string]Metadata)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(skillsDir, entry.Name(), "SKILL.md"))
		if err != nil {
			continue
		}
		meta, ok := parseFrontmatter(string(content))
		if !ok {
			continue
		}
		if meta.Name == "" {
			meta.Name = entry.Name()
		}
		if meta.Description == "" {
			meta.Description = "No description"
		}
		if meta.Status == "" {
			meta.Status = "active"
		}
		skills[entry.Name()] = meta
	}
	return skills, nil
}

// LoadDetail returns a skill's full markdown body (frontmatter stripped).
func LoadDetail(skillsDir, skillName string) (string, error) {
	content, err := os.ReadFile(filepath.Join(skillsDir, skillName, "SKILL.md"))
	if err != nil {
		return "", fmt.Errorf("skill %q not found: %w", skillName, err)
	}
	return extractBody(string(content)), nil
}

const personaIntro = `# Travel Concierge Assistant

You are an expert travel concierge assistant. You help users plan trips, find flights and hotels, check weather, convert currencies, understand visa requirements, and create packing lists.`

// BuildMonolithPrompt builds the everything-always-loaded system prompt:
// the persona plus every skill's full instructions. This is the prompt
// whose cost the higher levels exist to avoid.
func BuildMonolithPrompt(skillsDir string) (string, error) {
	skills, err := LoadAll(skillsDir)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(personaIntro)
	b.WriteString("\n\nYou have access to the following tools:\n")
	b.WriteString("- `http_fetch(url)`: Fetch data from any URL (used for weather API)\n")
	b.WriteString("- `mock_api_fetch(endpoint, params)`: Query travel data APIs (flights, hotels, etc.)\n\n")
	b.WriteString("Below are detailed instructions for each skill you can perform.\n\n---\n\n")

	for _, name := range sortedKeys(skills) {
		detail, err := LoadDetail(skillsDir, name)
		if err != nil {
			continue
		}
		b.WriteString(detail)
		b.WriteString("\n\n---\n\n")
	}
	return b.String(), nil
}

// BuildSkillMenu builds the summaries-only listing used by the
// progressive-disclosure prompt: one line per skill, details on demand.
func BuildSkillMenu(skillsDir string) (string, error) {
	skills, err := LoadAll(skillsDir)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, name := range sortedKeys(skills) {
		meta := skills[name]
		fmt.Fprintf(&b, "- **%s**: %s\n", name, meta.Description)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// BuildMenuPrompt builds the full progressive-disclosure system prompt:
// persona, generic tool listing, skill menu, and loading instructions.
func BuildMenuPrompt(skillsDir string) (string, error) {
	menu, err := BuildSkillMenu(skillsDir)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{
		personaIntro,
		"",
		"## Available Tools",
		"",
		"- `http_fetch(url)`: Fetch data from any URL (used for weather API)",
		"- `mock_api_fetch(endpoint, params)`: Query travel data APIs (flights, hotels, etc.)",
		"- `get_current_datetime(timezone)`: Get current date, time, and day of week",
		"",
		"## Skills",
		"",
		menu,
		"",
		"## How to Use Skills",
		"",
		"When a user asks about a topic, ALWAYS call `load_skill(skill_name)` to read the full instructions for the relevant skill BEFORE answering. The skill menu above only shows summaries — the full instructions contain critical details about tool usage, parameters, and response formatting.",
		"",
		"If you need even more detail (API references, formatting guides), call `list_skill_files(skill_name)` to see what reference files are available, then `read_skill_file(skill_name, file_path)` to load them.",
	}, "\n"), nil
}

// ListSkillFiles lists a skill's reference files, relative to the skill
// directory, excluding SKILL.md itself.
func ListSkillFiles(skillsDir, skillName string) ([]string, error) {
	root := filepath.Join(skillsDir, skillName)
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "SKILL.md" {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list files for skill %q: %w", skillName, err)
	}
	sort.Strings(files)
	return files, nil
}

// ReadSkillFile reads one reference file from a skill directory. The
// path is confined to the skill directory; traversal outside it fails.
func ReadSkillFile(skillsDir, skillName, filePath string) (string, error) {
	root := filepath.Join(skillsDir, skillName)
	full := filepath.Join(root, filePath)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("file path %q escapes skill directory", filePath)
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read skill file %q: %w", filePath, err)
	}
	return string(content), nil
}

func parseFrontmatter(content string) (Metadata, bool) {
	if !strings.HasPrefix(content, "---") {
		return Metadata{}, false
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return Metadata{}, false
	}
	var meta Metadata
	if err := yaml.Unmarshal([]byte(parts[1]), &meta); err != nil {
		return Metadata{}, false
	}
	return meta, true
}

func extractBody(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return content
	}
	return strings.TrimSpace(parts[2])
}

func sortedKeys(m map[string]Metadata) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
