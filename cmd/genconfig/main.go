// Command genconfig regenerates config.default.toml from config.ExampleConfig().
//
// Run through go generate (see internal/config/config.go). The output lands at
// the repository root, where configdata.go embeds it.
package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"sessionlamp/internal/config"
)

// outPath is relative to internal/config/, where go generate runs.
const outPath = "../../config.default.toml"

func main() {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(config.ExampleConfig()); err != nil {
		fail("encode config: %v", err)
	}
	rendered := render(strings.Split(raw.String(), "\n"))
	if err := os.WriteFile(outPath, []byte(rendered), 0o644); err != nil {
		fail("write %s: %v", outPath, err)
	}
	fmt.Println("wrote config.default.toml")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// render annotates the encoder's raw TOML with section banners, the comments
// and alternatives from [config.ConfigDocs], and commented-out entries for
// omitempty fields the encoder skipped.
func render(lines []string) string {
	d := &annotated{emitted: map[string]bool{}}
	d.push(
		"# ///////////////////////////////////////////////",
		"# Sessionlamp Configuration",
		"# ///////////////////////////////////////////////",
		"",
	)
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			d.line(trimmed)
		}
	}
	d.closeSection()
	return strings.TrimRight(strings.Join(d.out, "\n"), "\n") + "\n"
}

// annotated accumulates the output file line by line, tracking the open TOML
// section and which documented field paths have already appeared.
type annotated struct {
	out     []string
	section string
	emitted map[string]bool
}

func (d *annotated) push(lines ...string) {
	d.out = append(d.out, lines...)
}

func (d *annotated) comment(s string) {
	for _, l := range strings.Split(s, "\n") {
		d.push("# " + l)
	}
}

func (d *annotated) line(trimmed string) {
	switch {
	case strings.HasPrefix(trimmed, "["):
		d.closeSection()
		d.section = strings.Trim(trimmed, "[] ")
		d.push("", "# ///// "+title(d.section)+" /////", "")
		if fd, ok := config.ConfigDocs[d.section]; ok && fd.Comment != "" {
			d.comment(fd.Comment)
		}
		d.push(trimmed)
	case !strings.Contains(trimmed, "=") || strings.HasPrefix(trimmed, "#"):
		d.push(trimmed)
	default:
		key, _, _ := strings.Cut(trimmed, "=")
		path := strings.TrimSpace(key)
		if d.section != "" {
			path = d.section + "." + path
		}
		d.emitted[path] = true
		fd, ok := config.ConfigDocs[path]
		if !ok {
			d.push(trimmed)
			return
		}
		if fd.Comment != "" {
			d.comment(fd.Comment)
		}
		d.push(trimmed)
		for _, alt := range fd.Alternatives {
			d.push("# " + alt)
		}
	}
}

// closeSection emits commented-out entries for documented fields of the open
// section that never appeared in the encoder output (omitempty fields at their
// zero value), so every documented option shows up in the generated file.
func (d *annotated) closeSection() {
	if d.section == "" {
		return
	}
	prefix := d.section + "."

	var missing []string
	for path := range config.ConfigDocs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || d.emitted[path] {
			continue
		}
		missing = append(missing, path)
	}
	sort.Strings(missing)

	for _, path := range missing {
		fd := config.ConfigDocs[path]
		d.push("")
		if fd.Comment != "" {
			d.comment(fd.Comment)
		}
		for _, alt := range fd.Alternatives {
			d.push("# " + alt)
		}
		d.emitted[path] = true
	}
}

// title renders the last dotted segment of a section path with a leading
// capital, for the banner separators.
func title(section string) string {
	last := section
	if i := strings.LastIndex(section, "."); i >= 0 {
		last = section[i+1:]
	}
	if last == "" {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
