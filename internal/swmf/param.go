// PARAM.in patch engine. A PARAM.in file is a sequence of command
// segments: a "#COMMAND" line followed by "value  NameOfParam" lines.
// Patching is a single ordered pass holding one piece of state, the
// current command, and rewriting parameter lines matched by their
// second token.
package swmf

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Setting is one registered replacement: within segments of Command, any
// line whose second token equals Param is rewritten to Value.
type Setting struct {
	Command string
	Param   string
	Value   string
}

// Replacements is an ordered two-level mapping, command to parameter to
// value. Order matters twice: parameters registered under one command are
// checked against each line in registration order with the last match
// winning, and unapplied settings are reported in registration order.
// The zero value is an empty spec ready for Set.
type Replacements struct {
	order []string
	cmds  map[string][]Setting
}

// NewReplacements returns an empty replacement spec.
func NewReplacements() *Replacements {
	return &Replacements{cmds: make(map[string][]Setting)}
}

// Set registers value for the parameter under command, keeping first
// registration order. The value may be any type and is stringified with
// fmt.Sprint. Setting the same parameter again updates the value in
// place. Returns the receiver so calls can be chained.
func (r *Replacements) Set(command, param string, value any) *Replacements {
	if r.cmds == nil {
		r.cmds = make(map[string][]Setting)
	}
	text := fmt.Sprint(value)
	settings, seen := r.cmds[command]
	if !seen {
		r.order = append(r.order, command)
	}
	for i := range settings {
		if settings[i].Param == param {
			settings[i].Value = text
			return r
		}
	}
	r.cmds[command] = append(settings, Setting{Command: command, Param: param, Value: text})
	return r
}

// Commands returns the registered command names in registration order.
func (r *Replacements) Commands() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Settings returns every registered setting in registration order.
func (r *Replacements) Settings() []Setting {
	var out []Setting
	for _, cmd := range r.order {
		out = append(out, r.cmds[cmd]...)
	}
	return out
}

func (r *Replacements) has(command string) bool {
	_, ok := r.cmds[command]
	return ok
}

// PatchReport records what one patch pass did.
type PatchReport struct {
	Replaced int // number of lines rewritten
	applied  map[[2]string]bool
	repl     *Replacements
}

// Applied reports whether the setting for command and param rewrote at
// least one line.
func (p *PatchReport) Applied(command, param string) bool {
	return p.applied[[2]string{command, param}]
}

// Unapplied returns the registered settings that matched no line, in
// registration order.
func (p *PatchReport) Unapplied() []Setting {
	var out []Setting
	for _, s := range p.repl.Settings() {
		if !p.applied[[2]string{s.Command, s.Param}] {
			out = append(out, s)
		}
	}
	return out
}

// PatchLines applies the replacement spec to lines and returns the patched
// copy. The pass never reorders lines and never changes the line count.
//
// A line whose first token is a registered command switches the current
// command and is copied untouched. Any other line, while the current
// command is registered, has its second token compared against that
// command's parameters; on a match the whole line becomes the value
// followed by a tab-padded echo of the parameter name. A command name
// repeated later in the file has every occurrence patched the same way.
// The current command is not cleared by unregistered command lines, so a
// registered parameter name can match in a later unregistered segment;
// well-formed decks keep parameter names distinct enough that this does
// not arise.
func PatchLines(lines []string, repl *Replacements) ([]string, *PatchReport) {
	report := &PatchReport{applied: make(map[[2]string]bool), repl: repl}
	out := make([]string, len(lines))
	copy(out, lines)

	current := ""
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) > 0 && repl.has(fields[0]) {
			current = fields[0]
			continue
		}
		if !repl.has(current) || len(fields) < 2 {
			continue
		}
		replaced := false
		for _, s := range repl.cmds[current] {
			if s.Param == fields[1] {
				out[i] = s.Value + "\t\t\t" + s.Param
				report.applied[[2]string{current, s.Param}] = true
				replaced = true
			}
		}
		if replaced {
			report.Replaced++
		}
	}
	return out, report
}

// PatchOptions controls PatchFile behavior beyond the line pass itself.
type PatchOptions struct {
	// Strict makes a setting that matches no line an error instead of a
	// logged warning.
	Strict bool
}

// PatchFile reads inputPath, applies the replacement spec, and writes the
// result to outputPath. The two paths may be equal for an in-place patch.
// The patched lines and the patch report are returned. Whether the file
// ends with a trailing newline is preserved.
func PatchFile(inputPath, outputPath string, repl *Replacements, opts PatchOptions) ([]string, *PatchReport, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", inputPath, err)
	}

	text := string(data)
	trailingNewline := strings.HasSuffix(text, "\n")
	if trailingNewline {
		text = strings.TrimSuffix(text, "\n")
	}
	var lines []string
	if len(text) > 0 || !trailingNewline {
		lines = strings.Split(text, "\n")
	}

	patched, report := PatchLines(lines, repl)

	if unapplied := report.Unapplied(); len(unapplied) > 0 {
		if opts.Strict {
			var missing []string
			for _, s := range unapplied {
				missing = append(missing, s.Command+" "+s.Param)
			}
			return nil, nil, fmt.Errorf("no lines matched for: %s", strings.Join(missing, ", "))
		}
		for _, s := range unapplied {
			log.Printf("Warning: %s %s matched no line in %s", s.Command, s.Param, inputPath)
		}
	}

	text = strings.Join(patched, "\n")
	if trailingNewline {
		text += "\n"
	}
	if err := os.WriteFile(outputPath, []byte(text), 0o644); err != nil {
		return nil, nil, fmt.Errorf("writing %s: %w", outputPath, err)
	}
	return patched, report, nil
}
