// Package prompt builds system prompts for Scout.
package prompt

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

type Mode string

const (
	ModeFull    Mode = "full"
	ModeMinimal Mode = "minimal"
)

type Builder struct {
	Mode     Mode
	Timezone string
}

type SystemContext struct {
	Tooling  string
	Guidance string
	Runtime  string
}

func NewBuilder(mode Mode) *Builder {
	return &Builder{Mode: mode}
}

func (b *Builder) BuildSystemPrompt(ctx SystemContext) string {
	var sections []string
	sections = append(sections, "Identity:\nYou are Scout, a lookup assistant. Be concise and answer only what was asked.")
	sections = append(sections, "Tooling:\n"+nonEmpty(ctx.Tooling, "None."))
	sections = append(sections, "Guidance:\n"+nonEmpty(ctx.Guidance, defaultGuidance))

	if b.Mode == ModeFull {
		sections = append(sections, "Runtime:\n"+nonEmpty(ctx.Runtime, b.runtimeLine()))
		sections = append(sections, "Current Date & Time:\n"+b.timeLine())
	}

	return strings.Join(sections, "\n\n")
}

const defaultGuidance = `Call a tool when the request needs live data; answer directly otherwise.
Use only the tools listed above.
After receiving tool results, reply to the user in natural language with
only the information relevant to the original question. If a tool reports
a failure, say so plainly instead of inventing data.`

// ToolingSection formats a tool list for the system prompt.
func ToolingSection(tools []ToolLine) string {
	if len(tools) == 0 {
		return ""
	}
	var bld strings.Builder
	for _, t := range tools {
		bld.WriteString(fmt.Sprintf("- %s: %s\n", t.Name, t.Description))
	}
	return strings.TrimSpace(bld.String())
}

// ToolLine is one entry in the tooling section.
type ToolLine struct {
	Name        string
	Description string
}

func (b *Builder) runtimeLine() string {
	return fmt.Sprintf("%s/%s go=%s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func (b *Builder) timeLine() string {
	if b.Timezone != "" {
		return fmt.Sprintf("Timezone: %s", b.Timezone)
	}
	return fmt.Sprintf("Timezone: %s", time.Now().Location())
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
