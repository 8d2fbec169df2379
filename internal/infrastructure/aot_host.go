package infrastructure

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/emberlang/ember/internal/interfaces"
)

// LLCAOTHost implements interfaces.AOTHost via `llc`, the §4.7 ahead-of-time
// path: lower the emitted module to a target object file or assembly
// listing for a given triple. Same stdlib-only rationale as LLIJITHost —
// no binding library in the example pool, and os/exec against the system
// `llc` is the standard way every llvm5-style repo in the pack invokes it.
type LLCAOTHost struct {
	LLCPath string
}

func NewLLCAOTHost() *LLCAOTHost { return &LLCAOTHost{LLCPath: "llc"} }

func (h *LLCAOTHost) EmitObject(irText string, outputPath string, triple string) error {
	return h.run(irText, outputPath, triple, "-filetype=obj")
}

func (h *LLCAOTHost) EmitAssembly(irText string, outputPath string, triple string) error {
	return h.run(irText, outputPath, triple, "-filetype=asm")
}

func (h *LLCAOTHost) run(irText, outputPath, triple, filetypeFlag string) error {
	tmp, err := os.CreateTemp("", "ember-aot-*.ll")
	if err != nil {
		return fmt.Errorf("aot: creating temp module: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(irText); err != nil {
		tmp.Close()
		return fmt.Errorf("aot: writing temp module: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("aot: closing temp module: %w", err)
	}

	args := []string{filetypeFlag, "-o", outputPath}
	if triple != "" {
		args = append(args, "-mtriple="+triple)
	}
	args = append(args, tmp.Name())

	cmd := exec.Command(h.llcPath(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("aot: %s failed: %s: %w", h.llcPath(), stderr.String(), err)
	}
	return nil
}

func (h *LLCAOTHost) llcPath() string {
	if h.LLCPath != "" {
		return h.LLCPath
	}
	return "llc"
}

var _ interfaces.AOTHost = (*LLCAOTHost)(nil)
