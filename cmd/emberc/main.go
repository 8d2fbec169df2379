// Package main provides the CLI interface for the ember compiler.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/emberlang/ember/internal/application"
	"github.com/emberlang/ember/internal/domain"
)

const (
	Version = "0.1.0"
	Author  = "ember contributors"
)

var (
	inputFiles        = flag.String("i", "", "Input source files (comma-separated)")
	outputFile        = flag.String("o", "", "Output file")
	optimizeLevel     = flag.Int("O", 0, "Optimization level (0-3, recorded but not yet applied)")
	debugInfo         = flag.Bool("g", false, "Debug-information toggle (recorded; no debug metadata is emitted)")
	targetTriple      = flag.String("target", "", "Target triple for code generation")
	warningsAsErrors  = flag.Bool("Werror", false, "Treat warnings as errors")
	verbose           = flag.Bool("v", false, "Verbose output")
	showVersion       = flag.Bool("version", false, "Show version information")
	showHelp          = flag.Bool("h", false, "Show this help message")
	useMockComponents = flag.Bool("mock", false, "Use mock components for testing")
	projectManifest   = flag.String("project", "", "Load entry files and options from an ember.yaml project manifest")
	parserDebug       = flag.Int("parser-debug", 0, "Parser debug level (0-4, reserved)")
	emitGraph         = flag.Bool("graph", false, "Usage-graph toggle (recorded; no .dot file is written)")
	runJIT            = flag.Bool("run", false, "JIT-interpret the generated module instead of writing it to -o")
	entryPoint        = flag.String("entry", "main", "Entry function for -run")
	emitObj           = flag.String("emit-obj", "", "Lower the generated module to an object file at this path")
	emitAsm           = flag.String("emit-asm", "", "Lower the generated module to an assembly listing at this path")
)

func main() {
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}
	var manifest *application.ProjectManifest
	if *projectManifest != "" {
		m, err := application.LoadManifest(*projectManifest)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		manifest = m
	}

	if *showHelp || (*inputFiles == "" && manifest == nil) {
		printUsage()
		return
	}

	var files []string
	if *inputFiles != "" {
		files = strings.Split(*inputFiles, ",")
		for i := range files {
			files[i] = strings.TrimSpace(files[i])
		}
	} else {
		files = manifest.Files
	}
	if manifest != nil {
		if *targetTriple == "" {
			*targetTriple = manifest.Target
		}
		if *optimizeLevel == 0 {
			*optimizeLevel = manifest.OptimizationLevel
		}
		if !*debugInfo {
			*debugInfo = manifest.DebugInfo
		}
		if !*warningsAsErrors {
			*warningsAsErrors = manifest.WarningsAsErrors
		}
	}
	for _, file := range files {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error: input file %q does not exist\n", file)
			os.Exit(1)
		}
	}

	output := *outputFile
	if output == "" {
		if len(files) == 1 {
			ext := filepath.Ext(files[0])
			output = files[0][:len(files[0])-len(ext)] + ".ll"
		} else {
			output = "output.ll"
		}
	}

	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	config := application.CompilerConfig{
		UseMockComponents: *useMockComponents,
		ErrorReporterType: application.ConsoleErrorReporter,
		CompilationOptions: domain.CompilationOptions{
			OptimizationLevel: *optimizeLevel,
			DebugInfo:         *debugInfo,
			TargetTriple:      *targetTriple,
			WarningsAsErrors:  *warningsAsErrors,
			Verbose:           *verbose,
			EmitUsageGraph:    *emitGraph,
		},
		ErrorOutput: os.Stderr,
		Verbose:     *verbose,
		Logger:      logger,
	}

	factory := application.NewCompilerFactory(config)

	moduleText, err := compile(factory, files, output, config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation failed: %v\n", err)
		os.Exit(1)
	}

	if *runJIT {
		code, err := factory.CreateJITHost().Run(moduleText, *entryPoint)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JIT run failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(code)
	}

	if *emitObj != "" {
		if err := factory.CreateAOTHost().EmitObject(moduleText, *emitObj, *targetTriple); err != nil {
			fmt.Fprintf(os.Stderr, "Emitting object failed: %v\n", err)
			os.Exit(1)
		}
	}
	if *emitAsm != "" {
		if err := factory.CreateAOTHost().EmitAssembly(moduleText, *emitAsm, *targetTriple); err != nil {
			fmt.Fprintf(os.Stderr, "Emitting assembly failed: %v\n", err)
			os.Exit(1)
		}
	}

	if *verbose {
		fmt.Printf("Compilation successful. Output written to: %s\n", output)
	}
}

func compile(factory *application.CompilerFactory, files []string, output string, config application.CompilerConfig) (string, error) {
	var buf strings.Builder

	if len(files) == 1 {
		input, err := os.Open(files[0])
		if err != nil {
			return "", fmt.Errorf("failed to open input file: %w", err)
		}
		defer input.Close()

		pipeline := factory.CreateCompilerPipeline()
		if config.Verbose {
			fmt.Printf("Compiling: %s -> %s\n", files[0], output)
		}
		if err := pipeline.Compile(files[0], input, &buf); err != nil {
			return "", err
		}
	} else {
		readers := make(map[string]io.Reader)
		var closers []io.Closer
		defer func() {
			for _, c := range closers {
				c.Close()
			}
		}()
		for _, filename := range files {
			f, err := os.Open(filename)
			if err != nil {
				return "", fmt.Errorf("failed to open input file %s: %w", filename, err)
			}
			readers[filename] = f
			closers = append(closers, f)
		}
		pipeline := factory.CreateMultiFileCompilerPipeline()
		if config.Verbose {
			fmt.Printf("Compiling multiple files: %v -> %s\n", files, output)
		}
		if err := pipeline.CompileFiles(readers, &buf); err != nil {
			return "", err
		}
	}

	if !*runJIT {
		out, err := os.Create(output)
		if err != nil {
			return "", fmt.Errorf("failed to create output file: %w", err)
		}
		defer out.Close()
		if _, err := io.WriteString(out, buf.String()); err != nil {
			return "", fmt.Errorf("failed to write output file: %w", err)
		}
	}

	return buf.String(), nil
}

func printVersion() {
	fmt.Printf("ember compiler %s\n", Version)
	fmt.Printf("Author: %s\n", Author)
	fmt.Printf("Built with Go 1.21+\n")
}

func printUsage() {
	fmt.Printf("ember compiler %s\n\n", Version)
	fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  # Compile a single file\n")
	fmt.Printf("  %s -i main.em -o main.ll\n", os.Args[0])
	fmt.Printf("\n  # Compile multiple files\n")
	fmt.Printf("  %s -i \"main.em,lib.em\" -o program.ll\n", os.Args[0])
	fmt.Printf("\n  # JIT-interpret instead of writing a file\n")
	fmt.Printf("  %s -i main.em -run\n", os.Args[0])
	fmt.Printf("\n  # Use mock components for testing\n")
	fmt.Printf("  %s -i main.em -o main.ll -mock -v\n", os.Args[0])
	fmt.Printf("\n  # Load entry files and options from an ember.yaml manifest\n")
	fmt.Printf("  %s -project ember.yaml\n", os.Args[0])
}
