// Command retroasm is the CLI driver: it wires the lexer, preprocessor,
// analyzer and ROM builder together behind a small flag.FlagSet, in the
// same spirit as the teacher's main.go (a flat block of flags, verbose
// progress printing, everything else pushed down into library packages).
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/db47h/retroasm/config"
	"github.com/db47h/retroasm/internal/analyzer"
	"github.com/db47h/retroasm/internal/diag"
	"github.com/db47h/retroasm/internal/parser"
	"github.com/db47h/retroasm/internal/rom"

	_ "github.com/db47h/retroasm/internal/arch/generic"
	_ "github.com/db47h/retroasm/internal/arch/mos6502"
	_ "github.com/db47h/retroasm/internal/arch/sm83"
	_ "github.com/db47h/retroasm/internal/arch/wdc65816"
	_ "github.com/db47h/retroasm/internal/arch/z80"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		target      = flag.String("target", "", "Override the default/source-selected target architecture")
		output      = flag.String("o", "", "Output ROM file (default: <source> with the platform-conventional extension, or .bin)")
		configPath  = flag.String("config", "", "Config file path (default: platform config dir)")
		dumpSymbols = flag.Bool("dump-symbols", false, "Dump the resolved symbol table and exit")
		symbolsFile = flag.String("symbols-file", "", "Symbol dump output file (default: stdout)")
		verboseMode = flag.Bool("verbose", false, "Verbose output")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("retroasm %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	if *showHelp || flag.NArg() == 0 {
		printHelp()
		os.Exit(0)
	}

	srcPath := flag.Arg(0)
	if _, err := os.Stat(srcPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", srcPath)
		os.Exit(1)
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	defaultTarget := cfg.Assembler.DefaultTarget
	if *target != "" {
		defaultTarget = *target
	}

	src, err := os.ReadFile(srcPath) // #nosec G304 -- user-specified source file path
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", srcPath, err)
		os.Exit(1)
	}

	if *verboseMode {
		fmt.Printf("Assembling %s\n", srcPath)
	}

	dl := &diag.List{}
	pp := parser.NewPreprocessor(filepath.Dir(srcPath), dl)
	stmts := pp.Expand(string(src), filepath.Base(srcPath))
	if dl.HasErrors() {
		printDiagnostics(dl)
		os.Exit(1)
	}

	a := analyzer.New(defaultTarget, dl)
	result := a.Analyze(stmts)

	fmt.Fprint(os.Stderr, dl.PrintWarnings())
	if dl.HasErrors() {
		printDiagnostics(dl)
		os.Exit(1)
	}

	if *dumpSymbols {
		if err := dumpSymbolTable(a, *symbolsFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error dumping symbols: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if a.Backend == nil {
		fmt.Fprintln(os.Stderr, "Error: no target architecture selected (use -target or a target/nes/snes/gb directive)")
		os.Exit(1)
	}

	image, err := buildImage(a.Backend.Name(), cfg, result)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building ROM image: %v\n", err)
		os.Exit(1)
	}

	outPath := *output
	if outPath == "" {
		outPath = defaultOutputPath(srcPath, a.Backend.Name())
	}
	if err := os.WriteFile(outPath, image, 0644); err != nil { // #nosec G306 -- ROM output is not sensitive
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outPath, err)
		os.Exit(1)
	}

	if *verboseMode {
		fmt.Printf("Wrote %s (%d bytes)\n", outPath, len(image))
	}
}

// buildImage picks a ROM builder from the resolved backend name and
// assembles the final image. Every backend this module registers maps to
// exactly one platform; see internal/rom for the per-platform layouts.
func buildImage(backendName string, cfg *config.Config, result *analyzer.Result) ([]byte, error) {
	segs := toSegments(result.Chunks)
	hdr := cfg.Header
	if result.Target.Mapping != "" {
		hdr.Mapping = result.Target.Mapping
	}
	if result.Target.HasMapper {
		hdr.Mapper = int(result.Target.Mapper)
	}

	switch backendName {
	case "mos6502":
		return rom.BuildINES(hdr, segs, nil)
	case "6507":
		return rom.BuildAtari2600(segs)
	case "65sc02":
		return rom.BuildLynx(segs)
	case "wdc65816":
		return rom.BuildSNES(hdr, segs)
	case "sm83":
		return rom.BuildGB(hdr, segs)
	case "z80":
		return rom.BuildSMS(segs)
	case "m68000":
		return rom.BuildGenesis(segs)
	case "arm7tdmi":
		return rom.BuildGBA(segs)
	case "huc6280":
		return rom.BuildTG16(segs)
	case "v30mz":
		return rom.BuildWonderSwan(segs)
	case "spc700":
		return rom.BuildSPC700(segs)
	default:
		return rom.BuildRaw(segs)
	}
}

func toSegments(chunks []analyzer.Chunk) []rom.Segment {
	segs := make([]rom.Segment, len(chunks))
	for i, c := range chunks {
		segs[i] = rom.Segment{Address: c.Address, Data: c.Data}
	}
	return segs
}

// defaultOutputPath replaces srcPath's extension with the platform-
// conventional ROM extension for backendName.
func defaultOutputPath(srcPath, backendName string) string {
	ext := ".bin"
	switch backendName {
	case "mos6502":
		ext = ".nes"
	case "wdc65816":
		ext = ".sfc"
	case "sm83":
		ext = ".gb"
	case "spc700":
		ext = ".spc"
	}
	base := srcPath[:len(srcPath)-len(filepath.Ext(srcPath))]
	return base + ext
}

func printDiagnostics(dl *diag.List) {
	for _, d := range dl.Errors {
		fmt.Fprint(os.Stderr, d.Error())
	}
}

// dumpSymbolTable outputs the resolved symbol table in a readable format.
func dumpSymbolTable(a *analyzer.Analyzer, filename string) error {
	var writer *os.File
	if filename == "" {
		writer = os.Stdout
	} else {
		f, err := os.Create(filename) // #nosec G304 -- user-specified symbol output path
		if err != nil {
			return fmt.Errorf("failed to create symbol file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close symbol file: %v\n", cerr)
			}
		}()
		writer = f
	}

	symbols := a.Symbols.All()
	if len(symbols) == 0 {
		_, _ = fmt.Fprintln(writer, "No symbols defined")
		return nil
	}

	_, _ = fmt.Fprintln(writer, "Symbol Table")
	_, _ = fmt.Fprintln(writer, "============")
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "%-30s %-10s %-10s %s\n", "Name", "Kind", "Value", "Status")
	_, _ = fmt.Fprintln(writer, "--------------------------------------------------------------------------------")

	for _, sym := range symbols {
		status := "defined"
		if !sym.Defined {
			status = "undefined"
		}
		_, _ = fmt.Fprintf(writer, "%-30s %-10s 0x%08x %s\n", sym.DisplayName, sym.Kind, sym.Value, status)
	}

	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "Total symbols: %d\n", len(symbols))
	return nil
}

func printHelp() {
	fmt.Printf(`retroasm %s - multi-target retro-console assembler

Usage: retroasm [options] <source-file>

Options:
  -help              Show this help message
  -version           Show version information
  -target NAME       Override the default/source-selected target architecture
  -o FILE            Output ROM file (default: <source> with a platform extension)
  -config FILE       Config file path (default: platform config dir)
  -verbose           Verbose output

Symbol Options:
  -dump-symbols      Dump the resolved symbol table and exit
  -symbols-file FILE Symbol dump output file (default: stdout)

Examples:
  retroasm game.asm
  retroasm -target nes -o game.nes game.asm
  retroasm -dump-symbols game.asm
`, Version)
}
