// Lumen bytecode tool: run, verify and disassemble compiled chunk files,
// and inspect the module cache. Parsing lives outside this repo; this tool
// works on chunks produced by an embedding compiler front end.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/lumenlang/lumen/pkg/bytecode"
	"github.com/lumenlang/lumen/pkg/manifest"
	"github.com/lumenlang/lumen/pkg/modcache"
)

var (
	configDir = flag.String("config", ".", "directory containing lumen.toml")
	disasm    = flag.Bool("disasm", false, "disassemble chunk files instead of running them")
	verify    = flag.Bool("verify", false, "verify chunk stack shape instead of running")
	showCache = flag.Bool("cache", false, "list the module cache and exit")
	version   = flag.Bool("version", false, "print version and exit")
)

const versionStr = "0.3.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Lumen bytecode tool\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  lumen [options] chunk.lmc ...\n")
		fmt.Fprintf(os.Stderr, "  lumen -cache\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		fmt.Printf("lumen version %s\n", versionStr)
		os.Exit(0)
	}

	cfg, err := manifest.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	commonlog.Configure(verbosity(cfg.Log.Level), nil)

	if *showCache {
		listCache(cfg)
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	for _, path := range flag.Args() {
		chunk, err := loadChunk(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		switch {
		case *disasm:
			fmt.Print(chunk.DisassembleWithName(filepath.Base(path)))
		case *verify:
			depth, err := bytecode.VerifyStackShape(chunk)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				os.Exit(1)
			}
			fmt.Printf("%s: ok (max stack depth %d)\n", path, depth)
		default:
			if err := runChunk(cfg, chunk); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(int(bytecode.ResultOf(err)) + 64)
			}
		}
	}
}

func loadChunk(path string) (*bytecode.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return bytecode.UnmarshalChunk(data)
}

func runChunk(cfg *manifest.Manifest, chunk *bytecode.Chunk) error {
	vm := bytecode.NewVM(
		bytecode.WithStackSize(cfg.VM.StackSize),
		bytecode.WithMaxFrames(cfg.VM.MaxFrames),
		bytecode.WithTrace(cfg.VM.Trace),
	)
	result, err := vm.Interpret(chunk)
	if err != nil {
		return err
	}
	if !result.IsNil() {
		fmt.Println(result.String())
	}
	return nil
}

func listCache(cfg *manifest.Manifest) {
	cache, err := modcache.Open(filepath.Join(cfg.Dir, cfg.Cache.Path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
		os.Exit(1)
	}
	defer cache.Close()

	entries, err := cache.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing cache: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("cache is empty")
		return
	}
	for _, e := range entries {
		hash := e.Hash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Printf("%-32s %12s  %6d bytes\n", e.Path, hash, e.Size)
	}
}

// verbosity maps the manifest log level to commonlog verbosity.
func verbosity(level string) int {
	switch level {
	case "debug":
		return 2
	case "info":
		return 1
	default:
		return 0
	}
}
