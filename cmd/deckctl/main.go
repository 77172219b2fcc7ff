package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/magefree/deckplay-server-go/internal/app"
	"github.com/magefree/deckplay-server-go/internal/cli"
	"github.com/magefree/deckplay-server-go/internal/config"
	"github.com/magefree/deckplay-server-go/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	cmd := os.Args[1]
	switch cmd {
	case "repl":
		runREPL(os.Args[2:])
	case "keys":
		runKeys(os.Args[2:])
	case "export":
		runExport(os.Args[2:])
	case "import":
		runImport(os.Args[2:])
	case "hash-password":
		runHashPassword(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  deckctl repl [--config FILE] [--key KEY]")
	fmt.Println("  deckctl keys [--config FILE]")
	fmt.Println("  deckctl export [--config FILE] [--out FILE]")
	fmt.Println("  deckctl import [--config FILE] --in FILE --confirm")
	fmt.Println("  deckctl hash-password PASSWORD")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  repl           Run deck commands against one builder, one per line")
	fmt.Println("  keys           List stored builder keys")
	fmt.Println("  export         Write every stored builder as a JSON bundle")
	fmt.Println("  import         Replace stored builders from a bundle, keeping a backup")
	fmt.Println("  hash-password  Print a bcrypt hash for auth.admin_password_hash")
}

func open(ctx context.Context, configPath string) *app.App {
	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err)
	}
	// Keep the console quiet unless asked otherwise.
	if cfg.Logging.Level == "info" {
		cfg.Logging.Level = "warn"
	}
	logger, err := app.NewLogger(cfg.Logging)
	if err != nil {
		fatal(err)
	}
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		fatal(err)
	}
	return a
}

func runREPL(args []string) {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	configPath := fs.String("config", "config/config.yaml", "path to configuration file")
	key := fs.String("key", "local", "builder key")
	fs.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	a := open(ctx, *configPath)
	defer a.Close()

	repl := &cli.REPL{Manager: a.Manager, Key: *key, Prompt: "> "}
	if err := repl.Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		fatal(err)
	}
}

func runKeys(args []string) {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	configPath := fs.String("config", "config/config.yaml", "path to configuration file")
	fs.Parse(args)

	ctx := context.Background()
	a := open(ctx, *configPath)
	defer a.Close()

	keys, err := a.Manager.Keys(ctx)
	if err != nil {
		fatal(err)
	}
	for _, k := range keys {
		fmt.Println(k)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", "config/config.yaml", "path to configuration file")
	outPath := fs.String("out", "", "output file (default stdout)")
	fs.Parse(args)

	ctx := context.Background()
	a := open(ctx, *configPath)
	defer a.Close()

	bundle, err := a.Manager.Export(ctx)
	if err != nil {
		fatal(err)
	}
	if *outPath == "" {
		fmt.Println(string(bundle))
		return
	}
	if err := os.WriteFile(*outPath, bundle, 0o644); err != nil {
		fatal(err)
	}
}

func runImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", "config/config.yaml", "path to configuration file")
	inPath := fs.String("in", "", "bundle file to import")
	confirm := fs.Bool("confirm", false, "replace every stored builder")
	fs.Parse(args)

	raw, err := os.ReadFile(*inPath)
	if err != nil {
		fatal(err)
	}

	ctx := context.Background()
	a := open(ctx, *configPath)
	defer a.Close()

	backupKey, err := a.Manager.Import(ctx, raw, *confirm)
	if err != nil {
		a.Close()
		fatal(err)
	}
	fmt.Printf("imported; previous state saved as %s\n", backupKey)
}

func runHashPassword(args []string) {
	if len(args) != 1 {
		printUsage()
		os.Exit(1)
	}
	hash, err := server.HashPassword(args[0])
	if err != nil {
		fatal(err)
	}
	fmt.Println(hash)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
