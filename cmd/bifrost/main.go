package main

import (
    "context"
    "errors"
    "flag"
    "fmt"
    "log/slog"
    "os"
    "os/signal"
    "strconv"
    "strings"
    "syscall"

    "bifrost/internal/config"
    "bifrost/internal/version"
)

const usage = `usage: bifrost <command> [flags]

commands:
  filter    filter a Y4M clip (default)
  diffs     precompute the luma-diff sidecar of a clip
  snapshot  write a before/after/decision PNG of one frame
  serve     stream the filtered clip to WHEP viewers
  version   print the version

Run "bifrost <command> -h" for the flags of a command.
`

type command func(ctx context.Context, args []string) error

var commands = map[string]command{
    "filter":   runFilter,
    "diffs":    runDiffs,
    "snapshot": runSnapshot,
    "serve":    runServe,
    "version": func(context.Context, []string) error {
        fmt.Println("bifrost", version.String())
        return nil
    },
}

func main() {
    args := os.Args[1:]
    name := "filter"
    if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
        name, args = args[0], args[1:]
    }
    if name == "help" {
        fmt.Fprint(os.Stderr, usage)
        return
    }
    cmd, ok := commands[name]
    if !ok {
        fmt.Fprintf(os.Stderr, "bifrost: unknown command %q\n\n%s", name, usage)
        os.Exit(2)
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    err := cmd(ctx, args)
    stop()
    switch {
    case err == nil, errors.Is(err, flag.ErrHelp):
    case errors.Is(err, context.Canceled):
        slog.Warn("bifrost: interrupted")
        os.Exit(130)
    default:
        slog.Error("bifrost: "+name+" failed", "err", err)
        os.Exit(1)
    }
}

// flags is the flag set shared by every command: a config file, debug
// logging and the filter settings. Defaults come from the environment.
type flags struct {
    *flag.FlagSet
    cfg   config.Config
    path  string
    debug bool
}

func newFlags(name string) *flags {
    f := &flags{FlagSet: flag.NewFlagSet("bifrost "+name, flag.ContinueOnError), cfg: config.Default()}
    d := &f.cfg
    f.StringVar(&f.path, "config", getEnv("BIFROST_CONFIG", ""), "YAML config file; flags given on the command line override it")
    f.BoolVar(&f.debug, "debug", getEnvBool("BIFROST_DEBUG", false), "debug logging")
    f.StringVar(&d.Input, "i", getEnv("BIFROST_INPUT", ""), "input Y4M clip")
    f.StringVar(&d.AltInput, "alt", getEnv("BIFROST_ALTCLIP", ""), "alternate Y4M clip used for fallback blocks (default: input)")
    f.StringVar(&d.Diffs, "diffs", getEnv("BIFROST_DIFFS", ""), "luma-diff sidecar file")
    f.IntVar(&d.Workers, "workers", getEnvInt("BIFROST_WORKERS", 0), "concurrent frames (0 = GOMAXPROCS)")
    f.Float64Var(&d.Filter.LumaThresh, "luma-thresh", getEnvFloat("BIFROST_LUMA_THRESH", d.Filter.LumaThresh), "scene change threshold per luma sample")
    f.IntVar(&d.Filter.Variation, "variation", getEnvInt("BIFROST_VARIATION", d.Filter.Variation), "chroma swing tolerance")
    f.BoolVar(&d.Filter.ConservativeMask, "conservative", getEnvBool("BIFROST_CONSERVATIVE", false), "disable vertical mask expansion")
    f.BoolVar(&d.Filter.Interlaced, "interlaced", getEnvBool("BIFROST_INTERLACED", d.Filter.Interlaced), "filter fields separately")
    f.BoolVar(&d.Filter.TopFieldFirst, "tff", getEnvBool("BIFROST_TFF", d.Filter.TopFieldFirst), "top field first")
    f.IntVar(&d.Filter.BlockX, "blockx", getEnvInt("BIFROST_BLOCKX", d.Filter.BlockX), "block width in luma samples")
    f.IntVar(&d.Filter.BlockY, "blocky", getEnvInt("BIFROST_BLOCKY", d.Filter.BlockY), "block height in luma samples")
    return f
}

// parse parses args, applies the config file under the explicit flags and
// sets up logging.
func (f *flags) parse(args []string) error {
    if err := f.Parse(args); err != nil { return err }
    explicit := map[string]string{}
    f.Visit(func(fl *flag.Flag) { explicit[fl.Name] = fl.Value.String() })
    if f.path != "" {
        loaded, err := config.Load(f.path)
        if err != nil { return err }
        f.cfg = *loaded
        for name, v := range explicit {
            if err := f.Set(name, v); err != nil { return err }
        }
    }
    level := slog.LevelInfo
    if f.debug { level = slog.LevelDebug }
    slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
    if err := config.Validate(&f.cfg); err != nil { return err }
    if f.cfg.Input == "" { return errors.New("no input clip (-i)") }
    return nil
}

func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func getEnvInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        if x, err := strconv.Atoi(v); err == nil { return x }
    }
    return def
}

func getEnvFloat(key string, def float64) float64 {
    if v := os.Getenv(key); v != "" {
        if x, err := strconv.ParseFloat(v, 64); err == nil { return x }
    }
    return def
}

func getEnvBool(key string, def bool) bool {
    if v := os.Getenv(key); v != "" {
        if x, err := strconv.ParseBool(v); err == nil { return x }
    }
    return def
}
