// Command tempbin uploads files to an S3-compatible bucket and prints
// time-limited download links.
//
// Usage:
//
//	tempbin upload <file> [-key name] [-content-type ct]
//	tempbin link -key <key> [-expires 10m]
//	tempbin delete -key <key>
//	tempbin cors-get
//	tempbin cors-put -origins https://a.example,https://b.example
//	tempbin lifecycle -days 7 [-prefix tmp/]
//
// Credentials come from the config file (see -config) or TEMPBIN_*
// environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/kazeochan/tempbin"
	"github.com/kazeochan/tempbin/config"
	"github.com/kazeochan/tempbin/tbtypes"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "tempbin:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("tempbin", flag.ExitOnError)
	configPath := global.String("config", config.DefaultPath(), "config file path")
	verbose := global.Bool("verbose", false, "enable debug logging")
	global.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: tempbin [flags] <upload|link|delete|cors-get|cors-put|lifecycle> ...")
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return fmt.Errorf("no command given")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	opts := []tbtypes.Option{
		tempbin.WithLogger(logger),
		tempbin.WithUploadPolicy(cfg.Policy()),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, tempbin.WithEndpoint(cfg.Endpoint))
	}
	client, err := tempbin.New(cfg.Credentials(), opts...)
	if err != nil {
		return err
	}

	ctx := context.Background()
	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "upload":
		return cmdUpload(ctx, client, rest)
	case "link":
		return cmdLink(client, rest)
	case "delete":
		return cmdDelete(ctx, client, rest)
	case "cors-get":
		return cmdCORSGet(ctx, client)
	case "cors-put":
		return cmdCORSPut(ctx, client, rest)
	case "lifecycle":
		return cmdLifecycle(ctx, client, rest)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdUpload(ctx context.Context, client *tempbin.Client, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	key := fs.String("key", "", "object key (defaults to the file name)")
	contentType := fs.String("content-type", "", "override content type detection")
	quiet := fs.Bool("quiet", false, "suppress the progress display")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("upload needs exactly one file argument")
	}
	path := fs.Arg(0)
	if *key == "" {
		*key = filepath.Base(path)
	}

	var opts []tbtypes.UploadOption
	if *contentType != "" {
		opts = append(opts, tempbin.WithContentType(*contentType))
	}
	if !*quiet {
		opts = append(opts, tempbin.WithProgress(func(percent float64) {
			fmt.Fprintf(os.Stderr, "\r%6.2f%%", percent)
		}))
	}

	res, err := client.UploadFile(ctx, *key, path, opts...)
	if !*quiet {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}
	fmt.Println(res.URL)
	return nil
}

func cmdLink(client *tempbin.Client, args []string) error {
	fs := flag.NewFlagSet("link", flag.ExitOnError)
	key := fs.String("key", "", "object key")
	expires := fs.Duration("expires", tbtypes.DefaultShareExpiry, "link validity window")
	if err := fs.Parse(args); err != nil {
		return err
	}
	url, err := client.ShareURL(*key, tempbin.WithExpiry(*expires))
	if err != nil {
		return err
	}
	fmt.Println(url)
	return nil
}

func cmdDelete(ctx context.Context, client *tempbin.Client, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	key := fs.String("key", "", "object key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return client.Delete(ctx, *key)
}

func cmdCORSGet(ctx context.Context, client *tempbin.Client) error {
	configured, err := client.GetCORS(ctx)
	if err != nil {
		return err
	}
	if configured {
		fmt.Println("CORS is configured")
	} else {
		fmt.Println("no CORS configuration")
	}
	return nil
}

func cmdCORSPut(ctx context.Context, client *tempbin.Client, args []string) error {
	fs := flag.NewFlagSet("cors-put", flag.ExitOnError)
	origins := fs.String("origins", "", "comma-separated allowed origins")
	methods := fs.String("methods", "PUT,GET,HEAD", "comma-separated allowed methods")
	maxAge := fs.Int("max-age", 3600, "preflight cache lifetime in seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *origins == "" {
		return fmt.Errorf("cors-put needs -origins")
	}
	return client.PutCORS(ctx, []tbtypes.CORSRule{{
		AllowedOrigins: strings.Split(*origins, ","),
		AllowedMethods: strings.Split(*methods, ","),
		AllowedHeaders: []string{"*"},
		MaxAgeSeconds:  *maxAge,
	}})
}

func cmdLifecycle(ctx context.Context, client *tempbin.Client, args []string) error {
	fs := flag.NewFlagSet("lifecycle", flag.ExitOnError)
	days := fs.Int("days", 7, "delete objects this many days after upload")
	prefix := fs.String("prefix", "", "limit the rule to keys with this prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return client.PutLifecycle(ctx, []tbtypes.LifecycleRule{{
		ID:              "tempbin-expire",
		Prefix:          *prefix,
		ExpireAfterDays: *days,
	}})
}
