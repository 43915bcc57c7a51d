package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"sort"
	"strings"
	"syscall"
	"time"

	"mycloud/pkg/client"
	"mycloud/pkg/log"
	"mycloud/pkg/models"

	"github.com/dustin/go-humanize"
)

const (
	defaultServerURL = "http://127.0.0.1:9000"
	outputFilePerm   = 0o644
)

//go:embed VERSION
var Version string

var errUsage = errors.New("usage")

type cli struct {
	client *client.Client
	out    io.Writer
}

func main() {
	_ = log.Logger

	serverURL := flag.String("server", defaultServerURL, "Server URL")
	user := flag.String("user", os.Getenv("USER"), "User name to log in as")
	timeout := flag.Duration("timeout", client.DefaultTimeout, "HTTP timeout")
	retries := flag.Int("retries", client.DefaultRetryMax, "Retries on connection errors")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = usage
	flag.Parse()

	if *debug {
		log.SetDebugMode()
	}

	c, err := client.New(client.Config{
		BaseURL:  *serverURL,
		RetryMax: *retries,
		Timeout:  *timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Debug().Str("server", *serverURL).Str("user", *user).Str("version", strings.TrimSpace(Version)).Msg("Logging in")
	if err := c.Login(ctx, *user); err != nil {
		log.Fatal().Err(err).Str("user", *user).Msg("Login failed")
	}

	app := &cli{client: c, out: os.Stdout}
	if err := app.run(ctx, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: %s [flags] <command> [args]

Commands:
  ls                      list the files namespace
  gallery                 list the gallery namespace
  put <dir> [files...]    upload files into dir
  get <path> [out]        download a file (out defaults to its base name, "-" is stdout)
  quota                   show quota usage

Flags:
`, os.Args[0])
	flag.PrintDefaults()
}

func (a *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "ls":
		return a.list(ctx, a.client.ListFiles)
	case "gallery":
		return a.list(ctx, a.client.ListGallery)
	case "put":
		if len(args) < 2 {
			return errUsage
		}
		return a.put(ctx, args[1], args[2:])
	case "get":
		if len(args) < 2 || len(args) > 3 {
			return errUsage
		}
		out := path.Base(args[1])
		if len(args) == 3 {
			out = args[2]
		}
		return a.get(ctx, args[1], out)
	case "quota":
		return a.quota(ctx)
	}

	return errUsage
}

func (a *cli) list(ctx context.Context, fetch func(context.Context) (*models.DirectoryTree, error)) error {
	tree, err := fetch(ctx)
	if err != nil {
		return err
	}

	printTree(a.out, tree, "")
	fmt.Fprintf(a.out, "%d files, %s\n", tree.FileCount(), humanize.IBytes(uint64(tree.TotalSize())))
	return nil
}

func printTree(w io.Writer, tree *models.DirectoryTree, indent string) {
	names := make([]string, 0, len(tree.Subdirectories))
	for name := range tree.Subdirectories {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(w, "%s%s/\n", indent, name)
		printTree(w, tree.Subdirectories[name], indent+"  ")
	}

	files := append([]models.FileNode(nil), tree.Files...)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	for _, file := range files {
		fmt.Fprintf(w, "%s%-32s %10s  %s\n", indent, file.Name,
			humanize.IBytes(uint64(file.Size)),
			humanize.Time(time.Unix(file.LastModified, 0)))
	}
}

func (a *cli) put(ctx context.Context, dir string, files []string) error {
	var total int64
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			return err
		}
		total += info.Size()
	}

	if err := a.client.Upload(ctx, dir, files...); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "uploaded %d files (%s) to %q\n", len(files), humanize.IBytes(uint64(total)), dir)
	return nil
}

func (a *cli) get(ctx context.Context, remote, out string) (err error) {
	var w io.Writer = a.out
	if out != "-" {
		var file *os.File
		file, err = os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFilePerm)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := file.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		w = file
	}

	n, err := a.client.Download(ctx, remote, w)
	if err != nil {
		if out != "-" {
			_ = os.Remove(out)
		}
		return err
	}

	if out != "-" {
		fmt.Fprintf(a.out, "downloaded %s to %s\n", humanize.IBytes(uint64(n)), out)
	}
	return nil
}

func (a *cli) quota(ctx context.Context) error {
	status, err := a.client.Quota(ctx)
	if err != nil {
		return err
	}

	if status.Role == models.RoleAdmin {
		fmt.Fprintf(a.out, "role: %s (unlimited)\n", status.Role)
		return nil
	}

	percent := 0.0
	if status.Max > 0 {
		percent = float64(status.Used) / float64(status.Max) * 100
	}
	fmt.Fprintf(a.out, "role: %s\nused: %s of %s (%.1f%%)\n", status.Role,
		humanize.IBytes(uint64(status.Used)), humanize.IBytes(uint64(status.Max)), percent)
	return nil
}
