package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-authgate/returnguard/internal/redirect"
	"github.com/go-authgate/returnguard/internal/version"

	"github.com/urfave/cli/v2"
)

var appHelpTemplate = `{{.Name}} - {{.Usage}}

USAGE:
  {{.Name}} [options] TARGET...
  cat targets.txt | {{.Name}} [options]

OPTIONS:
  {{range .Flags}}{{.}}
  {{end}}
`

// errRejected makes --strict exit non-zero without printing anything extra.
var errRejected = cli.Exit("", 1)

type checkResult struct {
	Input string `json:"input"`
	redirect.Result
}

func newApp(stdin io.Reader, stdout io.Writer) *cli.App {
	app := cli.NewApp()

	app.Name = "redirect-check"
	app.Version = version.Short()
	app.Usage = "check redirect targets against a ReturnGuard policy"
	app.CustomAppHelpTemplate = appHelpTemplate
	app.Reader = stdin
	app.Writer = stdout
	app.Flags = []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "allow-origin",
			Usage:   "allowlisted https origin (repeatable)",
			EnvVars: []string{"REDIRECT_ALLOWED_ORIGINS"},
		},
		&cli.StringFlag{
			Name:  "default-path",
			Value: redirect.DefaultPath,
			Usage: "path returned for empty or rejected targets",
		},
		&cli.StringSliceFlag{
			Name:  "deny-scheme",
			Usage: "additional scheme to reject, e.g. myapp (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "print one JSON object per target",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "exit with status 1 if any target is rejected",
		},
	}
	app.Action = run
	return app
}

func run(c *cli.Context) error {
	origins, err := redirect.NormalizeOrigins(c.StringSlice("allow-origin"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid --allow-origin: %v", err), 2)
	}
	opts := redirect.Options{
		DefaultPath:        c.String("default-path"),
		AllowedOrigins:     origins,
		ExtraDeniedSchemes: c.StringSlice("deny-scheme"),
	}

	targets := c.Args().Slice()
	if len(targets) == 0 {
		targets, err = readLines(c.App.Reader)
		if err != nil {
			return cli.Exit(fmt.Sprintf("could not read stdin: %v", err), 2)
		}
	}

	out := bufio.NewWriter(c.App.Writer)
	defer out.Flush()

	enc := json.NewEncoder(out)
	rejected := false
	for _, target := range targets {
		result := redirect.Sanitize(target, opts)
		rejected = rejected || result.WasRejected

		if c.Bool("json") {
			if err := enc.Encode(checkResult{Input: target, Result: result}); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", status(result), result.Sanitized, target)
	}

	if rejected && c.Bool("strict") {
		return errRejected
	}
	return nil
}

func status(r redirect.Result) string {
	if r.WasRejected {
		return "rejected(" + r.RejectionReason.String() + ")"
	}
	return "ok"
}

// readLines returns the non-blank lines of r. Lines keep their inner
// whitespace so the sanitizer sees the input as given.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func main() {
	if err := newApp(os.Stdin, os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
