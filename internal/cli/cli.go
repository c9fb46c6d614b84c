// Package cli implements storectl, the command-line companion of the admin
// UI. It signs in against the same backend and keeps its tokens in a local
// SQLite file, so one login serves many invocations.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"mobilestore/internal/api"
	"mobilestore/internal/session"
	"mobilestore/internal/tokens"
)

const usage = `usage: storectl [-server URL] [-db PATH] <command> [args]

commands:
  login -email EMAIL [-password PASSWORD]   sign in (password from STORECTL_PASSWORD or stdin)
  logout                                    sign out and forget stored tokens
  whoami                                    show the signed-in admin
  import FILE.csv                           bulk-create products from a CSV file
  example-csv [FILE]                        write the example import file (stdout by default)
  export-feedback [-o FILE]                 write all feedback as CSV
  stats                                     show dashboard statistics
  clear-cache                               clear the backend cache
`

// Options are the global flags, with environment fallbacks.
type Options struct {
	Server  string
	DB      string
	Secret  string
	Timeout time.Duration
}

var errUsage = errors.New("usage")

// ParseFlags reads the global flags and returns the remaining command line.
func ParseFlags(args []string, stderr io.Writer) (Options, []string, error) {
	var o Options
	fs := flag.NewFlagSet("storectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	fs.StringVar(&o.Server, "server", "", "backend base URL (env STORECTL_SERVER, API_BASE_URL)")
	fs.StringVar(&o.DB, "db", "", "token database path (env STORECTL_DB)")
	fs.DurationVar(&o.Timeout, "timeout", 30*time.Second, "per-request timeout")
	if err := fs.Parse(args); err != nil {
		return Options{}, nil, err
	}

	// Fall back to environment variables
	if o.Server == "" {
		o.Server = firstEnv("STORECTL_SERVER", "API_BASE_URL")
	}
	if o.Server == "" {
		o.Server = "http://localhost:5000/api"
	}
	if o.DB == "" {
		o.DB = firstEnv("STORECTL_DB")
	}
	if o.DB == "" {
		o.DB = "storectl.db"
	}
	o.Secret = os.Getenv("TOKEN_SECRET")

	if fs.NArg() == 0 {
		fs.Usage()
		return Options{}, nil, errUsage
	}
	return o, fs.Args(), nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// env is what every command gets.
type env struct {
	sess   *session.Manager
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"login":           cmdLogin,
	"logout":          cmdLogout,
	"whoami":          cmdWhoami,
	"import":          cmdImport,
	"example-csv":     cmdExampleCSV,
	"export-feedback": cmdExportFeedback,
	"stats":           cmdStats,
	"clear-cache":     cmdClearCache,
}

// Run executes one storectl invocation and returns the process exit code:
// 0 on success, 1 when the command failed, 2 on a usage error.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, rest, err := ParseFlags(args, stderr)
	if err != nil {
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "storectl: unknown command %q\n\n%s", rest[0], usage)
		return 2
	}

	store, closeStore, err := tokens.Open(ctx, tokens.Options{Kind: "sqlite", DSN: opts.DB, Secret: opts.Secret})
	if err != nil {
		fmt.Fprintf(stderr, "storectl: %v\n", err)
		return 1
	}
	defer closeStore()

	client := api.New(opts.Server, api.WithTimeout(opts.Timeout))
	e := &env{
		sess:   session.NewManager(client, tokens.NewKeeper(store, "")),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
	if err := cmd(ctx, e, rest[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintf(stderr, "storectl: %s\n", describe(err))
		return 1
	}
	return 0
}

var errNotSignedIn = errors.New("not signed in; run storectl login")

// requireAdmin restores the stored session and fails when nobody is signed in.
func (e *env) requireAdmin(ctx context.Context) error {
	e.sess.Initialize(ctx)
	u := e.sess.CurrentUser()
	if u == nil {
		return errNotSignedIn
	}
	if !u.IsAdmin() {
		return fmt.Errorf("%s is not an admin", u.Email)
	}
	return nil
}

func describe(err error) string {
	var apiErr *api.Error
	switch {
	case errors.Is(err, api.ErrSessionExpired):
		return "session expired; run storectl login"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	}
	return err.Error()
}

func readLine(r io.Reader) (string, error) {
	s := bufio.NewScanner(r)
	if s.Scan() {
		return strings.TrimRight(s.Text(), "\r"), nil
	}
	if err := s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
