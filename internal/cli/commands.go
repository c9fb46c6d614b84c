package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"mobilestore/internal/importer"
	applog "mobilestore/internal/log"
	"mobilestore/internal/services"
	"mobilestore/internal/validate"
)

func subFlags(name string, e *env) *flag.FlagSet {
	fs := flag.NewFlagSet("storectl "+name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

func cmdLogin(ctx context.Context, e *env, args []string) error {
	fs := subFlags("login", e)
	email := fs.String("email", os.Getenv("STORECTL_EMAIL"), "admin email")
	password := fs.String("password", "", "password (prefer STORECTL_PASSWORD or stdin)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	addr, ok := validate.Email(*email)
	if !ok {
		fmt.Fprintln(e.stderr, "storectl login: a valid -email is required")
		return errUsage
	}
	pass := *password
	if pass == "" {
		pass = os.Getenv("STORECTL_PASSWORD")
	}
	if pass == "" {
		fmt.Fprint(e.stderr, "Password: ")
		line, err := readLine(e.stdin)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		pass = line
	}

	u, err := e.sess.Login(ctx, addr, pass)
	if err != nil {
		applog.Security(nil, "cli.login.fail", map[string]any{"email": addr})
		return err
	}
	applog.Audit(nil, "cli.login.success", map[string]any{"email": u.Email})
	fmt.Fprintf(e.stdout, "Signed in as %s (%s)\n", u.Email, u.Role)
	return nil
}

func cmdLogout(ctx context.Context, e *env, _ []string) error {
	if err := e.sess.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, "Signed out")
	return nil
}

func cmdWhoami(ctx context.Context, e *env, _ []string) error {
	if err := e.requireAdmin(ctx); err != nil {
		return err
	}
	u := e.sess.CurrentUser()
	fmt.Fprintf(e.stdout, "%s <%s> role=%s\n", u.DisplayName(), u.Email, u.Role)
	return nil
}

func cmdImport(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(e.stderr, "storectl import: exactly one CSV file is required")
		return errUsage
	}
	if err := e.requireAdmin(ctx); err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	im := &importer.Importer{
		Client: e.sess.Client(),
		OnRow: func(line int, name string, err error) {
			if err != nil {
				fmt.Fprintf(e.stderr, "line %d (%s): %s\n", line, name, describe(err))
			}
		},
	}
	res, err := im.Import(ctx, f)
	if err != nil && res.Total() == 0 {
		return err
	}
	fmt.Fprintf(e.stdout, "Imported %d of %d rows, %d failed\n", res.Success, res.Total(), res.Failed)
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d rows failed", res.Failed)
	}
	return nil
}

func cmdExampleCSV(_ context.Context, e *env, args []string) error {
	if len(args) == 0 || args[0] == "-" {
		return importer.WriteExample(e.stdout)
	}
	return writeFile(args[0], importer.WriteExample)
}

func cmdExportFeedback(ctx context.Context, e *env, args []string) error {
	fs := subFlags("export-feedback", e)
	out := fs.String("o", "", "output file (default feedbacks_<timestamp>.csv, - for stdout)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := e.requireAdmin(ctx); err != nil {
		return err
	}
	list, err := services.NewFeedbackService(e.sess.Client()).ListAll(ctx)
	if err != nil {
		return err
	}
	write := func(w io.Writer) error { return services.ExportCSV(w, list, time.Local) }
	if *out == "-" {
		return write(e.stdout)
	}
	path := *out
	if path == "" {
		path = services.ExportFilename(time.Now())
	}
	if err := writeFile(path, write); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Wrote %d feedback entries to %s\n", len(list), path)
	return nil
}

func cmdStats(ctx context.Context, e *env, _ []string) error {
	if err := e.requireAdmin(ctx); err != nil {
		return err
	}
	st, err := services.NewDashboardService(e.sess.Client()).Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Products:   %d\nCategories: %d\nBrands:     %d\n", st.TotalProducts, st.TotalCategories, st.TotalBrands)
	fmt.Fprintf(e.stdout, "Cache:      %d entries (%d active, %d expired)\n",
		st.CacheStats.TotalEntries, st.CacheStats.ActiveEntries, st.CacheStats.ExpiredEntries)
	for _, p := range st.PopularSearches {
		fmt.Fprintf(e.stdout, "  %-20s %d\n", p.Query, p.Count)
	}
	return nil
}

func cmdClearCache(ctx context.Context, e *env, _ []string) error {
	if err := e.requireAdmin(ctx); err != nil {
		return err
	}
	st, err := services.NewDashboardService(e.sess.Client()).ClearCache(ctx)
	if err != nil {
		return err
	}
	applog.Audit(nil, "cli.cache.clear", nil)
	fmt.Fprintf(e.stdout, "Cache cleared, %d entries remain\n", st.CacheStats.TotalEntries)
	return nil
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := fn(f); err != nil {
		return errors.Join(err, os.Remove(path))
	}
	return nil
}
