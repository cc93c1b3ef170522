// agrichainctl — консольный клиент сервиса аутентификации.
//
//	agrichainctl [--url URL] [--session FILE] signup --name N --email E --role R
//	agrichainctl signin --email E
//	agrichainctl refresh | verify | profile | logout
//
// Пароль читается с терминала без эха. Пара токенов хранится в файле
// сессии (по умолчанию в пользовательском каталоге конфигурации).
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/pribylovaa/agrichain-auth/internal/client"
)

const defaultURL = "http://localhost:5000/api"

// readPassword — шов для тестов вместо term.ReadPassword.
var readPassword = term.ReadPassword

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("agrichainctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("url", envOr("AGRICHAIN_API_URL", defaultURL), "API base URL including /api")
	sessionPath := fs.String("session", defaultSessionPath(), "session file")
	timeout := fs.Duration("timeout", client.DefaultTimeout, "request timeout")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: agrichainctl [flags] signup|signin|refresh|verify|profile|logout")
		return 2
	}

	c := client.New(client.Config{BaseURL: *baseURL, Timeout: *timeout}, client.NewSession(), client.NewFileStore(*sessionPath))

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	in := bufio.NewReader(stdin)

	var err error
	switch cmd {
	case "signup":
		err = signup(ctx, c, rest, in, stdout, stderr)
	case "signin":
		err = signin(ctx, c, rest, in, stdout, stderr)
	case "refresh":
		err = withSession(c, func() error {
			if err := c.RefreshToken(ctx); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "tokens refreshed")
			return nil
		})
	case "verify":
		err = withSession(c, func() error {
			u, err := c.VerifyToken(ctx)
			if err != nil {
				return err
			}
			return printJSON(stdout, u)
		})
	case "profile":
		err = withSession(c, func() error {
			u, err := c.Profile(ctx)
			if err != nil {
				return err
			}
			return printJSON(stdout, u)
		})
	case "logout":
		err = c.Logout()
		if err == nil {
			fmt.Fprintln(stdout, "logged out")
		}
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		return 2
	}

	if err != nil {
		fmt.Fprintln(stderr, "error:", describe(err))
		return 1
	}

	return 0
}

func signup(ctx context.Context, c *client.Client, args []string, in *bufio.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email")
	role := fs.String("role", "farmer", "admin|farmer|retailer|transporter|manager|regulator")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := password(in, stderr)
	if err != nil {
		return err
	}

	u, err := c.Register(ctx, client.SignupInput{Name: *name, Email: *email, Password: pw, Role: *role})
	if err != nil {
		return err
	}

	return printJSON(stdout, u)
}

func signin(ctx context.Context, c *client.Client, args []string, in *bufio.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("signin", flag.ContinueOnError)
	fs.SetOutput(stderr)
	email := fs.String("email", "", "email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := password(in, stderr)
	if err != nil {
		return err
	}

	u, err := c.Login(ctx, *email, pw)
	if err != nil {
		return err
	}

	return printJSON(stdout, u)
}

// withSession восстанавливает сессию из файла перед командой.
func withSession(c *client.Client, fn func() error) error {
	ok, err := c.Restore()
	if err != nil {
		return err
	}
	if !ok {
		return client.ErrNotAuthenticated
	}

	return fn()
}

// password читает пароль без эха с терминала, иначе — строку со stdin.
func password(in *bufio.Reader, prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "Password: ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := readPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrSessionExpired), errors.Is(err, client.ErrNotAuthenticated):
		return "not signed in, run: agrichainctl signin --email <email>"
	case errors.As(err, &apiErr):
		return fmt.Sprintf("%s (HTTP %d)", apiErr.Message, apiErr.Status)
	case errors.Is(err, client.ErrTimeout):
		return "request timed out"
	case errors.Is(err, client.ErrNetwork):
		return "server unreachable"
	default:
		return err.Error()
	}
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}

	return filepath.Join(dir, "agrichain", "session.json")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
