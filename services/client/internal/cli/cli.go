package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"librarycatalog/services/client/internal/app"
	"librarycatalog/services/client/internal/gate"
)

// ErrLoginRequired is returned when a protected view is requested without a session.
var ErrLoginRequired = errors.New("login required: run `libcat login` first")

// UsageError is a malformed command line. It maps to exit code 2.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

func usagef(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

type command struct {
	usage   string
	summary string
	run     func(ctx context.Context, args []string) error
}

// Runner executes libcat commands against a wired App.
type Runner struct {
	app    *app.App
	prompt *Prompter
	out    io.Writer
	errOut io.Writer

	commands map[string]command
	view     string
}

// New builds a runner. Command output goes to out; prompts and notices to errOut.
func New(a *app.App, prompt *Prompter, out, errOut io.Writer) *Runner {
	r := &Runner{app: a, prompt: prompt, out: out, errOut: errOut, view: gate.RootPath}
	r.commands = map[string]command{
		"login":        {"login [-email E] [-password P]", "log in and save the session", r.cmdLogin},
		"register":     {"register [-username U] [-email E] [-password P] [-confirm P]", "create an account and log in", r.cmdRegister},
		"logout":       {"logout", "forget the saved session", r.cmdLogout},
		"whoami":       {"whoami", "show the logged in user", r.cmdWhoami},
		"genres":       {"genres", "list genres", r.cmdGenres},
		"books":        {"books [-search S] [-genre ID] [-sort title|createdAt] [-page N]", "list books", r.cmdBooks},
		"book":         {"book <id>", "show one book", r.cmdBook},
		"add-book":     {"add-book -title T -writer W -price P -stock N [-description D] [-publisher P] [-year Y] [-genre ID] [-cover PATH|s3://bucket/key]", "add a book", r.cmdAddBook},
		"delete-book":  {"delete-book <id>", "delete a book", r.cmdDeleteBook},
		"borrow":       {"borrow <book-id>", "borrow one copy of a book", r.cmdBorrow},
		"transactions": {"transactions", "list your loans", r.cmdTransactions},
		"transaction":  {"transaction <id>", "show one loan", r.cmdTransaction},
		"shell":        {"shell", "interactive session", r.cmdShell},
	}
	return r
}

// Run dispatches args[0] to its command.
func (r *Runner) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		r.Usage(r.errOut)
		return usagef("missing command")
	}
	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		r.Usage(r.out)
		return nil
	}
	cmd, ok := r.commands[name]
	if !ok {
		r.Usage(r.errOut)
		return usagef("unknown command %q", name)
	}
	if err := cmd.run(ctx, args[1:]); err != nil && !errors.Is(err, flag.ErrHelp) {
		return err
	}
	return nil
}

// Usage prints the command list.
func (r *Runner) Usage(w io.Writer) {
	fmt.Fprintln(w, "usage: libcat [-config path] [-env path] [-yes] <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-13s %s\n", name, r.commands[name].summary)
	}
}

func (r *Runner) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(r.errOut)
	fs.Usage = func() {
		fmt.Fprintf(r.errOut, "usage: libcat %s\n", r.commands[name].usage)
	}
	return fs
}

func (r *Runner) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usagef("%s: %v", fs.Name(), err)
	}
	return nil
}

// enter checks path against the gate. A login challenge becomes
// ErrLoginRequired.
func (r *Runner) enter(path string) error {
	d := r.app.Gate.Resolve(path)
	switch d.Outcome {
	case gate.Allow:
		return nil
	case gate.NotFound:
		return fmt.Errorf("no such view: %s", d.Path)
	}
	if d.Target == gate.LoginPath {
		return ErrLoginRequired
	}
	return nil
}

func oneArg(name string, args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", usagef("%s requires exactly one id", name)
	}
	return strings.TrimSpace(args[0]), nil
}

func (r *Runner) askIfEmpty(value *string, label string) error {
	if strings.TrimSpace(*value) != "" {
		return nil
	}
	answer, err := r.prompt.Ask(label)
	if err != nil {
		return fmt.Errorf("read %s: %w", strings.TrimSuffix(label, ":"), err)
	}
	*value = answer
	return nil
}
