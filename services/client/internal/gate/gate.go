package gate

import (
	"log/slog"
	"strings"
	"sync"

	"librarycatalog/pkg/domain"
)

// State is the authorization state of the client.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Route names.
const (
	RootPath         = "/"
	LoginPath        = "/login"
	RegisterPath     = "/register"
	BooksPath        = "/books"
	AddBookPath      = "/books/add"
	TransactionsPath = "/transactions"
)

// Outcome is what navigation to a path resolves to.
type Outcome int

const (
	Allow Outcome = iota
	Redirect
	NotFound
)

// Decision is the result of Resolve. When Outcome is Redirect, Target is the
// destination; From is the originally requested path when the redirect is a
// login challenge.
type Decision struct {
	Outcome Outcome
	Path    string
	Target  string
	From    string
}

// TokenSource reports the current bearer token.
type TokenSource interface {
	Token() string
}

// Subscriber is implemented by the session store.
type Subscriber interface {
	Subscribe(fn func(domain.Session, bool)) func()
}

// Gate decides which views may be shown, keyed only on whether a token exists.
type Gate struct {
	tokens TokenSource
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	returnTo string
	cancel   func()
}

// New builds a gate. When tokens also implements Subscriber the gate follows
// session changes and logs transitions.
func New(tokens TokenSource, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{tokens: tokens, logger: logger, state: stateFor(tokens.Token())}
	if sub, ok := tokens.(Subscriber); ok {
		g.cancel = sub.Subscribe(func(s domain.Session, ok bool) {
			g.observe(ok && s.Token != "")
		})
	}
	return g
}

// Close stops following the session.
func (g *Gate) Close() {
	if g.cancel != nil {
		g.cancel()
	}
}

// State returns the current state, read from the token source.
func (g *Gate) State() State {
	return stateFor(g.tokens.Token())
}

// Resolve decides what happens when path is requested.
func (g *Gate) Resolve(path string) Decision {
	path = normalize(path)
	state := g.State()
	switch {
	case path == RootPath:
		if state == Authenticated {
			return Decision{Outcome: Redirect, Path: path, Target: BooksPath}
		}
		return Decision{Outcome: Redirect, Path: path, Target: LoginPath}
	case path == LoginPath || path == RegisterPath:
		if state == Authenticated {
			return Decision{Outcome: Redirect, Path: path, Target: BooksPath}
		}
		return Decision{Outcome: Allow, Path: path}
	case IsProtected(path):
		if state == Authenticated {
			return Decision{Outcome: Allow, Path: path}
		}
		g.mu.Lock()
		g.returnTo = path
		g.mu.Unlock()
		return Decision{Outcome: Redirect, Path: path, Target: LoginPath, From: path}
	default:
		return Decision{Outcome: NotFound, Path: path}
	}
}

// AfterLogin returns and clears the path a login challenge interrupted,
// defaulting to the book list.
func (g *Gate) AfterLogin() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	target := g.returnTo
	g.returnTo = ""
	if target == "" {
		return BooksPath
	}
	return target
}

// IsProtected reports whether path needs a session.
func IsProtected(path string) bool {
	path = normalize(path)
	switch path {
	case BooksPath, AddBookPath, TransactionsPath:
		return true
	}
	for _, prefix := range []string{BooksPath + "/", TransactionsPath + "/"} {
		if rest, ok := strings.CutPrefix(path, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			return true
		}
	}
	return false
}

func (g *Gate) observe(authenticated bool) {
	next := Unauthenticated
	if authenticated {
		next = Authenticated
	}
	g.mu.Lock()
	prev := g.state
	g.state = next
	g.mu.Unlock()
	if prev != next {
		g.logger.Info("authorization state changed", "from", prev.String(), "to", next.String())
	}
}

func stateFor(token string) State {
	if token != "" {
		return Authenticated
	}
	return Unauthenticated
}

func normalize(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return RootPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
