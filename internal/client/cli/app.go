package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dmitrijs2005/workout/internal/client/api"
	"github.com/dmitrijs2005/workout/internal/client/config"
)

// apiClient is the part of *api.Client the commands use.
type apiClient interface {
	SetToken(token string)
	HasToken() bool
	Health(ctx context.Context) (*api.Health, error)
	Me(ctx context.Context) (*api.User, error)
	CreateMessage(ctx context.Context, text string) (*api.Message, error)
	ListMessages(ctx context.Context) ([]api.Message, error)
	DeleteMessage(ctx context.Context, id int64) error
}

type App struct {
	config *config.Config
	api    apiClient
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	client, err := api.New(c.ServerURL, api.WithHTTPClient(&http.Client{Timeout: c.RequestTimeout}))
	if err != nil {
		return nil, err
	}
	return newApp(c, client, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, client apiClient, in io.Reader, out io.Writer) *App {
	return &App{config: c, api: client, reader: bufio.NewReader(in), out: out}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) isLoggedIn() bool { return a.api.HasToken() }

// Run checks the server is reachable, then runs the REPL until exit or EOF.
func (a *App) Run(ctx context.Context) {
	a.printf("Workout CLI (type 'help' for commands)\n")

	if h, err := a.api.Health(ctx); err != nil {
		a.printf("Server %s is not reachable: %v\n", a.config.ServerURL, err)
	} else {
		a.printf("Server %s: %s\n", a.config.ServerURL, h.Status)
	}

	runREPL(ctx, a, a.reader, a.out)
}
