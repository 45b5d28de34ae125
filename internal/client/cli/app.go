package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/learnhub/internal/client/api"
	"github.com/dmitrijs2005/learnhub/internal/client/config"
	"github.com/dmitrijs2005/learnhub/internal/client/credentials"
	"github.com/dmitrijs2005/learnhub/internal/client/hub"
	"github.com/dmitrijs2005/learnhub/internal/client/services"
	"github.com/dmitrijs2005/learnhub/internal/client/session"
	"github.com/dmitrijs2005/learnhub/internal/client/storage"
	"github.com/dmitrijs2005/learnhub/internal/logging"
)

type App struct {
	config  *config.Config
	db      *sql.DB
	logger  logging.Logger
	store   *credentials.MetadataStore
	session *session.Manager
	users   services.UserService
	courses services.CourseService
	quizzes services.AssessmentService
	hub     *hub.Client

	reader *bufio.Reader
	out    io.Writer

	liveSession string
}

// NewApp opens the local database and wires the client stack. in and out
// default to the process's stdin and stdout.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	db, err := storage.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	store := credentials.NewSQLiteStore(db)
	apiClient, err := api.NewClient(c.APIBaseURL, store,
		api.WithTimeout(c.RequestTimeout),
		api.WithLogger(logger),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	sess := session.NewManager(apiClient, store, logger)
	a := &App{
		config:  c,
		db:      db,
		logger:  logger,
		store:   store,
		session: sess,
		users:   services.NewUserService(apiClient),
		courses: services.NewCourseService(apiClient),
		quizzes: services.NewAssessmentService(apiClient),
		hub:     hub.NewClient(c.Hub(), sess.Token, logger),
		reader:  bufio.NewReader(in),
		out:     &syncWriter{w: out},
	}
	a.registerHubHandlers()
	return a, nil
}

// Run restores the previous session and serves the REPL until the user
// exits or in is exhausted.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to LearnHub CLI (type 'help' for commands)")

	if err := a.session.Restore(ctx); err != nil {
		a.logger.Warn(ctx, "could not restore session", "error", err)
	}
	if u := a.session.User(); u != nil {
		fmt.Fprintf(a.out, "Signed in as %s\n", u.Email)
	}

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

// Close leaves any live session and releases the database.
func (a *App) Close() error {
	_ = a.Leave(context.Background())
	return a.db.Close()
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

func (a *App) getStatus() string {
	s := ""
	if u := a.session.User(); u != nil {
		s = u.Email
	}
	if a.liveSession != "" {
		s += " @" + a.liveSession
	}
	if s != "" {
		s = fmt.Sprintf("(%s) ", s)
	}
	return s
}
