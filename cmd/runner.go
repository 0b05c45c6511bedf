package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"

	"golang.org/x/crypto/bcrypt"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Store and engine fields are populated by connect; commands that only touch
// configuration (setup) work on a zero-connected Runner.
type Runner struct {
	config *shared.Config
	db     *sql.DB
	logger *log.Logger
	output io.Writer

	spotify services.Service
	tokens  *services.TokenManager

	users     *repositories.UserRepository
	playlists *repositories.PlaylistRepository
	tracks    *repositories.TrackRepository

	playlistEngine *tasks.PlaylistEngine
	trackEngine    *tasks.TrackEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{logger: opts.Logger, output: opts.Output}
}

// connect loads configuration, opens the database and wires the repositories
// and engines. The returned closer shuts the database down.
func (r *Runner) connect(configPath string) (func(), error) {
	config, err := shared.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config (run setup first): %w", err)
	}
	r.config = config

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	r.db = db

	r.users = repositories.NewUserRepository(db)
	r.playlists = repositories.NewPlaylistRepository(db)
	r.tracks = repositories.NewTrackRepository(db)
	favorites := repositories.NewFavoriteRepository(db)
	ratings := repositories.NewRatingRepository(db)
	comments := repositories.NewCommentRepository(db)
	tokenRepo := repositories.NewTokenRepository(db)

	if config.Spotify.ClientID != "" && config.Spotify.ClientSecret != "" {
		tokens, err := services.NewTokenManager(config.Spotify, tokenRepo, r.logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		r.tokens = tokens
		r.spotify = services.NewSpotifyClient(tokens, r.logger)
	}

	resolver := tasks.NewResolver(r.playlists, r.tracks, r.spotify)
	r.playlistEngine = tasks.NewPlaylistEngine(r.spotify, r.playlists, r.logger)
	r.trackEngine = tasks.NewTrackEngine(r.spotify, resolver, r.tracks, favorites, ratings, comments, r.logger)

	return func() { db.Close() }, nil
}

// requireRemote fails commands that need Spotify when no credentials are configured.
func (r *Runner) requireRemote() error {
	if r.spotify == nil {
		return fmt.Errorf("%w: spotify credentials missing from config", shared.ErrAuthRequired)
	}
	return nil
}

// resolveUser finds the named local account, creating it on first use.
func (r *Runner) resolveUser(username string) (*models.User, error) {
	user, err := r.users.GetByUsername(username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, shared.ErrUserNotFound) {
		return nil, err
	}

	hash, hashErr := bcrypt.GenerateFromPassword([]byte(shared.GenerateID()), bcrypt.DefaultCost)
	if hashErr != nil {
		return nil, hashErr
	}

	user = &models.User{Username: username, PasswordHash: string(hash)}
	if createErr := r.users.Create(user); createErr != nil {
		return nil, createErr
	}
	r.logger.Info("created local account", "username", username)
	return user, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, migrateCommand, loginCommand, serveCommand, playlistCommand, trackCommand, favoriteCommand, browseCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
