// Command server runs the MongoDB storage backend for remark42 and carries
// the site management subcommands: registering sites with generated secret
// keys and managing their post lists.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/model"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/repository/mongodb"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/server"
)

func main() {
	// A missing .env file is fine, the process environment still applies.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	root := &cobra.Command{
		Use:           "server",
		Short:         "MongoDB storage backend for remark42",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(logger), sitesCmd(logger), postsCmd(logger))

	if err := root.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func serveCmd(logger *slog.Logger) *cobra.Command {
	var cfg server.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the storage backend server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			srv, err := server.New(ctx, cfg, logger)
			cancel()
			if err != nil {
				return err
			}
			return srv.Start()
		},
	}

	cmd.Flags().IntVar(&cfg.Port, "port", envInt("PORT", 8080), "listen port")
	cmd.Flags().StringVar(&cfg.Hostname, "hostname", envOr("HOST", ""), "listen address, blank for all interfaces")
	cmd.Flags().StringVar(&cfg.MongoURI, "mongo-uri", envOr("MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection string")
	cmd.Flags().StringVar(&cfg.Database, "mongo-db", envOr("MONGO_DB", "remark42"), "MongoDB database name")
	cmd.Flags().StringVar(&cfg.AvatarsBucket, "avatars-bucket", envOr("AVATARS_BUCKET", ""), "GridFS bucket for avatars, blank disables avatar storage")
	cmd.Flags().BoolVar(&cfg.DynamicPosts, "dynamic-posts", envBool("DYNAMIC_POSTS", false), "register unknown posts on first comment")
	cmd.Flags().Int64Var(&cfg.BodyLimit, "body-limit", int64(envInt("BODY_LIMIT", server.DefaultBodyLimit)), "max request body size in bytes")

	return cmd
}

func sitesCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Manage registered sites",
	}

	var key, adminEmail string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a new site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), logger, func(ctx context.Context, db *mongodb.DB) error {
				siteKey := key
				if siteKey == "" {
					var err error
					if siteKey, err = generateKey(); err != nil {
						return err
					}
				}
				if err := db.CreateSite(ctx, args[0], siteKey, adminEmail); err != nil {
					return err
				}
				fmt.Printf("site %s created, key %s\n", args[0], siteKey)
				return nil
			})
		},
	}
	create.Flags().StringVar(&key, "key", "", "secret key, generated when omitted")
	create.Flags().StringVar(&adminEmail, "admin-email", "", "administrator email")

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), logger, func(ctx context.Context, db *mongodb.DB) error {
				sites, err := db.ListSites(ctx)
				if err != nil {
					return err
				}
				for _, s := range sites {
					fmt.Printf("%s\tenabled=%v\tadmin=%s\n", s.ID, s.Enabled, s.AdminEmail)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}

func postsCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Manage the post list of a site",
	}

	var readOnly bool
	create := &cobra.Command{
		Use:   "create <site> <url>",
		Short: "Register a post under a site",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), logger, func(ctx context.Context, db *mongodb.DB) error {
				locator := model.Locator{SiteID: args[0], URL: args[1]}

				siteFound, post, err := db.GetPost(ctx, locator)
				if err != nil {
					return err
				}
				if !siteFound {
					return fmt.Errorf("site %s not found", locator.SiteID)
				}
				if post != nil {
					return fmt.Errorf("post %s already exists", locator.URL)
				}

				if err := db.CreatePost(ctx, locator, readOnly); err != nil {
					return err
				}
				fmt.Printf("post %s created under %s\n", locator.URL, locator.SiteID)
				return nil
			})
		},
	}
	create.Flags().BoolVar(&readOnly, "read-only", false, "create the post read-only")

	list := &cobra.Command{
		Use:   "list <site>",
		Short: "List the posts of a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), logger, func(ctx context.Context, db *mongodb.DB) error {
				posts, err := db.ListPosts(ctx, args[0])
				if err != nil {
					return err
				}
				for _, p := range posts {
					fmt.Printf("%s\tread_only=%v\n", p.URL, p.ReadOnly)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}

// withStore opens the store for a one-shot management command and closes it
// when the command finishes.
func withStore(ctx context.Context, logger *slog.Logger, fn func(context.Context, *mongodb.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := mongodb.New(ctx, mongodb.Config{
		URI:      envOr("MONGO_URI", "mongodb://localhost:27017"),
		Database: envOr("MONGO_DB", "remark42"),
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(ctx) }()

	return fn(ctx, db)
}

func generateKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating site key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func logLevel() slog.Level {
	if envBool("DEBUG", false) {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
