package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/dmitrijs2005/gophblog/internal/netx"
	"github.com/dmitrijs2005/gophblog/internal/server"
	"github.com/dmitrijs2005/gophblog/internal/server/config"
	"github.com/dmitrijs2005/gophblog/internal/server/httpapi"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gophblog",
		Short:         "Blog backend: users, posts and bearer-token auth",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newUserAddCmd(),
		newCoverUploadCmd(),
	)
	return root
}

// withApp loads configuration, builds the App and closes it after fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *server.App) error) error {
	cfg, err := config.Load(cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	ctx := cmd.Context()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn(ctx, "close database", "error", err)
		}
	}()

	return fn(ctx, app)
}

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *server.App) error {
				if migrate {
					if err := app.Migrate(ctx); err != nil {
						return err
					}
				}
				return app.Run(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *server.App) error {
				return app.Migrate(ctx)
			})
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create sample users and posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *server.App) error {
				res, err := app.Seed(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d users and %d posts, skipped %d existing users\n",
					res.Users, res.Posts, res.Skipped)
				return nil
			})
		},
	}
}

type userAddInput struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=6,max=72,maxbytes=72"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
}

func newUserAddCmd() *cobra.Command {
	var in userAddInput

	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Create a user; the password is read from the terminal or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			in.Password = pw

			if err := httpapi.NewValidator().Validate(&in); err != nil {
				return describeValidation(err)
			}

			return withApp(cmd, func(ctx context.Context, app *server.App) error {
				u, err := app.Users.Create(ctx, models.NewUser{
					Email:     in.Email,
					Password:  in.Password,
					FirstName: in.FirstName,
					LastName:  in.LastName,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %d <%s>\n", u.ID, u.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	return cmd
}

func newCoverUploadCmd() *cobra.Command {
	var (
		postID int64
		owner  string
		path   string
	)

	cmd := &cobra.Command{
		Use:   "cover-upload",
		Short: "Upload a cover image for a post on behalf of its author",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *server.App) error {
				u, err := app.Users.FindByEmail(ctx, owner)
				if err != nil {
					return err
				}
				presigned, err := app.Posts.PresignCoverUpload(ctx, u, postID)
				if err != nil {
					return err
				}
				if err := netx.UploadFile(ctx, nil, presigned.URL, path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", presigned.Key)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&postID, "post-id", 0, "post id")
	cmd.Flags().StringVar(&owner, "as", "", "email of the post author")
	cmd.Flags().StringVarP(&path, "file", "f", "", "image file to upload")
	_ = cmd.MarkFlagRequired("post-id")
	_ = cmd.MarkFlagRequired("as")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// promptPassword reads without echo from a terminal, or one line otherwise.
func promptPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && isTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := readPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func describeValidation(err error) error {
	var ve *httpapi.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve.Fields))
	for _, m := range ve.Fields {
		msgs = append(msgs, m)
	}
	slices.Sort(msgs)
	return fmt.Errorf("invalid input: %s", strings.Join(msgs, "; "))
}
