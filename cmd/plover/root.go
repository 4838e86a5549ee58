package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/spf13/cobra"

	"Plover/internal/atproto/identity"
	"Plover/internal/atproto/pds"
	"Plover/internal/atproto/xrpc"
	"Plover/internal/config"
	"Plover/internal/core/records"
)

// deps are the pieces a command run needs from the outside world.
type deps struct {
	loadConfig  func(path string) (config.Config, error)
	newResolver func(cfg config.Config, logger *slog.Logger) identity.Resolver
	logOutput   io.Writer
}

func defaultDeps() deps {
	return deps{
		loadConfig: config.Load,
		newResolver: func(cfg config.Config, logger *slog.Logger) identity.Resolver {
			return identity.NewResolver(identity.Config{
				PLCURL:     cfg.PLCURL,
				HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
				Logger:     logger,
			})
		},
		logOutput: os.Stderr,
	}
}

// app is the per-invocation state shared by all subcommands.
type app struct {
	deps       deps
	cfg        config.Config
	logger     *slog.Logger
	resolver   identity.Resolver
	configPath string
	jsonOutput bool
}

func newRootCommand(d deps) *cobra.Command {
	a := &app{deps: d}

	root := &cobra.Command{
		Use:   "plover",
		Short: "Write posts, likes, reposts, follows and profiles to an AT Protocol PDS",
		Long: `Plover writes Bluesky records directly to your PDS.

Credentials come from PLOVER_HANDLE and PLOVER_PASSWORD, or PLOVER_DID and
PLOVER_ACCESS_TOKEN. PLOVER_PDS_URL is optional with a password: the PDS is
discovered from the handle.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file (default $PLOVER_CONFIG)")
	root.PersistentFlags().BoolVarP(&a.jsonOutput, "json", "j", false, "output as JSON")

	root.AddCommand(
		newPostCommand(a),
		newDeletePostCommand(a),
		newLikeCommand(a),
		newUnlikeCommand(a),
		newRepostCommand(a),
		newUnrepostCommand(a),
		newFollowCommand(a),
		newUnfollowCommand(a),
		newProfileCommand(a),
		newSweepCommand(a),
	)

	return root
}

func (a *app) init() error {
	cfg, err := a.deps.loadConfig(a.configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger(a.deps.logOutput)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.resolver = a.deps.newResolver(cfg, logger)
	return nil
}

// connect authenticates against the configured PDS.
func (a *app) connect(ctx context.Context) (pds.Client, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	transport := xrpc.NewHTTPTransport(&http.Client{Timeout: a.cfg.HTTPTimeout}).Transport()

	if a.cfg.AccessToken != "" {
		return pds.NewFromTransport(a.cfg.PDSURL, a.cfg.DID, a.cfg.AccessToken, transport)
	}

	host := a.cfg.PDSURL
	if host == "" {
		ident, err := a.resolver.Resolve(ctx, a.cfg.Handle)
		if err != nil {
			return nil, fmt.Errorf("failed to discover PDS for %s: %w", a.cfg.Handle, err)
		}
		if ident.PDSURL == "" {
			return nil, fmt.Errorf("%s has no PDS endpoint; set PLOVER_PDS_URL", a.cfg.Handle)
		}
		host = ident.PDSURL
		a.logger.Debug("discovered PDS", "handle", a.cfg.Handle, "pds", host)
	}

	return pds.NewFromPasswordAuth(ctx, host, a.cfg.Handle, a.cfg.Password, transport)
}

// session connects and returns a record service plus the acting account.
func (a *app) session(ctx context.Context) (records.Service, pds.Client, error) {
	client, err := a.connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	return records.NewService(client, a.logger), client, nil
}

// resolveDID accepts a DID or a handle and returns the DID. DIDs are used
// as given, without a directory lookup.
func (a *app) resolveDID(ctx context.Context, subject string) (syntax.DID, error) {
	if did, err := syntax.ParseDID(subject); err == nil {
		return did, nil
	}
	ident, err := a.resolver.Resolve(ctx, subject)
	if err != nil {
		return "", err
	}
	return syntax.ParseDID(ident.DID)
}

func (a *app) printRef(w io.Writer, ref records.RecordRef) error {
	if a.jsonOutput {
		return printJSON(w, ref)
	}
	_, err := fmt.Fprintf(w, "%s\t%s\n", ref.URI, ref.CID)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
