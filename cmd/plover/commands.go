package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/spf13/cobra"

	"Plover/internal/atproto/pds"
	"Plover/internal/atproto/utils"
	"Plover/internal/core/records"
	"Plover/internal/core/sweep"
)

func newPostCommand(a *app) *cobra.Command {
	var replyTo, replyCID string

	cmd := &cobra.Command{
		Use:   "post <text>",
		Short: "Create a post, optionally as a reply",
		Long: `Create a post on your account.

With --reply-to, the post joins the parent's thread. If the parent no longer
exists the post is created top-level.

Usage examples:

	plover post "hello world"
	plover post "agreed" --reply-to at://did:plc:abc/app.bsky.feed.post/3kx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, client, err := a.session(cmd.Context())
			if err != nil {
				return err
			}

			var parent *records.RecordRef
			if replyTo != "" {
				parent = &records.RecordRef{URI: replyTo, CID: replyCID}
			}

			ref, err := svc.Post(cmd.Context(), syntax.DID(client.DID()), args[0], parent)
			if err != nil {
				return err
			}
			return a.printRef(cmd.OutOrStdout(), ref)
		},
	}

	cmd.Flags().StringVar(&replyTo, "reply-to", "", "AT-URI of the post to reply to")
	cmd.Flags().StringVar(&replyCID, "reply-cid", "", "CID of the parent post (refreshed from the PDS)")
	return cmd
}

// newDeleteCommand builds a command that deletes the record at a URI.
func newDeleteCommand(a *app, use, short string, del func(records.Service) func(context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <at-uri>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := del(svc)(cmd.Context(), args[0]); err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return err
		},
	}
}

func newDeletePostCommand(a *app) *cobra.Command {
	return newDeleteCommand(a, "delete-post", "Delete one of your posts",
		func(s records.Service) func(context.Context, string) error { return s.DeletePost })
}

func newUnlikeCommand(a *app) *cobra.Command {
	return newDeleteCommand(a, "unlike", "Remove a like by its record URI",
		func(s records.Service) func(context.Context, string) error { return s.Unlike })
}

func newUnrepostCommand(a *app) *cobra.Command {
	return newDeleteCommand(a, "unrepost", "Remove a repost by its record URI",
		func(s records.Service) func(context.Context, string) error { return s.Unrepost })
}

func newUnfollowCommand(a *app) *cobra.Command {
	return newDeleteCommand(a, "unfollow", "Remove a follow by its record URI",
		func(s records.Service) func(context.Context, string) error { return s.Unfollow })
}

// newSubjectCommand builds like/repost. The subject CID is fetched from the
// PDS when not given.
func newSubjectCommand(a *app, use, short string, create func(records.Service) func(context.Context, syntax.DID, records.RecordRef) (records.RecordRef, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <post-uri> [cid]",
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, client, err := a.session(cmd.Context())
			if err != nil {
				return err
			}

			subject := records.RecordRef{URI: args[0]}
			if len(args) == 2 {
				subject.CID = args[1]
			} else {
				subject, err = currentRef(cmd.Context(), client, args[0])
				if err != nil {
					return err
				}
			}

			ref, err := create(svc)(cmd.Context(), syntax.DID(client.DID()), subject)
			if err != nil {
				return err
			}
			return a.printRef(cmd.OutOrStdout(), ref)
		},
	}
}

func newLikeCommand(a *app) *cobra.Command {
	return newSubjectCommand(a, "like", "Like a post",
		func(s records.Service) func(context.Context, syntax.DID, records.RecordRef) (records.RecordRef, error) {
			return s.Like
		})
}

func newRepostCommand(a *app) *cobra.Command {
	return newSubjectCommand(a, "repost", "Repost a post",
		func(s records.Service) func(context.Context, syntax.DID, records.RecordRef) (records.RecordRef, error) {
			return s.Repost
		})
}

// currentRef looks up the record at uri and returns its URI and current CID.
func currentRef(ctx context.Context, client pds.Client, uri string) (records.RecordRef, error) {
	loc, err := utils.ParseRecordURI(uri)
	if err != nil {
		return records.RecordRef{}, err
	}
	rec, err := client.GetRecord(ctx, loc.Authority, loc.Collection, loc.RKey)
	if err != nil {
		return records.RecordRef{}, fmt.Errorf("failed to look up %s: %w", uri, err)
	}
	return records.RecordRef{URI: rec.URI, CID: rec.CID}, nil
}

func newFollowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "follow <handle|did>",
		Short: "Follow an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, err := a.resolveDID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			svc, client, err := a.session(cmd.Context())
			if err != nil {
				return err
			}

			ref, err := svc.Follow(cmd.Context(), syntax.DID(client.DID()), subject)
			if err != nil {
				return err
			}
			return a.printRef(cmd.OutOrStdout(), ref)
		},
	}
}

func newProfileCommand(a *app) *cobra.Command {
	var displayName, description string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update your profile, creating it if needed",
		Long: `Update your profile's display name and description. Fields not given
keep their current value.

Usage examples:

	plover profile --display-name "Alice"
	plover profile --description ""`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setName := cmd.Flags().Changed("display-name")
			setDescription := cmd.Flags().Changed("description")
			if !setName && !setDescription {
				return fmt.Errorf("nothing to update: pass --display-name or --description")
			}

			svc, client, err := a.session(cmd.Context())
			if err != nil {
				return err
			}

			ref, err := svc.UpdateProfile(cmd.Context(), syntax.DID(client.DID()), func(existing *records.ProfileRecord) records.ProfileRecord {
				var p records.ProfileRecord
				if existing != nil {
					p = *existing
				}
				if setName {
					p.DisplayName = displayName
				}
				if setDescription {
					p.Description = description
				}
				return p
			})
			if err != nil {
				return err
			}
			return a.printRef(cmd.OutOrStdout(), ref)
		},
	}

	cmd.Flags().StringVar(&displayName, "display-name", "", "new display name")
	cmd.Flags().StringVar(&description, "description", "", "new profile description")
	return cmd
}

// sweepCollections maps the names accepted by sweep to collections.
var sweepCollections = map[string]string{
	"posts":   records.PostCollection,
	"likes":   records.LikeCollection,
	"reposts": records.RepostCollection,
	"follows": records.FollowCollection,
}

func newSweepCommand(a *app) *cobra.Command {
	var before string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sweep <posts|likes|reposts|follows> --before <time>",
		Short: "Delete your records created before a cutoff",
		Long: `Delete every record in one of your collections created before a cutoff.
The cutoff is an RFC 3339 timestamp or a duration ago such as 720h.

Usage examples:

	plover sweep likes --before 2024-01-01T00:00:00Z --dry-run
	plover sweep posts --before 2160h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, ok := sweepCollections[args[0]]
			if !ok {
				if _, err := syntax.ParseNSID(args[0]); err != nil {
					return fmt.Errorf("unknown collection %q", args[0])
				}
				collection = args[0]
			}

			cutoff, err := parseCutoff(before, time.Now())
			if err != nil {
				return err
			}

			_, client, err := a.session(cmd.Context())
			if err != nil {
				return err
			}

			match := sweep.CreatedBefore(cutoff)
			count := 0
			if dryRun {
				err = sweep.IterateAll(cmd.Context(), client, client.DID(), collection, func(rec pds.RecordEntry) error {
					if match(rec) {
						count++
					}
					return nil
				})
			} else {
				count, err = sweep.DeleteWhere(cmd.Context(), client, client.DID(), collection, match)
			}

			a.logger.Info("sweep finished",
				"collection", collection,
				"cutoff", utils.FormatCreatedAt(cutoff),
				"dry_run", dryRun,
				"count", count)
			if err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"collection": collection,
					"matched":    count,
					"deleted":    !dryRun,
				})
			}
			verb := "deleted"
			if dryRun {
				verb = "would delete"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %d %s records\n", verb, count, collection)
			return err
		},
	}

	cmd.Flags().StringVar(&before, "before", "", "cutoff: RFC 3339 timestamp or duration ago (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count matching records without deleting")
	_ = cmd.MarkFlagRequired("before")
	return cmd
}

// parseCutoff reads an RFC 3339 timestamp, or a duration measured back from now.
func parseCutoff(raw string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return time.Time{}, fmt.Errorf("invalid --before %q: want an RFC 3339 time or a positive duration", raw)
	}
	return now.Add(-d), nil
}
